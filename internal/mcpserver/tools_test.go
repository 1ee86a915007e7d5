package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/cafebot-go/internal/chatbot"
	"github.com/54b3r/cafebot-go/internal/qa"
)

type mockChat struct {
	reply   chatbot.Reply
	answers []qa.Answer
	err     error

	gotCollection string
	gotLimit      int
}

func (m *mockChat) Ask(_ context.Context, _ string) chatbot.Reply { return m.reply }

func (m *mockChat) Retrieve(_ context.Context, collection, _ string, limit int) ([]qa.Answer, error) {
	m.gotCollection, m.gotLimit = collection, limit
	return m.answers, m.err
}

func TestNew_NilChat(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns rendered reply", func(t *testing.T) {
		d := 0.12
		s, err := New(&mockChat{reply: chatbot.Reply{Answer: "영업 중입니다.", MatchedQuestion: "지금 열었나요?", Distance: &d}})
		require.NoError(t, err)

		_, out, err := s.handleAsk(ctx, nil, AskInput{Query: "지금 열었어요?"})
		require.NoError(t, err)
		assert.Equal(t, "영업 중입니다.", out.Answer)
		assert.Equal(t, "지금 열었나요?", out.MatchedQuestion)
		require.NotNil(t, out.Distance)
		assert.Equal(t, 0.12, *out.Distance)
	})

	t.Run("rejects blank query", func(t *testing.T) {
		s, err := New(&mockChat{})
		require.NoError(t, err)
		_, _, err = s.handleAsk(ctx, nil, AskInput{Query: " "})
		assert.Error(t, err)
	})
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("flattens answers", func(t *testing.T) {
		m := &mockChat{answers: []qa.Answer{{
			Body:            qa.FunctionBody{Path: "/api/cafe/facilities", Parameters: map[string]any{"k": "v"}},
			Distance:        0.3,
			MatchedQuestion: "주차 되나요?",
		}}}
		s, err := New(m)
		require.NoError(t, err)

		_, out, err := s.handleRetrieve(ctx, nil, RetrieveInput{Collection: "faq", Query: "주차", Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, "faq", m.gotCollection)
		assert.Equal(t, 3, m.gotLimit)
		require.Equal(t, 1, out.Count)
		assert.Equal(t, AnswerOutput{
			Type:            "function",
			Content:         "/api/cafe/facilities",
			Parameters:      map[string]any{"k": "v"},
			Distance:        0.3,
			MatchedQuestion: "주차 되나요?",
		}, out.Answers[0])
	})

	t.Run("empty result", func(t *testing.T) {
		s, err := New(&mockChat{})
		require.NoError(t, err)
		_, out, err := s.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Count)
		assert.Empty(t, out.Answers)
	})

	t.Run("propagates errors", func(t *testing.T) {
		s, err := New(&mockChat{err: errors.New("store offline")})
		require.NoError(t, err)
		_, _, err = s.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})
		assert.ErrorContains(t, err, "store offline")
	})
}

func TestToOutput_Text(t *testing.T) {
	o, err := toOutput(qa.Answer{Body: qa.TextBody{Content: "네"}, Distance: 0.1, MatchedQuestion: "q"})
	require.NoError(t, err)
	assert.Equal(t, "text", o.Type)
	assert.Equal(t, "네", o.Content)
	assert.Nil(t, o.Parameters)
}

func TestToOutput_MissingBody(t *testing.T) {
	_, err := toOutput(qa.Answer{MatchedQuestion: "q"})
	assert.ErrorContains(t, err, "no body")
}

func TestServer_handleRetrieve_RejectsAnswerWithoutBody(t *testing.T) {
	s, err := New(&mockChat{answers: []qa.Answer{{MatchedQuestion: "q"}}})
	require.NoError(t, err)
	_, _, err = s.handleRetrieve(context.Background(), nil, RetrieveInput{Query: "x"})
	assert.Error(t, err)
}
