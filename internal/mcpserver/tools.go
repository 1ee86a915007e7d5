package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/cafebot-go/internal/qa"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the customer's question in natural language"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer          string   `json:"answer"`
	MatchedQuestion string   `json:"matchedQuestion,omitempty"`
	Distance        *float64 `json:"distance,omitempty"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Collection string `json:"collection,omitempty" jsonschema:"collection to search (default: the chatbot collection)"`
	Query      string `json:"query" jsonschema:"text to match against stored questions"`
	Limit      int    `json:"limit,omitempty" jsonschema:"candidate count before filtering (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Answers []AnswerOutput `json:"answers"`
	Count   int            `json:"count"`
}

// AnswerOutput is one matched answer.
type AnswerOutput struct {
	Type            string         `json:"type"`
	Content         string         `json:"content"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Distance        float64        `json:"distance"`
	MatchedQuestion string         `json:"matchedQuestion"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a cafe customer question (menu, business hours, facilities, FAQ)",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the stored answer whose questions best match the query, without rendering it",
	}, s.handleRetrieve)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, AskOutput{}, fmt.Errorf("query must not be empty")
	}
	r := s.chat.Ask(ctx, input.Query)
	return nil, AskOutput{Answer: r.Answer, MatchedQuestion: r.MatchedQuestion, Distance: r.Distance}, nil
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	answers, err := s.chat.Retrieve(ctx, input.Collection, input.Query, input.Limit)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}
	out := RetrieveOutput{Answers: make([]AnswerOutput, 0, len(answers)), Count: len(answers)}
	for _, a := range answers {
		o, err := toOutput(a)
		if err != nil {
			return nil, RetrieveOutput{}, err
		}
		out.Answers = append(out.Answers, o)
	}
	return nil, out, nil
}

func toOutput(a qa.Answer) (AnswerOutput, error) {
	f, err := a.Flatten()
	if err != nil {
		return AnswerOutput{}, err
	}
	return AnswerOutput{
		Type:            string(f.Type),
		Content:         f.Content,
		Parameters:      f.Parameters,
		Distance:        f.Distance,
		MatchedQuestion: f.MatchedQuestion,
	}, nil
}
