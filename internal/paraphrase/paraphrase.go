// Package paraphrase asks a chat model for alternative phrasings of a
// customer question, so curators can widen a QA fact's coverage before it
// is ingested.
package paraphrase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/cafebot-go/internal/budget"
	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/qa"
)

// MaxSuggestions caps a single request.
const MaxSuggestions = 20

// systemPrompt fixes the persona and the JSON envelope the reply must use.
const systemPrompt = `You write paraphrases of customer questions for a Korean cafe's FAQ chatbot.

Given one question, produce alternative ways a real customer might ask the same
thing: different word order, casual and polite registers, common abbreviations
and typos are all welcome. Keep the meaning identical and keep the language of
the original question.

Respond with ONLY a JSON object in this exact shape, no markdown fencing and no
explanation outside the JSON:

{"questions": ["<paraphrase 1>", "<paraphrase 2>"]}`

// Suggester generates question paraphrases with a chat model.
type Suggester struct {
	model model.BaseChatModel
	// maxPromptTokens caps the prompt, including the known-questions list.
	maxPromptTokens int
}

// New constructs a Suggester.
func New(m model.BaseChatModel) (*Suggester, error) {
	if m == nil {
		return nil, fmt.Errorf("paraphrase: chat model must not be nil")
	}
	return &Suggester{model: m, maxPromptTokens: budget.DefaultMaxPromptTokens}, nil
}

// Suggest returns up to n paraphrases of question that are not already in
// existing. Comparison ignores surrounding whitespace and case.
func (s *Suggester) Suggest(ctx context.Context, question string, n int, existing []string) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("paraphrase: question must not be empty")
	}
	if n <= 0 {
		return nil, nil
	}
	n = min(n, MaxSuggestions)

	messages := s.buildMessages(ctx, question, n, existing)

	sr, err := s.model.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("paraphrase: stream failed: %w", err)
	}
	defer sr.Close()

	var buf strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("paraphrase: stream receive error: %w", err)
		}
		if msg != nil {
			buf.WriteString(msg.Content)
		}
	}

	out, err := parseOutput(buf.String())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(existing)+1)
	seen[normalize(question)] = true
	for _, q := range existing {
		seen[normalize(q)] = true
	}

	var result []string
	for _, q := range out.Questions {
		key := normalize(q)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, strings.TrimSpace(q))
		if len(result) == n {
			break
		}
	}

	logging.FromContext(ctx).Debug("paraphrase: suggestions generated",
		slog.Int("requested", n),
		slog.Int("returned", len(result)),
	)
	return result, nil
}

// Expand appends up to n suggestions for the first question of f.
func (s *Suggester) Expand(ctx context.Context, f qa.Fact, n int) (qa.Fact, error) {
	if len(f.Questions) == 0 {
		return f, fmt.Errorf("%w: at least one question is required", qa.ErrInvalidFact)
	}
	extra, err := s.Suggest(ctx, f.Questions[0], n, f.Questions)
	if err != nil {
		return f, err
	}
	f.Questions = append(append([]string(nil), f.Questions...), extra...)
	return f, nil
}

// buildMessages lists the known paraphrases after the request so the model
// can avoid them, keeping as many as fit the prompt budget.
func (s *Suggester) buildMessages(ctx context.Context, question string, n int, existing []string) []*schema.Message {
	const knownHeader = "\nAlready covered, do not repeat:"
	system := schema.SystemMessage(systemPrompt)
	request := fmt.Sprintf("Question: %s\nNumber of paraphrases: %d", question, n)

	var known []string
	for _, q := range existing {
		if strings.TrimSpace(q) != "" && normalize(q) != normalize(question) {
			known = append(known, "- "+strings.TrimSpace(q))
		}
	}

	kept := budget.FitLines([]*schema.Message{system, schema.UserMessage(request + knownHeader)}, known, s.maxPromptTokens)
	if len(kept) < len(known) {
		logging.FromContext(ctx).Debug("paraphrase: known questions trimmed to fit prompt budget",
			slog.Int("known", len(known)),
			slog.Int("kept", len(kept)),
		)
	}
	if len(kept) > 0 {
		request += knownHeader + "\n" + strings.Join(kept, "\n")
	}
	return []*schema.Message{system, schema.UserMessage(request)}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
