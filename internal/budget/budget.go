// Package budget estimates prompt sizes for the chat model calls cafebot
// makes. Backends use different tokenizers, so counts come from a character
// heuristic that errs high: 4 ASCII characters per token, and one token per
// non-ASCII character (Hangul syllables usually cost one or more).
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// asciiCharsPerToken is the ratio used for ASCII text.
	asciiCharsPerToken = 4

	// messageOverhead approximates the per-message framing most APIs add.
	messageOverhead = 4

	// DefaultMaxPromptTokens is the input budget for a paraphrase request.
	// It fits comfortably in the smallest context window of the supported
	// backends while leaving room for the reply.
	DefaultMaxPromptTokens = 2000
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	ascii, other := 0, 0
	for _, r := range s {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			other++
		}
	}
	n := ascii/asciiCharsPerToken + other
	if n == 0 && s != "" {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count of msgs,
// counting role and content plus framing for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// FitLines returns the longest prefix of lines that can be appended to the
// prompt in fixed without exceeding maxTokens. Each line costs its estimate
// plus one for the separating newline. Lines are kept in order, so callers
// put the most important ones first.
func FitLines(fixed []*schema.Message, lines []string, maxTokens int) []string {
	used := EstimateMessages(fixed)
	for i, line := range lines {
		used += Estimate(line) + 1
		if used > maxTokens {
			return lines[:i]
		}
	}
	return lines
}
