package paraphrase

import (
	"encoding/json"
	"fmt"
	"strings"
)

// suggestionOutput is the JSON envelope the model is asked to return.
type suggestionOutput struct {
	Questions []string `json:"questions"`
}

// parseOutput decodes the model reply. Models sometimes wrap JSON in a
// markdown fence despite instructions, so one is stripped if present.
func parseOutput(output string) (*suggestionOutput, error) {
	s := strings.TrimSpace(output)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}

	out := &suggestionOutput{}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return nil, fmt.Errorf("paraphrase: failed to unmarshal model output: %w", err)
	}
	return out, nil
}
