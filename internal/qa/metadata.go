package qa

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/54b3r/cafebot-go/internal/rag"
)

// Metadata keys written to every record.
const (
	metaType         = "type"
	metaID           = "id"
	metaAnswerType   = "answerType"
	metaFunctionPath = "functionPath"
	metaParameters   = "parameters"
	metaAnswerID     = "answerId"

	entryAnswer   = "answer"
	entryQuestion = "question"
)

// encodeAnswerMeta is the only place answer metadata is written, including
// the JSON text form of function parameters.
func encodeAnswerMeta(id string, body Body) (map[string]string, error) {
	meta := map[string]string{
		metaType:       entryAnswer,
		metaID:         id,
		metaAnswerType: string(body.Kind()),
	}
	if fn, ok := body.(FunctionBody); ok {
		meta[metaFunctionPath] = fn.Path
		if fn.Parameters != nil {
			raw, err := json.Marshal(fn.Parameters)
			if err != nil {
				return nil, fmt.Errorf("%w: parameters are not JSON-serializable: %v", ErrInvalidFact, err)
			}
			meta[metaParameters] = string(raw)
		}
	}
	return meta, nil
}

func questionMeta(id, answerID string) map[string]string {
	return map[string]string{
		metaType:     entryQuestion,
		metaID:       id,
		metaAnswerID: answerID,
	}
}

// isAnswer reports whether rec is the answer record with the given id.
func isAnswer(rec rag.Record, id string) bool {
	return rec.Metadata[metaType] == entryAnswer && rec.Metadata[metaID] == id
}

// linkedAnswerID returns the answer id of a question record, or "" for
// anything that is not a linked question.
func linkedAnswerID(meta map[string]string) string {
	if meta[metaType] != entryQuestion {
		return ""
	}
	return meta[metaAnswerID]
}

// errUnknownAnswerType marks an answer record whose answerType this build
// cannot render.
var errUnknownAnswerType = errors.New("qa: unknown answer type")

// decodeAnswer is the only place answer metadata is read back into a Body.
func decodeAnswer(rec rag.Record) (Body, error) {
	switch kind := Kind(rec.Metadata[metaAnswerType]); kind {
	case KindText, "":
		// Records written without an answerType are text answers.
		return TextBody{Content: rec.Document}, nil
	case KindFunction:
		body := FunctionBody{Path: rec.Metadata[metaFunctionPath]}
		if body.Path == "" {
			body.Path = rec.Document
		}
		if raw := rec.Metadata[metaParameters]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &body.Parameters); err != nil {
				return nil, fmt.Errorf("qa: answer %q has malformed parameters: %w", rec.ID, err)
			}
		}
		return body, nil
	default:
		return nil, fmt.Errorf("%w %q on answer %q", errUnknownAnswerType, kind, rec.ID)
	}
}
