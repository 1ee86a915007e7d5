// Package qa implements question matching over a vector store.
//
// A QA fact is one answer record plus one or more paraphrased question
// records that point at it by id. [Encoder] turns a fact into records ready
// for a single batched insert; [Matcher] resolves a free-text query to the
// nearest question and follows its link to the answer (two-hop resolution).
package qa

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidFact is returned by the Encoder when a fact is rejected before
// any embedding call is made.
var ErrInvalidFact = errors.New("qa: invalid fact")

// Kind is the wire name of an answer variant.
type Kind string

const (
	// KindText answers are returned verbatim.
	KindText Kind = "text"
	// KindFunction answers are re-derived from live data at query time.
	KindFunction Kind = "function"
)

// ParseKind maps the wire name to a Kind. Empty means text.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindText:
		return KindText, nil
	case KindFunction:
		return KindFunction, nil
	default:
		return "", fmt.Errorf("%w: unknown answer type %q", ErrInvalidFact, s)
	}
}

// Body is the variant part of an Answer. It is sealed: only [TextBody] and
// [FunctionBody] implement it, and [BodyVisitor] must handle both, so a new
// variant does not compile until every visitor handles it.
type Body interface {
	Kind() Kind
	accept(v BodyVisitor) string
}

// BodyVisitor renders each Body variant.
type BodyVisitor interface {
	VisitText(TextBody) string
	VisitFunction(FunctionBody) string
}

// TextBody is a static reply.
type TextBody struct {
	Content string
}

// Kind implements Body.
func (TextBody) Kind() Kind { return KindText }

func (b TextBody) accept(v BodyVisitor) string { return v.VisitText(b) }

// FunctionBody names a live-data capability to invoke.
type FunctionBody struct {
	// Path is the logical endpoint identifier, e.g. "/api/cafe/business-hours".
	Path string
	// Parameters are optional arguments stored with the answer.
	Parameters map[string]any
}

// Kind implements Body.
func (FunctionBody) Kind() Kind { return KindFunction }

func (b FunctionBody) accept(v BodyVisitor) string { return v.VisitFunction(b) }

// Answer is one resolved match.
type Answer struct {
	Body Body
	// Distance is the matched question's distance from the query.
	Distance float64
	// MatchedQuestion is the matched question's text.
	MatchedQuestion string
}

// Accept renders the answer with v.
func (a Answer) Accept(v BodyVisitor) string {
	return a.Body.accept(v)
}

// Flat is the wire shape of an Answer: {type, content, parameters?,
// distance, matchedQuestion}. For function answers Content is the endpoint
// path.
type Flat struct {
	Type            Kind           `json:"type"`
	Content         string         `json:"content"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Distance        float64        `json:"distance"`
	MatchedQuestion string         `json:"matchedQuestion"`
}

// flattener collects the variant fields of a Body while rendering content.
type flattener struct {
	params map[string]any
}

func (f *flattener) VisitText(b TextBody) string { return b.Content }

func (f *flattener) VisitFunction(b FunctionBody) string {
	f.params = b.Parameters
	return b.Path
}

// Flatten converts a into its wire shape through the Body visitor.
func (a Answer) Flatten() (Flat, error) {
	if a.Body == nil {
		return Flat{}, errors.New("qa: answer has no body")
	}
	var f flattener
	content := a.Accept(&f)
	return Flat{
		Type:            a.Body.Kind(),
		Content:         content,
		Parameters:      f.params,
		Distance:        a.Distance,
		MatchedQuestion: a.MatchedQuestion,
	}, nil
}

// MarshalJSON renders the Flat form.
func (a Answer) MarshalJSON() ([]byte, error) {
	out, err := a.Flatten()
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
