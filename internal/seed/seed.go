// Package seed bulk-loads QA facts from a YAML or JSON file. Files are
// validated against an embedded JSON schema before anything is embedded,
// then ingested one fact at a time; the first failure stops the run.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/54b3r/cafebot-go/internal/qa"
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// Entry is one fact as written in a seed file.
type Entry struct {
	Document     string         `json:"document" yaml:"document"`
	Questions    []string       `json:"questions" yaml:"questions"`
	AnswerType   string         `json:"answerType" yaml:"answerType"`
	FunctionPath string         `json:"functionPath" yaml:"functionPath"`
	Parameters   map[string]any `json:"parameters" yaml:"parameters"`
}

// Fact converts e to a qa.Fact.
func (e Entry) Fact() qa.Fact {
	return qa.Fact{
		Document:     e.Document,
		Questions:    e.Questions,
		Kind:         qa.Kind(e.AnswerType),
		FunctionPath: e.FunctionPath,
		Parameters:   e.Parameters,
	}
}

// File is a parsed seed file.
type File struct {
	// Collection overrides the target collection when set.
	Collection string  `json:"collection" yaml:"collection"`
	Facts      []Entry `json:"facts" yaml:"facts"`
}

// Load reads and validates a seed file. Files ending in .json are decoded
// as JSON; anything else as YAML.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(raw)
	}
	return ParseYAML(raw)
}

// ParseYAML validates and decodes a YAML seed document.
func ParseYAML(raw []byte) (*File, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("seed: parse yaml: %w", err)
	}
	// Round-trip through JSON so the schema sees the same types as for JSON input.
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("seed: convert yaml: %w", err)
	}
	return ParseJSON(asJSON)
}

// ParseJSON validates and decodes a JSON seed document.
func ParseJSON(raw []byte) (*File, error) {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("seed: validate: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("seed: invalid file: %s", strings.Join(msgs, "; "))
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	return &f, nil
}

// Ingester writes one fact into a collection.
type Ingester interface {
	Ingest(ctx context.Context, collection string, f qa.Fact) error
}

// Run ingests every fact in f into collection, or into f.Collection when
// collection is empty. It returns the number of facts written before the
// first failure. Progress is reported via the optional callback.
func Run(ctx context.Context, ing Ingester, f *File, collection string, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if collection == "" {
		collection = f.Collection
	}

	for i, e := range f.Facts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := ing.Ingest(ctx, collection, e.Fact()); err != nil {
			return i, fmt.Errorf("seed: fact %d (%q): %w", i+1, e.Questions[0], err)
		}
		progress(fmt.Sprintf("[%d/%d] ingested %q with %d questions", i+1, len(f.Facts), e.Questions[0], len(e.Questions)))
	}
	return len(f.Facts), nil
}
