package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/cafebot-go/internal/qa"
)

const sampleYAML = `
collection: faq
facts:
  - document: 매장은 역 3번 출구 앞에 있습니다.
    questions:
      - 매장 위치가 어디예요?
      - 어디에 있나요?
  - answerType: function
    functionPath: /api/cafe/business-hours
    questions: [영업시간이 어떻게 되나요?]
    parameters:
      detail: true
`

type recordingIngester struct {
	collections []string
	facts       []qa.Fact
	failAt      int
}

func (r *recordingIngester) Ingest(_ context.Context, collection string, f qa.Fact) error {
	if r.failAt > 0 && len(r.facts)+1 == r.failAt {
		return errors.New("embedding provider unavailable")
	}
	r.collections = append(r.collections, collection)
	r.facts = append(r.facts, f)
	return nil
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	f, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "faq", f.Collection)
	require.Len(t, f.Facts, 2)
	assert.Equal(t, []string{"매장 위치가 어디예요?", "어디에 있나요?"}, f.Facts[0].Questions)

	fn := f.Facts[1].Fact()
	assert.Equal(t, qa.KindFunction, fn.Kind)
	assert.Equal(t, "/api/cafe/business-hours", fn.FunctionPath)
	assert.Equal(t, map[string]any{"detail": true}, fn.Parameters)
}

func TestParse_SchemaRejections(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no facts":          `{"facts": []}`,
		"no questions":      `{"facts": [{"document": "x", "questions": []}]}`,
		"blank question":    `{"facts": [{"document": "x", "questions": ["  "]}]}`,
		"unknown type":      `{"facts": [{"document": "x", "questions": ["q"], "answerType": "image"}]}`,
		"function no path":  `{"facts": [{"questions": ["q"], "answerType": "function"}]}`,
		"text no document":  `{"facts": [{"questions": ["q"]}]}`,
		"unknown field":     `{"facts": [{"document": "x", "questions": ["q"], "extra": 1}]}`,
		"malformed json":    `{"facts": [`,
		"parameters scalar": `{"facts": [{"questions": ["q"], "answerType": "function", "functionPath": "/p", "parameters": 3}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseJSON([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ByExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o644))
	f, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, f.Facts, 2)

	jsonPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"facts": [{"document": "네", "questions": ["포장 되나요?"]}]}`), 0o644))
	f, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "네", f.Facts[0].Document)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_UsesFileCollectionAndReportsProgress(t *testing.T) {
	t.Parallel()
	f, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	ing := &recordingIngester{}
	var msgs []string
	n, err := Run(context.Background(), ing, f, "", func(m string) { msgs = append(msgs, m) })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"faq", "faq"}, ing.collections)
	assert.Len(t, msgs, 2)

	ing = &recordingIngester{}
	_, err = Run(context.Background(), ing, f, "override", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"override", "override"}, ing.collections)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	f, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	ing := &recordingIngester{failAt: 2}
	n, err := Run(context.Background(), ing, f, "", nil)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "fact 2")
	assert.Len(t, ing.facts, 1)
}
