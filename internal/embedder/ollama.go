package embedder

import (
	"context"
	"encoding/json"
	"time"
)

// defaultOllamaMaxInputs keeps one /api/embed call small enough for a
// CPU-only Ollama to answer inside the client timeout.
const defaultOllamaMaxInputs = 32

// OllamaEmbedder embeds through a local Ollama server's /api/embed endpoint.
// It is safe for concurrent use.
type OllamaEmbedder struct {
	host string
	t    transport
}

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the server base URL, e.g. "http://localhost:11434".
	Host string
	// Model is the embedding model, e.g. "bge-m3" for Korean text.
	Model string
	// MaxInputs caps the texts per request. Defaults to 32.
	MaxInputs int
	// Retries is how often a 429 or 5xx is retried. 0 means 3, negative
	// disables retries.
	Retries int
	// RetryWait is the first backoff interval. Defaults to 250ms.
	RetryWait time.Duration
}

// NewOllamaEmbedder constructs an OllamaEmbedder.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	maxInputs := cfg.MaxInputs
	if maxInputs <= 0 {
		maxInputs = defaultOllamaMaxInputs
	}
	return &OllamaEmbedder{
		host: cfg.Host,
		t:    newTransport("ollama", cfg.Model, 60*time.Second, maxInputs, cfg.Retries, cfg.RetryWait),
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Model returns the embedding model name.
func (e *OllamaEmbedder) Model() string { return e.t.model }

// Embed embeds one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return first(e.EmbedBatch(ctx, []string{text}))
}

// EmbedBatch embeds texts, MaxInputs per request. The result is parallel to
// texts.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.t.inChunks(texts, func(part []string) ([][]float32, error) {
		var resp ollamaEmbedResponse
		err := e.t.postJSON(ctx, e.host+"/api/embed", nil,
			ollamaEmbedRequest{Model: e.t.model, Input: part}, &resp, ollamaErrorMessage)
		return resp.Embeddings, err
	})
}

// ollamaErrorMessage extracts {"error": "..."} from a failed reply.
func ollamaErrorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return body.Error
}
