// Package embedder provides the Embedding Client: implementations of
// rag.Embedder that turn query and question text into dense vectors. Each
// implementation talks to a different backend (OpenAI, Azure OpenAI, Ollama)
// over its REST API; [Cached] adds a persistent cache in front of any of them.
package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// openaiMaxInputs is the API's limit on inputs per embeddings request.
const openaiMaxInputs = 2048

// OpenAIEmbedder embeds through the OpenAI or Azure OpenAI embeddings REST
// API. It is safe for concurrent use.
type OpenAIEmbedder struct {
	url        string
	header     http.Header
	dimensions int
	t          transport
}

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL is the API base. OpenAI: "https://api.openai.com/v1".
	// Azure: "https://<resource>.openai.azure.com/openai".
	BaseURL string
	// APIKey is sent as a Bearer token, or in the api-key header for Azure.
	APIKey string
	// Model is the embedding model, or the deployment name for Azure.
	Model string
	// Dimensions truncates vectors server-side (0 = model default).
	Dimensions int
	// Azure switches to deployment URLs and api-key auth.
	Azure bool
	// APIVersion is the Azure api-version, e.g. "2025-04-01-preview".
	APIVersion string
	// MaxInputs caps the texts per request. Defaults to the API limit, 2048.
	MaxInputs int
	// Retries is how often a 429 or 5xx is retried. 0 means 3, negative
	// disables retries.
	Retries int
	// RetryWait is the first backoff interval. Defaults to 250ms.
	RetryWait time.Duration
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		url:        cfg.BaseURL + "/embeddings",
		header:     http.Header{},
		dimensions: cfg.Dimensions,
	}
	provider := "openai"
	if cfg.Azure {
		provider = "azure"
		e.url = cfg.BaseURL + "/deployments/" + url.PathEscape(cfg.Model) +
			"/embeddings?api-version=" + url.QueryEscape(cfg.APIVersion)
		e.header.Set("api-key", cfg.APIKey)
	} else {
		e.header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	maxInputs := cfg.MaxInputs
	if maxInputs <= 0 || maxInputs > openaiMaxInputs {
		maxInputs = openaiMaxInputs
	}
	e.t = newTransport(provider, cfg.Model, 30*time.Second, maxInputs, cfg.Retries, cfg.RetryWait)
	return e
}

type openaiEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string { return e.t.model }

// Embed embeds one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return first(e.EmbedBatch(ctx, []string{text}))
}

// EmbedBatch embeds texts, MaxInputs per request. The result is parallel to
// texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.t.inChunks(texts, func(part []string) ([][]float32, error) {
		var resp openaiEmbedResponse
		req := openaiEmbedRequest{Input: part, Model: e.t.model, Dimensions: e.dimensions}
		if err := e.t.postJSON(ctx, e.url, e.header, req, &resp, openaiErrorMessage); err != nil {
			return nil, err
		}
		return e.byIndex(resp, len(part))
	})
}

// byIndex orders the reply by input index; the API does not promise order.
func (e *OpenAIEmbedder) byIndex(resp openaiEmbedResponse, n int) ([][]float32, error) {
	if len(resp.Data) != n {
		return nil, fmt.Errorf("%s embedder (%s): expected %d embeddings, got %d", e.t.provider, e.t.model, n, len(resp.Data))
	}
	out := make([][]float32, n)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= n {
			return nil, fmt.Errorf("%s embedder (%s): index %d out of range [0, %d)", e.t.provider, e.t.model, d.Index, n)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("%s embedder (%s): missing embedding for input %d", e.t.provider, e.t.model, i)
		}
	}
	return out, nil
}

// openaiErrorMessage extracts {"error": {"message": "..."}} from a failed
// reply.
func openaiErrorMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return body.Error.Message
}
