package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// defaultRetries is how many times a 429 or 5xx reply is retried.
	defaultRetries = 3
	// defaultRetryWait is the first backoff interval; later ones grow
	// exponentially.
	defaultRetryWait = 250 * time.Millisecond
	// maxErrorBody caps how much of a failed reply is read for the message.
	maxErrorBody = 4 << 10
)

// APIError is a non-2xx reply from an embedding provider.
type APIError struct {
	Provider string
	Model    string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s embedder (%s): HTTP %d: %s", e.Provider, e.Model, e.Status, e.Message)
}

// Temporary reports whether the same request may succeed later: rate
// limiting and server-side failures.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// transport is the HTTP plumbing shared by the REST embedders. It splits
// batches to the provider's input limit and retries temporary failures.
type transport struct {
	provider  string
	model     string
	client    *http.Client
	maxInputs int
	retries   int
	retryWait time.Duration
}

func newTransport(provider, model string, timeout time.Duration, maxInputs, retries int, retryWait time.Duration) transport {
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultRetries
	}
	if retryWait <= 0 {
		retryWait = defaultRetryWait
	}
	return transport{
		provider:  provider,
		model:     model,
		client:    &http.Client{Timeout: timeout},
		maxInputs: maxInputs,
		retries:   retries,
		retryWait: retryWait,
	}
}

// inChunks calls embed on consecutive slices of at most maxInputs texts and
// concatenates the results, checking each reply is parallel to its input.
func (t *transport) inChunks(texts []string, embed func(part []string) ([][]float32, error)) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := t.maxInputs
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		part := texts[start:min(start+size, len(texts))]
		vecs, err := embed(part)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(part) {
			return nil, fmt.Errorf("%s embedder (%s): expected %d embeddings, got %d", t.provider, t.model, len(part), len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// postJSON sends body to url and decodes a 2xx reply into out. Non-2xx
// replies become *APIError, with the message taken from errMessage when the
// body is JSON and from the raw body otherwise. Temporary errors and
// transport failures are retried with exponential backoff.
func (t *transport) postJSON(ctx context.Context, url string, header http.Header, body, out any, errMessage func([]byte) string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s embedder: marshal request: %w", t.provider, err)
	}

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%s embedder: create request: %w", t.provider, err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%s embedder: request failed: %w", t.provider, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			apiErr := &APIError{Provider: t.provider, Model: t.model, Status: resp.StatusCode, Message: errMessage(raw)}
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(string(raw))
			}
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
			if apiErr.Temporary() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("%s embedder: decode response: %w", t.provider, err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.retryWait
	b.MaxElapsedTime = 0
	err = backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(b, uint64(t.retries)), ctx))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
