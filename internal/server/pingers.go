package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/54b3r/cafebot-go/internal/rag"
)

var errCafeDataEmpty = errors.New("cafe data has no cafe name")

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name returns the dependency label used in readiness responses.
func (p PingerFunc) Name() string { return p.Label }

// Ping calls Fn.
func (p PingerFunc) Ping(ctx context.Context) error { return p.Fn(ctx) }

// EmbedderPinger checks the embedding provider with a one-word request.
// Pass the uncached client: a cache hit would report a dead provider as ready.
type EmbedderPinger struct {
	embedder rag.Embedder
	name     string
}

// NewEmbedderPinger constructs an EmbedderPinger labelled name (e.g. "ollama").
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a fixed word.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vec, err := p.embedder.Embed(ctx, "ping")
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("embed returned an empty vector")
	}
	return nil
}

// NewCollectionPinger checks that the named collection can be opened on
// store. It is labelled "collection:<name>".
func NewCollectionPinger(store rag.Store, name string) Pinger {
	return PingerFunc{
		Label: "collection:" + name,
		Fn: func(ctx context.Context) error {
			if _, err := store.Collection(ctx, name); err != nil {
				return fmt.Errorf("open collection: %w", err)
			}
			return nil
		},
	}
}
