package rag

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Collections is the process-wide cache of open collection handles.
// It starts empty, fills lazily on first use of each name and is never
// evicted. Concurrent first use of the same name results in exactly one
// get-or-create call against the store.
type Collections struct {
	store   Store
	handles sync.Map // name -> Collection
	group   singleflight.Group
}

// NewCollections wraps store with a handle cache.
func NewCollections(store Store) *Collections {
	return &Collections{store: store}
}

// Get returns the cached handle for name, opening it on first use.
func (c *Collections) Get(ctx context.Context, name string) (Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("rag: collection name must not be empty")
	}
	if h, ok := c.handles.Load(name); ok {
		return h.(Collection), nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		if h, ok := c.handles.Load(name); ok {
			return h, nil
		}
		coll, err := c.store.Collection(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("rag: open collection %q: %w", name, err)
		}
		c.handles.Store(name, coll)
		return coll, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Collection), nil
}

// Store returns the underlying backend.
func (c *Collections) Store() Store {
	return c.store
}
