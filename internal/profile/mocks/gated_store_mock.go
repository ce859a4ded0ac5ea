package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-cart/internal/profile"
)

// GatedStore is a MockStore whose Get blocks until Release is called or the
// caller's context ends. Entered receives once per Get that starts waiting.
type GatedStore struct {
	*MockStore
	Entered chan struct{}

	release chan struct{}
	once    sync.Once
}

// NewGatedStore creates a GatedStore with an empty MockStore underneath
func NewGatedStore() *GatedStore {
	return &GatedStore{
		MockStore: NewMockStore(),
		Entered:   make(chan struct{}, 8),
		release:   make(chan struct{}),
	}
}

// Get waits for Release, then behaves like MockStore.Get
func (g *GatedStore) Get(ctx context.Context, userID string) (profile.Metadata, error) {
	select {
	case g.Entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.MockStore.Get(ctx, userID)
}

// Release unblocks every pending and future Get
func (g *GatedStore) Release() {
	g.once.Do(func() { close(g.release) })
}
