package profile

import (
	"context"
	"sync"
)

// MemoryStore is an in-process profile store for local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Metadata // userID -> fields
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Metadata),
	}
}

// Get returns a copy of the user's fields
func (s *MemoryStore) Get(ctx context.Context, userID string) (Metadata, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data[userID].Clone(), nil
}

// Update merges fields under a single lock
func (s *MemoryStore) Update(ctx context.Context, userID string, fields Metadata) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[userID] == nil {
		s.data[userID] = make(Metadata)
	}
	for k, v := range fields {
		s.data[userID][k] = v
	}
	return nil
}
