package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-cart/internal/profile"
)

// MockStore is a mock implementation of profile.Store for testing
type MockStore struct {
	mu   sync.RWMutex
	data map[string]profile.Metadata

	// For tracking calls in tests
	GetCalls    []GetCall
	UpdateCalls []UpdateCall
	GetErr      error
	UpdateErr   error
}

// GetCall records parameters passed to Get
type GetCall struct {
	UserID string
}

// UpdateCall records parameters passed to Update
type UpdateCall struct {
	UserID string
	Fields profile.Metadata
}

// NewMockStore creates a new MockStore
func NewMockStore() *MockStore {
	return &MockStore{
		data:        make(map[string]profile.Metadata),
		GetCalls:    make([]GetCall, 0),
		UpdateCalls: make([]UpdateCall, 0),
	}
}

// Get returns stored fields or GetErr
func (m *MockStore) Get(ctx context.Context, userID string) (profile.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, GetCall{UserID: userID})
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.data[userID].Clone(), nil
}

// Update merges fields or returns UpdateErr
func (m *MockStore) Update(ctx context.Context, userID string, fields profile.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{UserID: userID, Fields: fields.Clone()})
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if m.data[userID] == nil {
		m.data[userID] = make(profile.Metadata)
	}
	for k, v := range fields {
		m.data[userID][k] = v
	}
	return nil
}

// SetData sets fields directly for testing
func (m *MockStore) SetData(userID string, fields profile.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = fields.Clone()
}

// SetErrors swaps the injected errors
func (m *MockStore) SetErrors(getErr, updateErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetErr = getErr
	m.UpdateErr = updateErr
}

// Updates returns a copy of the recorded Update calls
func (m *MockStore) Updates() []UpdateCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UpdateCall, len(m.UpdateCalls))
	copy(out, m.UpdateCalls)
	return out
}

// GetCount returns how many times Get was called
func (m *MockStore) GetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.GetCalls)
}

// Reset clears data and recorded calls
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]profile.Metadata)
	m.GetCalls = make([]GetCall, 0)
	m.UpdateCalls = make([]UpdateCall, 0)
	m.GetErr = nil
	m.UpdateErr = nil
}
