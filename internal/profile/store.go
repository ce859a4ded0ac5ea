package profile

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmptyUserID  = errors.New("user id is required")
)

// Metadata is the key-value part of a user profile that the storefront may
// write to. Values are opaque strings.
type Metadata map[string]string

// Store is the remote user profile held by the identity provider.
// Implementations must apply all fields of one Update atomically.
type Store interface {
	// Get returns the profile fields. A user without any fields yields an
	// empty Metadata and a nil error.
	Get(ctx context.Context, userID string) (Metadata, error)

	// Update merges fields into the profile, leaving other fields intact.
	Update(ctx context.Context, userID string, fields Metadata) error
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
