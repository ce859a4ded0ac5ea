package cartstore

import (
	"context"
	"time"
)

const EventCartPersisted = "CartPersisted"

// Publisher announces successful persists to other processes serving the
// same identity.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// CartPersisted is published, keyed by user id, after each successful write.
type CartPersisted struct {
	EventType   string    `json:"event_type"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	WriteID     string    `json:"write_id"`
	ItemCount   int       `json:"item_count"`
	LastUpdated time.Time `json:"last_updated"`
}
