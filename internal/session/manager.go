package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/storefront-cart/internal/cartstore"
	"github.com/example/storefront-cart/internal/identity"
	"github.com/example/storefront-cart/internal/notify"
	"github.com/example/storefront-cart/internal/profile"
)

var ErrNoSession = errors.New("no open session")

// Session is one signed-in identity's cart and its pending notifications.
type Session struct {
	Identity      identity.Identity
	Cart          *cartstore.Store
	Notifications *notify.Queue
	OpenedAt      time.Time

	// closed once the initial load has finished
	ready chan struct{}
}

// Manager keeps at most one cart store per identity. A store exists from
// Open until Close; Shutdown closes all of them.
type Manager struct {
	profiles profile.Store
	opts     []cartstore.Option
	base     zerolog.Logger
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(profiles profile.Store, logger zerolog.Logger, opts ...cartstore.Option) *Manager {
	return &Manager{
		profiles: profiles,
		opts:     opts,
		base:     logger,
		logger:   logger.With().Str("component", "Session").Logger(),
		sessions: make(map[string]*Session),
	}
}

// Open returns the identity's session, creating and activating it on first
// use. Concurrent callers for the same identity wait until the remote cart
// has loaded, so a mutation is never overwritten by that load.
func (m *Manager) Open(ctx context.Context, id identity.Identity) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id.UserID]; ok {
		m.mu.Unlock()
		select {
		case <-s.ready:
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	queue := notify.NewQueue(notify.DefaultQueueSize)
	opts := append(append([]cartstore.Option{}, m.opts...),
		cartstore.WithNotifier(queue),
		cartstore.WithLogger(m.base),
	)
	store, err := cartstore.New(id.UserID, m.profiles, opts...)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to create cart store: %w", err)
	}

	s := &Session{
		Identity:      id,
		Cart:          store,
		Notifications: queue,
		OpenedAt:      time.Now(),
		ready:         make(chan struct{}),
	}
	m.sessions[id.UserID] = s
	m.mu.Unlock()

	store.Activate(ctx)
	close(s.ready)
	m.logger.Info().
		Str("user_id", id.UserID).
		Str("session_id", store.SessionID()).
		Msg("session opened")
	return s, nil
}

func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Close flushes any pending write and tears down the identity's store.
func (m *Manager) Close(ctx context.Context, userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	err := s.Cart.Flush(ctx)
	if errors.Is(err, cartstore.ErrNotActive) {
		err = nil
	}
	s.Cart.Close()

	m.logger.Info().Str("user_id", userID).Msg("session closed")
	return err
}

// HandleEvent reconciles the identity's store when another session wrote
// its cart. Events from this process's own store are ignored.
func (m *Manager) HandleEvent(ctx context.Context, event cartstore.CartPersisted) error {
	s, ok := m.Get(event.UserID)
	if !ok || event.SessionID == s.Cart.SessionID() {
		return nil
	}

	m.logger.Debug().
		Str("user_id", event.UserID).
		Str("from_session", event.SessionID).
		Msg("remote cart write, reconciling")
	err := s.Cart.Reconcile(ctx)
	if errors.Is(err, cartstore.ErrNotActive) {
		return nil
	}
	return err
}

// HandleMessage decodes a raw cart sync event and passes it to HandleEvent.
// Undecodable messages are logged and skipped so the consumer keeps going.
func (m *Manager) HandleMessage(ctx context.Context, key, value []byte) error {
	var event cartstore.CartPersisted
	if err := json.Unmarshal(value, &event); err != nil {
		m.logger.Warn().Err(err).Str("key", string(key)).Msg("skipping undecodable cart event")
		return nil
	}
	if event.EventType != cartstore.EventCartPersisted {
		return nil
	}
	if event.UserID == "" {
		event.UserID = string(key)
	}
	return m.HandleEvent(ctx, event)
}

// Len reports how many sessions are open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown flushes and closes every open session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for userID, s := range sessions {
		if err := s.Cart.Flush(ctx); err != nil && !errors.Is(err, cartstore.ErrNotActive) {
			m.logger.Error().Err(err).Str("user_id", userID).Msg("failed to flush cart on shutdown")
		}
		s.Cart.Close()
	}
	m.logger.Info().Int("sessions", len(sessions)).Msg("sessions shut down")
}
