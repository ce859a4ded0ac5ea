package cartstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/storefront-cart/internal/domain/cart"
	"github.com/example/storefront-cart/internal/notify"
	"github.com/example/storefront-cart/internal/profile"
)

var (
	ErrEmptyUserID = errors.New("user id is required")
	ErrNotActive   = errors.New("cart store is not active")
)

const (
	msgLoadFailed = "Failed to load cart data"
	msgSaveFailed = "Failed to save cart changes"
	msgSyncFailed = "Failed to sync cart"
)

// Store holds one identity's cart. Mutations apply locally and return
// immediately; persistence and reconciliation run on a loop owned by the
// store that is started by Activate and stopped by Close.
type Store struct {
	userID    string
	sessionID string

	profiles  profile.Store
	notifier  notify.Notifier
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time

	debounce      time.Duration
	syncInterval  time.Duration
	remoteTimeout time.Duration

	mu        sync.Mutex
	state     cart.State
	activated bool
	closed    bool

	dirty    chan struct{}
	requests chan request

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type requestKind int

const (
	requestFlush requestKind = iota
	requestReconcile
)

type request struct {
	kind requestKind
	done chan error
}

func New(userID string, profiles profile.Store, opts ...Option) (*Store, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		userID:        userID,
		sessionID:     uuid.NewString(),
		profiles:      profiles,
		notifier:      notify.Discard,
		logger:        zerolog.Nop(),
		now:           time.Now,
		debounce:      DefaultDebounce,
		syncInterval:  DefaultSyncInterval,
		remoteTimeout: DefaultRemoteTimeout,
		state:         cart.State{Items: []cart.LineItem{}},
		dirty:         make(chan struct{}, 1),
		requests:      make(chan request),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().
		Str("component", "Cart").
		Str("user_id", userID).
		Str("session_id", s.sessionID).
		Logger()
	return s, nil
}

func (s *Store) UserID() string    { return s.userID }
func (s *Store) SessionID() string { return s.sessionID }

// Activate loads the remote cart once and starts the persist and reconcile
// loop. Later calls are no-ops. A failed load is logged and notified; the
// store still activates with whatever local state it has.
//
// The load outlives ctx's cancellation because the store outlives the
// request that opened it; only Close or the remote timeout abort it.
func (s *Store) Activate(ctx context.Context) {
	s.mu.Lock()
	if s.activated || s.closed {
		s.mu.Unlock()
		return
	}
	s.activated = true
	s.wg.Add(1)
	s.mu.Unlock()

	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.ctx, cancel)
	snap, err := s.readRemote(loadCtx)
	stop()
	cancel()

	switch {
	case err != nil && s.stopping(err):
		s.logger.Debug().Err(err).Msg("cart load cancelled by shutdown")
	case err != nil:
		s.logger.Error().Err(err).Msg("failed to load cart")
		s.notify(notify.LevelError, msgLoadFailed)
	case snap != nil:
		s.mu.Lock()
		s.state = cart.Apply(s.state, cart.InitializeFrom{Snapshot: *snap})
		count := len(s.state.Items)
		s.mu.Unlock()
		s.logger.Info().Int("lines", count).Msg("cart loaded")
	}

	// run returns at once if Close already cancelled the store.
	go s.run()
}

// AddToCart merges quantity into an existing line or appends a new one.
func (s *Store) AddToCart(item cart.LineItem, quantity int) {
	if quantity < 1 {
		s.logger.Warn().Str("item_id", string(item.ID)).Int("quantity", quantity).Msg("ignoring add with quantity below one")
		return
	}
	s.mu.Lock()
	s.apply(cart.AddItem{Item: item, Quantity: quantity})
	s.mu.Unlock()

	s.notify(notify.LevelSuccess, fmt.Sprintf("%s added to cart", item.Title))
}

// RemoveFromCart deletes the line with id. Unknown ids are ignored.
func (s *Store) RemoveFromCart(id cart.ItemID) {
	s.mu.Lock()
	i := cart.Find(s.state.Items, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	title := s.state.Items[i].Title
	s.apply(cart.RemoveItem{ID: id})
	s.mu.Unlock()

	s.notify(notify.LevelError, fmt.Sprintf("%s removed from cart", title))
}

// UpdateQuantity sets the quantity of an existing line. Values below one
// are rejected here; removal goes through RemoveFromCart.
func (s *Store) UpdateQuantity(id cart.ItemID, quantity int) {
	if quantity < 1 {
		s.logger.Warn().Str("item_id", string(id)).Int("quantity", quantity).Msg("ignoring quantity below one")
		return
	}
	s.mu.Lock()
	i := cart.Find(s.state.Items, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	title := s.state.Items[i].Title
	s.apply(cart.UpdateQuantity{ID: id, Quantity: quantity})
	s.mu.Unlock()

	s.notify(notify.LevelSuccess, fmt.Sprintf("Updated %s quantity to %d", title, quantity))
}

// ChangeQuantity adjusts a line by delta, removing it when the result
// drops below one.
func (s *Store) ChangeQuantity(id cart.ItemID, delta int) {
	s.mu.Lock()
	i := cart.Find(s.state.Items, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	next := s.state.Items[i].Quantity + delta
	s.mu.Unlock()

	if next < 1 {
		s.RemoveFromCart(id)
		return
	}
	s.UpdateQuantity(id, next)
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	s.apply(cart.Clear{})
	s.mu.Unlock()

	s.notify(notify.LevelSuccess, "Cart cleared")
}

// Items returns a copy of the current lines in insertion order.
func (s *Store) Items() []cart.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.LineItem, len(s.state.Items))
	copy(out, s.state.Items)
	return out
}

func (s *Store) CartTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Total(s.state.Items)
}

func (s *Store) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Count(s.state.Items)
}

// LastSynced is the timestamp of the remote write this store last adopted
// or produced. Zero means never synced.
func (s *Store) LastSynced() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastSynced
}

// Flush persists a pending debounced write immediately.
func (s *Store) Flush(ctx context.Context) error {
	return s.send(ctx, requestFlush)
}

// Reconcile re-reads the remote record now instead of waiting for the next
// tick. It returns the read error, which has already been notified.
func (s *Store) Reconcile(ctx context.Context) error {
	return s.send(ctx, requestReconcile)
}

// Close stops the loop. A pending debounced write is discarded; call Flush
// first to keep it. Close is idempotent and safe before Activate.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Debug().Msg("cart store closed")
}

// apply must be called with mu held.
func (s *Store) apply(cmd cart.Command) {
	s.state = cart.Apply(s.state, cmd)
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) notify(level notify.Level, msg string) {
	s.notifier.Notify(notify.Notification{Level: level, Message: msg, At: s.now()})
}

func (s *Store) send(ctx context.Context, kind requestKind) error {
	s.mu.Lock()
	running := s.activated && !s.closed
	s.mu.Unlock()
	if !running {
		return ErrNotActive
	}

	req := request{kind: kind, done: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.ctx.Done():
		return ErrNotActive
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-s.ctx.Done():
		return ErrNotActive
	case <-ctx.Done():
		return ctx.Err()
	}
}
