package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront-cart/internal/domain/cart"
	"github.com/example/storefront-cart/internal/notify"
	"github.com/example/storefront-cart/internal/profile"
)

// run owns the debounce timer and the reconcile ticker. Remote calls happen
// one at a time on this goroutine, so a store never reads while its own
// write is in flight. Writes from other sessions can still interleave.
func (s *Store) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	debounce := time.NewTimer(s.debounce)
	debounce.Stop()
	defer debounce.Stop()

	pending := false
	for {
		select {
		case <-s.ctx.Done():
			if pending {
				s.logger.Debug().Msg("discarding pending cart write")
			}
			return

		case <-s.dirty:
			pending = true
			debounce.Reset(s.debounce)

		case <-debounce.C:
			if pending {
				pending = false
				_ = s.persist(s.ctx)
			}

		case <-ticker.C:
			_ = s.reconcile(s.ctx)

		case req := <-s.requests:
			switch req.kind {
			case requestFlush:
				select {
				case <-s.dirty:
					pending = true
				default:
				}
				var err error
				if pending {
					debounce.Stop()
					pending = false
					err = s.persist(s.ctx)
				}
				req.done <- err
			case requestReconcile:
				req.done <- s.reconcile(s.ctx)
			}
		}
	}
}

// persist writes the whole cart with a fresh timestamp. On success the
// store adopts that timestamp so the next reconcile does not re-apply its
// own write.
func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	items := make([]cart.LineItem, len(s.state.Items))
	copy(items, s.state.Items)
	s.mu.Unlock()

	writtenAt := s.now().UTC().Truncate(time.Millisecond)
	fields, err := cart.EncodeSnapshot(items, writtenAt)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode cart")
		s.notify(notify.LevelError, msgSaveFailed)
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	if err := s.profiles.Update(rctx, s.userID, profile.Metadata(fields)); err != nil {
		if s.stopping(err) {
			s.logger.Debug().Err(err).Msg("cart write cancelled by shutdown")
			return err
		}
		s.logger.Error().Err(err).Msg("failed to save cart")
		s.notify(notify.LevelError, msgSaveFailed)
		return fmt.Errorf("failed to save cart: %w", err)
	}

	s.mu.Lock()
	if writtenAt.After(s.state.LastSynced) {
		s.state.LastSynced = writtenAt
	}
	s.mu.Unlock()

	s.logger.Debug().
		Int("lines", len(items)).
		Str("last_updated", cart.FormatTimestamp(writtenAt)).
		Msg("cart saved")

	s.publish(ctx, items, writtenAt)
	return nil
}

func (s *Store) publish(ctx context.Context, items []cart.LineItem, writtenAt time.Time) {
	if s.publisher == nil {
		return
	}
	event := CartPersisted{
		EventType:   EventCartPersisted,
		UserID:      s.userID,
		SessionID:   s.sessionID,
		WriteID:     uuid.NewString(),
		ItemCount:   cart.Count(items),
		LastUpdated: writtenAt,
	}

	pctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, s.userID, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish cart event")
	}
}

// reconcile adopts the remote cart when it was written after the last
// write this store knows about. Whole-snapshot last writer wins.
func (s *Store) reconcile(ctx context.Context) error {
	snap, err := s.readRemote(ctx)
	if err != nil {
		if s.stopping(err) {
			return err
		}
		s.logger.Warn().Err(err).Msg("failed to sync cart")
		s.notify(notify.LevelError, msgSyncFailed)
		return err
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	adopt := cart.IsNewer(snap.LastUpdated, s.state.LastSynced)
	if adopt {
		s.state = cart.Apply(s.state, cart.SyncFrom{Snapshot: *snap})
	}
	s.mu.Unlock()

	if adopt {
		s.logger.Info().
			Int("lines", len(snap.Items)).
			Str("last_updated", cart.FormatTimestamp(snap.LastUpdated)).
			Msg("adopted remote cart")
	}
	return nil
}

// readRemote returns nil, nil when the profile has no cart yet.
func (s *Store) readRemote(ctx context.Context) (*cart.Snapshot, error) {
	rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	fields, err := s.profiles.Get(rctx, s.userID)
	if err != nil {
		if errors.Is(err, profile.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	snap, err := cart.DecodeSnapshot(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return snap, nil
}

func (s *Store) stopping(err error) bool {
	return errors.Is(err, context.Canceled) && s.ctx.Err() != nil
}
