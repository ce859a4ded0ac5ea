package cartstore

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/example/storefront-cart/internal/notify"
)

const (
	DefaultDebounce      = time.Second
	DefaultSyncInterval  = 30 * time.Second
	DefaultRemoteTimeout = 10 * time.Second
)

type Option func(*Store)

// WithDebounce sets the quiet period before a persist.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithSyncInterval sets how often the remote record is re-read.
func WithSyncInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// WithRemoteTimeout bounds each profile read or write.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.remoteTimeout = d
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock replaces time.Now for write timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
