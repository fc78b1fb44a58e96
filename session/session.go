// Package session holds the identity of the signed-in user and mirrors it to
// durable storage so it survives restarts.
//
// A Store starts out loading. Hydrate restores the persisted identity, if
// any, and flips the store to ready. Commit and Clear keep memory and durable
// storage in step: readers never observe one without the other.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/eventbus"
	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/danieldean2000/oscorm-dashboard/logging"
	"google.golang.org/grpc/codes"
)

// DefaultKey is the durable entry the identity is stored under.
const DefaultKey = "user"

// Topics published on the event bus.
const (
	TopicCommitted = "session.committed"
	TopicCleared   = "session.cleared"
)

// ErrUnavailable is returned by Commit when durable storage could not be
// written. The store is left empty.
var ErrUnavailable = errors.NewC("session: durable storage unavailable", codes.Unavailable)

// Event is the payload for session topics.
type Event struct {
	Identity identity.Identity
}

// Storage is the key/value surface the store persists through. It is
// satisfied by *storage.KV.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the durable entry name.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithEventBus publishes commit and clear events to bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// Store is the session store. The zero value is not usable, use New.
type Store struct {
	kv  Storage
	key string
	bus eventbus.EventBus

	mu      sync.RWMutex
	current identity.Identity
	present bool
	gen     uint64 // Bumped by every Commit and Clear.

	hydrate sync.Once
	loading atomic.Bool
	ready   chan struct{}
}

// New returns a loading Store backed by kv.
func New(kv Storage, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		key:   DefaultKey,
		ready: make(chan struct{}),
	}
	s.loading.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores the persisted identity. Only the first call has an
// effect. Read failures and malformed entries leave the session empty, a
// malformed entry is also removed from storage. A Commit or Clear that lands
// while Hydrate is reading wins: the value read is discarded.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrate.Do(func() {
		defer func() {
			s.loading.Store(false)
			close(s.ready)
		}()

		ctx = logging.EnsureLogger(ctx)
		ctx = logging.With(ctx, logging.FromContext(ctx).Named("session"))

		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		raw, ok, err := s.kv.Get(ctx, s.key)
		if err != nil {
			logging.Errorw(ctx, "session: failed to read persisted identity", "key", s.key, "error", err)
			return
		}
		if !ok {
			logging.Debug(ctx, "session: no persisted identity")
			return
		}

		id, decodeErr := identity.Decode([]byte(raw))

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			logging.Debug(ctx, "session: superseded while restoring, keeping newer state")
			return
		}
		if decodeErr != nil {
			logging.Warnw(ctx, "session: discarding malformed persisted identity", "key", s.key, "error", decodeErr)
			if err := s.kv.Remove(ctx, s.key); err != nil {
				logging.Errorw(ctx, "session: failed to remove malformed identity", "key", s.key, "error", err)
			}
			return
		}
		s.current, s.present = id, true
		logging.Infow(ctx, "session: restored identity", "user.id", id.ID, "user.role", id.Role)
	})
}

// IsLoading is true until Hydrate completes.
func (s *Store) IsLoading() bool {
	return s.loading.Load()
}

// Ready is closed once Hydrate completes.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// User returns the current identity, if there is one.
func (s *Store) User() (identity.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.present
}

// Commit makes id the current identity and persists it. Incomplete
// identities are rejected without touching existing state.
func (s *Store) Commit(ctx context.Context, id identity.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	b, err := id.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gen++
	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		s.current, s.present = identity.Identity{}, false
		if rmErr := s.kv.Remove(ctx, s.key); rmErr != nil {
			logging.Errorw(ctx, "session: failed to remove stale identity", "key", s.key, "error", rmErr)
		}
		s.mu.Unlock()
		logging.Errorw(ctx, "session: failed to persist identity", "key", s.key, "error", err)
		return errors.Mark(ErrUnavailable, 0).Append(err.Error())
	}
	s.current, s.present = id, true
	s.mu.Unlock()

	logging.Track(ctx, "user.id", id.ID)
	logging.Infow(ctx, "session: committed identity", "user.role", id.Role)
	s.publish(ctx, TopicCommitted, id)
	return nil
}

// Clear signs the user out. Clearing an empty session is a no-op. Storage
// errors are logged rather than returned since the in-memory session is
// always cleared.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	prev, had := s.current, s.present
	s.current, s.present = identity.Identity{}, false
	if err := s.kv.Remove(ctx, s.key); err != nil {
		logging.Errorw(ctx, "session: failed to remove persisted identity", "key", s.key, "error", err)
	}
	s.mu.Unlock()

	if had {
		logging.Infow(ctx, "session: cleared identity", "user.id", prev.ID)
		s.publish(ctx, TopicCleared, prev)
	}
}

func (s *Store) publish(ctx context.Context, topic string, id identity.Identity) {
	if s.bus != nil {
		s.bus.Publish(ctx, topic, Event{Identity: id})
	}
}
