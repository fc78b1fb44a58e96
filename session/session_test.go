package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/danieldean2000/oscorm-dashboard/eventbus"
	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/danieldean2000/oscorm-dashboard/logging"
	"github.com/danieldean2000/oscorm-dashboard/storage"
	"github.com/danieldean2000/oscorm-dashboard/storage/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var alice = identity.Identity{ID: "7", Email: "alice@example.com", Name: "Alice", Role: identity.RoleStandardUser}

// flakyKV wraps a KV and fails selected operations.
type flakyKV struct {
	*storage.KV
	getErr, setErr, removeErr error
	removes                   int

	// afterGet runs once the value has been read, before it is returned.
	afterGet func()
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok, err := f.KV.Get(ctx, key)
	if f.afterGet != nil {
		f.afterGet()
	}
	return v, ok, err
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.KV.Set(ctx, key, value)
}

func (f *flakyKV) Remove(ctx context.Context, key string) error {
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.KV.Remove(ctx, key)
}

func newKV() *storage.KV {
	return storage.NewKV(memstore.New())
}

func TestHydrateEmpty(t *testing.T) {
	s := New(newKV())
	assert.True(t, s.IsLoading())

	s.Hydrate(t.Context())

	assert.False(t, s.IsLoading())
	_, ok := s.User()
	assert.False(t, ok)
	select {
	case <-s.Ready():
	default:
		t.Fatal("ready channel should be closed")
	}
}

func TestHydrateRestoresPersistedIdentity(t *testing.T) {
	kv := newKV()
	require.NoError(t, kv.Set(t.Context(), "user", `{"id":"7","email":"alice@example.com","name":"Alice","role":"blog_user"}`))

	s := New(kv)
	s.Hydrate(t.Context())

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, alice, got)
}

func TestHydrateCoercesNumericID(t *testing.T) {
	kv := newKV()
	require.NoError(t, kv.Set(t.Context(), "user", `{"id":2,"email":"a@b.com","name":"A","role":"admin"}`))

	s := New(kv)
	s.Hydrate(t.Context())

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "2", got.ID)
}

func TestHydrateDiscardsMalformedEntry(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx := logging.With(t.Context(), logging.NewZapLogger(zap.New(core)))

	kv := newKV()
	require.NoError(t, kv.Set(ctx, "user", `{"id":"7","email":`))

	s := New(kv)
	s.Hydrate(ctx)

	_, ok := s.User()
	assert.False(t, ok)
	assert.False(t, s.IsLoading())

	_, stored, err := kv.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, stored, "malformed entry should be removed")
	assert.Equal(t, 1, logs.FilterMessage("session: discarding malformed persisted identity").Len())
}

func TestHydrateReadFailure(t *testing.T) {
	kv := &flakyKV{KV: newKV(), getErr: errors.New("disk on fire")}
	s := New(kv)
	s.Hydrate(t.Context())

	_, ok := s.User()
	assert.False(t, ok)
	assert.False(t, s.IsLoading())
	assert.Zero(t, kv.removes)
}

func TestHydrateRunsOnce(t *testing.T) {
	kv := newKV()
	s := New(kv)
	s.Hydrate(t.Context())

	require.NoError(t, kv.Set(t.Context(), "user", `{"id":"7","email":"alice@example.com","name":"Alice","role":"blog_user"}`))
	s.Hydrate(t.Context())

	_, ok := s.User()
	assert.False(t, ok, "second hydrate must not re-read storage")
}

func TestCommitPersists(t *testing.T) {
	kv := newKV()
	s := New(kv)
	s.Hydrate(t.Context())

	require.NoError(t, s.Commit(t.Context(), alice))

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, alice, got)

	// A fresh store over the same storage sees the identity.
	restarted := New(kv)
	restarted.Hydrate(t.Context())
	got, ok = restarted.User()
	require.True(t, ok)
	assert.Equal(t, alice, got)
}

func TestCommitCustomKey(t *testing.T) {
	kv := newKV()
	s := New(kv, WithKey("dashboard.user"))
	require.NoError(t, s.Commit(t.Context(), alice))

	_, ok, err := kv.Get(t.Context(), "dashboard.user")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = kv.Get(t.Context(), "user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitRejectsIncompleteIdentity(t *testing.T) {
	kv := newKV()
	s := New(kv)
	require.NoError(t, s.Commit(t.Context(), alice))

	err := s.Commit(t.Context(), identity.Identity{ID: "8", Role: identity.RoleAdmin})
	require.ErrorIs(t, err, identity.ErrIncomplete)

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, alice, got, "existing session must be untouched")
}

func TestCommitWriteFailureDegradesToEmpty(t *testing.T) {
	kv := &flakyKV{KV: newKV()}
	s := New(kv)
	require.NoError(t, s.Commit(t.Context(), alice))

	kv.setErr = errors.New("read-only filesystem")
	err := s.Commit(t.Context(), identity.Identity{ID: "1", Email: "admin@example.com", Role: identity.RoleAdmin})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "read-only filesystem")

	_, ok := s.User()
	assert.False(t, ok)
	_, stored, err := kv.KV.Get(t.Context(), "user")
	require.NoError(t, err)
	assert.False(t, stored, "stale durable entry should be removed")
}

func TestClear(t *testing.T) {
	kv := newKV()
	s := New(kv)
	require.NoError(t, s.Commit(t.Context(), alice))

	s.Clear(t.Context())
	_, ok := s.User()
	assert.False(t, ok)
	_, stored, err := kv.Get(t.Context(), "user")
	require.NoError(t, err)
	assert.False(t, stored)

	assert.NotPanics(t, func() { s.Clear(t.Context()) }, "clear is idempotent")
}

func TestClearStorageFailureStillClearsMemory(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctx := logging.With(t.Context(), logging.NewZapLogger(zap.New(core)))

	kv := &flakyKV{KV: newKV()}
	s := New(kv)
	require.NoError(t, s.Commit(ctx, alice))

	kv.removeErr = errors.New("locked")
	s.Clear(ctx)

	_, ok := s.User()
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("session: failed to remove persisted identity").Len())
}

func TestEvents(t *testing.T) {
	bus := eventbus.NewBus(logging.EnsureLogger(t.Context()))

	var mu sync.Mutex
	var got []string
	record := func(ctx context.Context, msg *eventbus.Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg.Topic+":"+msg.Data.(Event).Identity.ID)
		return nil
	}
	bus.Subscribe(TopicCommitted, record)
	bus.Subscribe(TopicCleared, record)

	s := New(newKV(), WithEventBus(bus))
	require.NoError(t, s.Commit(t.Context(), alice))
	require.NoError(t, bus.Wait(t.Context()))
	s.Clear(t.Context())
	s.Clear(t.Context())
	require.NoError(t, bus.Wait(t.Context()))

	assert.Equal(t, []string{"session.committed:7", "session.cleared:7"}, got)
}

func TestConcurrentReadsSeeConsistentState(t *testing.T) {
	s := New(newKV())
	s.Hydrate(t.Context())

	bob := identity.Identity{ID: "9", Email: "bob@example.com", Name: "Bob", Role: identity.RoleAdmin}
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, s.Commit(t.Context(), alice))
			} else {
				assert.NoError(t, s.Commit(t.Context(), bob))
			}
		}()
		go func() {
			defer wg.Done()
			if id, ok := s.User(); ok {
				assert.Contains(t, []string{"7", "9"}, id.ID)
			}
		}()
	}
	wg.Wait()
}

func TestCommitDuringHydrateWins(t *testing.T) {
	bob := identity.Identity{ID: "2", Email: "bob@example.com", Name: "Bob", Role: identity.RoleStandardUser}
	kv := &flakyKV{KV: newKV()}
	require.NoError(t, kv.Set(t.Context(), "user", `{"id":1,"email":"old@example.com","name":"Old","role":"admin"}`))

	s := New(kv)
	kv.afterGet = func() { require.NoError(t, s.Commit(t.Context(), bob)) }
	s.Hydrate(t.Context())

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, bob, got)

	raw, stored, err := kv.KV.Get(t.Context(), "user")
	require.NoError(t, err)
	require.True(t, stored)
	persisted, err := identity.Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, got, persisted, "memory and storage agree")
	assert.False(t, s.IsLoading())
}

func TestClearDuringHydrateWins(t *testing.T) {
	kv := &flakyKV{KV: newKV()}
	require.NoError(t, kv.Set(t.Context(), "user", `{"id":"7","email":"alice@example.com","name":"Alice","role":"blog_user"}`))

	s := New(kv)
	kv.afterGet = func() { s.Clear(t.Context()) }
	s.Hydrate(t.Context())

	_, ok := s.User()
	assert.False(t, ok)
	_, stored, err := kv.KV.Get(t.Context(), "user")
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestCommitDuringHydrateKeepsEntryOverMalformedRead(t *testing.T) {
	kv := &flakyKV{KV: newKV()}
	require.NoError(t, kv.Set(t.Context(), "user", `{"id":`))

	s := New(kv)
	kv.afterGet = func() { require.NoError(t, s.Commit(t.Context(), alice)) }
	s.Hydrate(t.Context())

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, alice, got)
	_, stored, err := kv.KV.Get(t.Context(), "user")
	require.NoError(t, err)
	assert.True(t, stored, "the committed entry must not be removed")
	assert.Zero(t, kv.removes)
}
