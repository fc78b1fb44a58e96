package storage

import (
	"context"

	"github.com/danieldean2000/oscorm-dashboard/errors"
)

// Entry is a raw string value stored under a key. Values are opaque to the
// store, so callers are responsible for validating what they read back.
type Entry struct {
	Key   string
	Value string
}

// PK implements Model.
func (e Entry) PK() string {
	return e.Key
}

// Name implements Namer.
func (Entry) Name() string {
	return "kv_entries"
}

// KV offers the get/set/remove surface of browser local storage on top of a
// Store.
type KV struct {
	store Store
}

// NewKV wraps a store.
func NewKV(s Store) *KV {
	return &KV{store: s}
}

// Get returns the value stored under key. The boolean is false, with a nil
// error, if no value is stored.
func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := kv.store.Read(ctx, key, &e)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// Set stores value under key, replacing anything already there.
func (kv *KV) Set(ctx context.Context, key, value string) error {
	return kv.store.Upsert(ctx, Entry{Key: key, Value: value})
}

// Remove deletes the value stored under key. Removing a missing key is not an
// error.
func (kv *KV) Remove(ctx context.Context, key string) error {
	err := kv.store.Delete(ctx, Entry{Key: key})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
