// Package storagetests provides common acceptance tests for storage.Store
// implementations.
package storagetests

import (
	"context"
	"testing"

	"github.com/danieldean2000/oscorm-dashboard/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

type Article struct {
	ID       string
	Title    string
	Status   Status
	Comments *int // Ptr fields allow filtering on zero values.
}

func (a Article) PK() string {
	return a.ID
}

type Author struct {
	ID   string
	Name string
}

func (a Author) PK() string {
	return a.ID
}

type BadModel struct {
	ID     string
	Broken func()
}

func (b BadModel) PK() string {
	return b.ID
}

func pint(i int) *int {
	return &i
}

// Run executes the acceptance suite. newStore must return an empty store on
// every call.
//
//nolint:funlen // This is a test helper.
func Run(t *testing.T, newStore func() storage.Store) {
	ctx := context.Background()

	t.Run("CreateReadRoundTrip", func(t *testing.T) {
		first := Article{ID: "1", Title: "Getting Started", Status: StatusPublished}
		second := Article{ID: "2", Title: "Advanced Patterns", Status: StatusDraft}

		store := newStore()
		require.NoError(t, store.Create(ctx, first, second))

		var got Article
		require.NoError(t, store.Read(ctx, "1", &got))
		assert.Equal(t, first, got)

		require.NoError(t, store.Read(ctx, "2", &got))
		assert.Equal(t, second, got)
	})

	t.Run("CreateConflict", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Create(ctx, Article{ID: "1", Title: "One"}))

		err := store.Create(ctx, Article{ID: "2", Title: "Two"}, Article{ID: "1", Title: "Again"})
		require.ErrorIs(t, err, storage.ErrAlreadyExists)

		exists, err := store.Exists(ctx, "2", Article{})
		require.NoError(t, err)
		assert.False(t, exists, "a failed batch must not be partially written")
	})

	t.Run("CreateBadModel", func(t *testing.T) {
		store := newStore()
		err := store.Create(ctx, BadModel{ID: "x", Broken: func() {}})
		require.ErrorIs(t, err, storage.ErrInvalidModel)
	})

	t.Run("ReadNotFound", func(t *testing.T) {
		store := newStore()
		require.ErrorIs(t, store.Read(ctx, "1", &Article{}), storage.ErrNotFound)

		require.NoError(t, store.Create(ctx, Author{ID: "1", Name: "Jane"}))
		require.ErrorIs(t, store.Read(ctx, "1", &Article{}), storage.ErrNotFound,
			"records of another model must not be visible")
	})

	t.Run("ReadWithNilPointer", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Create(ctx, Article{ID: "1"}))

		var a *Article
		require.ErrorIs(t, store.Read(ctx, "1", a), storage.ErrNilModel)
	})

	t.Run("Upsert", func(t *testing.T) {
		store := newStore()
		post := Article{ID: "1", Title: "Draft", Status: StatusDraft}
		require.NoError(t, store.Create(ctx, post))

		post.Status = StatusPublished
		other := Article{ID: "2", Title: "New"}
		require.NoError(t, store.Upsert(ctx, post, other))

		var got Article
		require.NoError(t, store.Read(ctx, "1", &got))
		assert.Equal(t, post, got)
		require.NoError(t, store.Read(ctx, "2", &got))
		assert.Equal(t, other, got)
	})

	t.Run("UpsertBadModel", func(t *testing.T) {
		store := newStore()
		err := store.Upsert(ctx, BadModel{ID: "x", Broken: func() {}})
		require.ErrorIs(t, err, storage.ErrInvalidModel)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Create(ctx, Article{ID: "4", Title: "Doomed"}))

		exists, err := store.Exists(ctx, "4", Article{})
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, store.Delete(ctx, Article{ID: "4"}))

		exists, err = store.Exists(ctx, "4", Article{})
		require.NoError(t, err)
		assert.False(t, exists)

		require.ErrorIs(t, store.Delete(ctx, Article{ID: "4"}), storage.ErrNotFound)
	})

	t.Run("ListErrorCases", func(t *testing.T) {
		store := newStore()
		out := []Article{}

		tests := []struct {
			name    string
			models  any
			filter  storage.Model
			wantErr error
		}{
			{"Ok", &out, Article{}, nil},
			{"Not a slice", Article{}, Article{}, storage.ErrSliceRequired},
			{"Not a pointer", out, Article{}, storage.ErrSliceRequired},
			{"Mismatched type", &out, Author{}, storage.ErrTypeMismatch},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := store.List(ctx, tt.models, tt.filter)
				if tt.wantErr == nil {
					require.NoError(t, err)
					return
				}
				require.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("List", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Create(ctx,
			Article{"3", "Tailwind", StatusDraft, nil},
			Article{"1", "Next.js", StatusPublished, nil},
			Article{"2", "TypeScript", StatusPublished, nil},
		))

		actual := []Article{}
		require.NoError(t, store.List(ctx, &actual, Article{}))

		assert.Equal(t, []Article{
			{"1", "Next.js", StatusPublished, nil},
			{"2", "TypeScript", StatusPublished, nil},
			{"3", "Tailwind", StatusDraft, nil},
		}, actual)
	})

	t.Run("ListFilter", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Create(ctx,
			Article{"1", "Next.js", StatusPublished, nil},
			Article{"2", "TypeScript", StatusPublished, nil},
			Article{"3", "Tailwind", StatusDraft, nil},
			Article{"4", "Server Components", StatusPublished, nil},
			Article{"5", "State Management", StatusDraft, nil},
		))

		actual := []Article{}
		require.NoError(t, store.List(ctx, &actual, Article{Status: StatusDraft}))

		assert.Equal(t, []Article{
			{"3", "Tailwind", StatusDraft, nil},
			{"5", "State Management", StatusDraft, nil},
		}, actual)
	})

	t.Run("ListFilterZero", func(t *testing.T) {
		store := newStore()
		require.NoError(t, store.Create(ctx,
			Article{"1", "Next.js", StatusPublished, pint(4)},
			Article{"2", "TypeScript", StatusPublished, pint(0)},
			Article{"3", "Tailwind", StatusDraft, nil},
			Article{"4", "Server Components", StatusPublished, pint(0)},
		))

		actual := []Article{}
		require.NoError(t, store.List(ctx, &actual, Article{Comments: pint(0)}))

		assert.Equal(t, []Article{
			{"2", "TypeScript", StatusPublished, pint(0)},
			{"4", "Server Components", StatusPublished, pint(0)},
		}, actual)
	})

	t.Run("Exists", func(t *testing.T) {
		store := newStore()
		exists, err := store.Exists(ctx, "3", Article{})
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, store.Create(ctx, &Article{ID: "3", Title: "Tailwind"}))

		exists, err = store.Exists(ctx, "3", &Article{})
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("KV", func(t *testing.T) {
		kv := storage.NewKV(newStore())

		_, ok, err := kv.Get(ctx, "user")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, kv.Set(ctx, "user", `{"id":"2"}`))
		require.NoError(t, kv.Set(ctx, "user", `not json at all`))

		v, ok, err := kv.Get(ctx, "user")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "not json at all", v, "values are stored verbatim")

		require.NoError(t, kv.Remove(ctx, "user"))
		require.NoError(t, kv.Remove(ctx, "user"), "removing a missing key is a no-op")

		_, ok, err = kv.Get(ctx, "user")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
