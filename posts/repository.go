package posts

import (
	"context"
	"slices"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/danieldean2000/oscorm-dashboard/storage"
)

// Repository reads and writes posts through a storage.Store.
type Repository struct {
	store storage.Store
}

// NewRepository returns a Repository backed by store.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Save inserts or replaces posts.
func (r *Repository) Save(ctx context.Context, records ...Post) error {
	models := make([]storage.Model, len(records))
	for i, p := range records {
		models[i] = p
	}
	return errors.MaybeWrap(r.store.Upsert(ctx, models...), 0)
}

// All returns every post ordered by id.
func (r *Repository) All(ctx context.Context) ([]Post, error) {
	return r.list(ctx, Post{})
}

// ByAuthor returns the posts owned by authorID ordered by id.
func (r *Repository) ByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	return r.list(ctx, Post{AuthorID: authorID})
}

// VisibleTo returns the posts who may see. Non-admin lookups are pushed down
// to the store as a filter.
func (r *Repository) VisibleTo(ctx context.Context, who identity.Identity) ([]Post, error) {
	if who.Role.IsAdmin() {
		return r.All(ctx)
	}
	if who.ID == "" {
		return []Post{}, nil
	}
	records, err := r.ByAuthor(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	return ForIdentity(records, who), nil
}

func (r *Repository) list(ctx context.Context, filter Post) ([]Post, error) {
	var records []Post
	if err := r.store.List(ctx, &records, filter); err != nil {
		return nil, errors.MaybeWrap(err, 0)
	}
	// Keys are compared as strings by the store.
	slices.SortStableFunc(records, func(a, b Post) int { return a.ID - b.ID })
	return records, nil
}

// Samples returns the collection the dashboard ships with for demos and local
// development.
func Samples() []Post {
	return []Post{
		{ID: 1, Title: "Getting Started with Next.js 14", Author: "John Doe", AuthorID: "3", Views: 1234, Status: StatusPublished, Date: "2024-01-15"},
		{ID: 2, Title: "Advanced TypeScript Patterns", Author: "Jane Smith", AuthorID: "4", Views: 892, Status: StatusPublished, Date: "2024-01-14"},
		{ID: 3, Title: "Building Modern UIs with Tailwind", Author: "Mike Johnson", AuthorID: "5", Views: 567, Status: StatusDraft, Date: "2024-01-13"},
		{ID: 4, Title: "React Server Components Explained", Author: "Sarah Williams", AuthorID: "6", Views: 2341, Status: StatusPublished, Date: "2024-01-12"},
		{ID: 5, Title: "State Management Best Practices", Author: "David Brown", AuthorID: "7", Views: 678, Status: StatusPublished, Date: "2024-01-11"},
		{ID: 6, Title: "My First Blog Post", Author: "Blog User", AuthorID: "2", Views: 234, Status: StatusPublished, Date: "2024-01-10"},
		{ID: 7, Title: "Understanding React Hooks", Author: "Blog User", AuthorID: "2", Views: 456, Status: StatusPublished, Date: "2024-01-09"},
		{ID: 8, Title: "Draft: CSS Tips and Tricks", Author: "Blog User", AuthorID: "2", Views: 0, Status: StatusDraft, Date: "2024-01-08"},
	}
}
