// Package posts holds blog post records and the role-based view over them:
// admins see every post, everyone else only sees their own.
package posts

import (
	"strconv"

	"github.com/danieldean2000/oscorm-dashboard/identity"
)

// Status is the publication state of a post.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

// Owned is implemented by records that belong to an author.
type Owned interface {
	OwnerID() string
}

// Post is a blog post as listed on the dashboard.
type Post struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	AuthorID string `json:"authorId"`
	Views    int    `json:"views"`
	Status   Status `json:"status"`
	Date     string `json:"date"`
}

// OwnerID implements Owned.
func (p Post) OwnerID() string {
	return p.AuthorID
}

// PK implements storage.Model.
func (p Post) PK() string {
	return strconv.Itoa(p.ID)
}

// Visible returns the records role may see. Admins get every record, other
// roles the records owned by id. Relative order is preserved and the input is
// never modified.
func Visible[T Owned](records []T, role identity.Role, id string) []T {
	if role.IsAdmin() {
		out := make([]T, len(records))
		copy(out, records)
		return out
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.OwnerID() == id {
			out = append(out, r)
		}
	}
	return out
}

// ForIdentity is Visible for a signed-in identity.
func ForIdentity[T Owned](records []T, who identity.Identity) []T {
	return Visible(records, who.Role, who.ID)
}

// Stats summarizes a set of posts.
type Stats struct {
	Total     int
	Published int
	Drafts    int
	Views     int
}

// Summarize counts posts by status and totals their views.
func Summarize(records []Post) Stats {
	var s Stats
	for _, p := range records {
		s.Total++
		s.Views += p.Views
		switch p.Status {
		case StatusPublished:
			s.Published++
		case StatusDraft:
			s.Drafts++
		}
	}
	return s
}

// Recent returns up to the first n records.
func Recent[T any](records []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(records) < n {
		n = len(records)
	}
	return records[:n:n]
}
