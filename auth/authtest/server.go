package authtest

import (
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Server is a Backend listening on a local port.
type Server struct {
	*Backend
	srv *httptest.Server
}

// LoginURL is the full URL of the login endpoint.
func (s *Server) LoginURL() string {
	return s.srv.URL + LoginPath
}

// NewServer starts a Backend for the duration of the test. Passwords are
// hashed at the minimum bcrypt cost unless opts say otherwise.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	b, err := NewBackend(append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)...)
	if err != nil {
		t.Fatalf("authtest: %v", err)
	}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return &Server{Backend: b, srv: srv}
}
