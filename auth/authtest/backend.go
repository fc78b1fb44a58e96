// Package authtest provides an in-process implementation of the backend login
// endpoint, for tests and for running the dashboard without the real
// backend.
package authtest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/NYTimes/gziphandler"
	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/danieldean2000/oscorm-dashboard/logging"
	"golang.org/x/crypto/bcrypt"
)

// LoginPath is where the backend serves the login endpoint.
const LoginPath = "/api/auth/login"

// Mode selects how the backend answers.
type Mode int32

const (
	// Normal follows the login contract.
	Normal Mode = iota
	// HTMLErrors answers every request with an HTML error page, as a
	// misconfigured proxy would.
	HTMLErrors
	// NoMessage omits the message from refusals.
	NoMessage
)

// User is an account known to the backend.
type User struct {
	NumericID int
	Email     string
	Name      string
	Role      identity.Role
	Password  string
}

type account struct {
	user User
	hash []byte
}

// Option configures a Backend.
type Option func(*Backend)

// WithBcryptCost sets the cost used to hash passwords.
func WithBcryptCost(cost int) Option {
	return func(b *Backend) {
		b.cost = cost
	}
}

// WithUsers replaces the default accounts.
func WithUsers(users ...User) Option {
	return func(b *Backend) {
		b.seed = users
	}
}

// WithContext sets the context carrying the backend's logger.
func WithContext(ctx context.Context) Option {
	return func(b *Backend) {
		b.ctx = ctx
	}
}

// DefaultUsers are the demo accounts the backend starts with.
func DefaultUsers() []User {
	return []User{
		{NumericID: 1, Email: "admin@blog.com", Name: "Admin User", Role: identity.RoleAdmin, Password: "admin123"},
		{NumericID: 2, Email: "user@blog.com", Name: "Blog User", Role: identity.RoleStandardUser, Password: "user123"},
	}
}

// Backend is an http.Handler implementing the login endpoint.
type Backend struct {
	ctx  context.Context
	cost int
	seed []User
	cors *cors
	mode atomic.Int32

	mu       sync.RWMutex
	accounts map[string]account
	attempts atomic.Int64

	handler http.Handler
}

// NewBackend returns a Backend seeded with DefaultUsers unless WithUsers is
// given.
func NewBackend(opts ...Option) (*Backend, error) {
	b := &Backend{
		ctx:      context.Background(),
		cost:     bcrypt.DefaultCost,
		seed:     DefaultUsers(),
		accounts: map[string]account{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ctx = logging.EnsureLogger(b.ctx)
	b.ctx = logging.With(b.ctx, logging.FromContext(b.ctx).Named("fakebackend"))

	for _, u := range b.seed {
		if err := b.AddUser(u); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, b.login)
	b.handler = b.cors.wrap(gziphandler.GzipHandler(mux))
	return b, nil
}

// AddUser registers or replaces an account.
func (b *Backend) AddUser(u User) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), b.cost)
	if err != nil {
		return errors.WrapPrefix(err, "authtest: failed to hash password", 0)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[strings.ToLower(u.Email)] = account{user: u, hash: hash}
	return nil
}

// SetMode switches how later requests are answered.
func (b *Backend) SetMode(m Mode) {
	b.mode.Store(int32(m))
}

// Attempts returns how many login requests were received.
func (b *Backend) Attempts() int64 {
	return b.attempts.Load()
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.handler.ServeHTTP(w, r)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userData struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	Data    *userData `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	b.attempts.Add(1)
	ctx := logging.With(r.Context(), logging.FromContext(b.ctx).With("request_id", r.Header.Get("X-Request-Id")))

	if Mode(b.mode.Load()) == HTMLErrors {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>502 Bad Gateway</h1></body></html>"))
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		b.refuse(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.refuse(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		b.refuse(ctx, w, http.StatusBadRequest, "Email and password are required")
		return
	}

	b.mu.RLock()
	acct, ok := b.accounts[strings.ToLower(req.Email)]
	b.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		b.refuse(ctx, w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	logging.Infow(ctx, "fakebackend: login accepted", "user.id", acct.user.NumericID)
	writeJSON(ctx, w, http.StatusOK, loginResponse{
		Success: true,
		Data: &userData{
			ID:    acct.user.NumericID,
			Email: acct.user.Email,
			Name:  acct.user.Name,
			Role:  string(acct.user.Role),
		},
	})
}

func (b *Backend) refuse(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	logging.Infow(ctx, "fakebackend: login refused", "status", status, "reason", msg)
	if Mode(b.mode.Load()) == NoMessage {
		msg = ""
	}
	writeJSON(ctx, w, status, loginResponse{Message: msg})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		logging.Errorw(ctx, "fakebackend: failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
