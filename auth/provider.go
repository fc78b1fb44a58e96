package auth

import (
	"context"
	"sync/atomic"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/gateway"
	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/danieldean2000/oscorm-dashboard/session"
	"google.golang.org/grpc/codes"
)

// ErrLoginInProgress is returned when Login is called while another login is
// still waiting on the backend.
var ErrLoginInProgress = errors.NewC("auth: login already in progress", codes.Aborted)

// Provider is the surface views consume: the current user, whether the
// session is still loading, and login and logout.
type Provider struct {
	sessions *session.Store
	gateway  *gateway.Client
	inFlight atomic.Bool
}

// NewProvider bundles a session store with a gateway that commits to it.
func NewProvider(sessions *session.Store, gw *gateway.Client) *Provider {
	return &Provider{sessions: sessions, gateway: gw}
}

// User returns the signed-in identity, if any.
func (p *Provider) User() (identity.Identity, bool) {
	return p.sessions.User()
}

// IsLoading is true until the persisted session has been restored.
func (p *Provider) IsLoading() bool {
	return p.sessions.IsLoading()
}

// Ready is closed once the persisted session has been restored.
func (p *Provider) Ready() <-chan struct{} {
	return p.sessions.Ready()
}

// Login authenticates against the backend. It returns true once the user is
// signed in, false if the backend refused without explanation, a
// *gateway.RejectedError carrying the backend's message, or
// gateway.ErrBackendUnavailable.
func (p *Provider) Login(ctx context.Context, email, password string) (bool, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return false, errors.Mark(ErrLoginInProgress, 0)
	}
	defer p.inFlight.Store(false)
	return p.gateway.Login(ctx, email, password)
}

// Logout signs the user out. It never fails.
func (p *Provider) Logout(ctx context.Context) {
	p.sessions.Clear(ctx)
}

// Sessions exposes the underlying session store.
func (p *Provider) Sessions() *session.Store {
	return p.sessions
}
