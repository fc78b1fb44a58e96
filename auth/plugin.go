// Package auth exposes the signed-in user to the rest of the dashboard. It
// combines a session store, persisted through the storage plugin, with a
// gateway to the backend login endpoint.
//
// Register the plugin with the app; the persisted session is restored while
// the app initializes, so views never observe the loading state afterwards:
//
//	app := dashboard.New(
//		dashboard.WithPlugin(storage.Plugin(store)),
//		dashboard.WithPlugin(auth.Plugin()),
//	)
//	if err := app.Init(); err != nil { ... }
//	p := app.Registry().Get(auth.PluginName).(*auth.AuthPlugin).Provider()
package auth

import (
	"context"
	"net/http"

	dashboard "github.com/danieldean2000/oscorm-dashboard"
	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/eventbus"
	"github.com/danieldean2000/oscorm-dashboard/gateway"
	"github.com/danieldean2000/oscorm-dashboard/logging"
	"github.com/danieldean2000/oscorm-dashboard/session"
	"github.com/danieldean2000/oscorm-dashboard/storage"
)

// Constant name for identifying the auth plugin.
const PluginName = "auth"

// AuthOption configures the AuthPlugin.
type AuthOption func(*AuthPlugin)

// WithLoginURL overrides auth.loginUrl.
func WithLoginURL(url string) AuthOption {
	return func(p *AuthPlugin) {
		p.loginURL = url
	}
}

// WithSessionKey overrides session.key.
func WithSessionKey(key string) AuthOption {
	return func(p *AuthPlugin) {
		p.sessionKey = key
	}
}

// WithHTTPClient sets the client used to reach the login endpoint.
func WithHTTPClient(hc *http.Client) AuthOption {
	return func(p *AuthPlugin) {
		p.gatewayOpts = append(p.gatewayOpts, gateway.WithHTTPClient(hc))
	}
}

// Plugin returns an AuthPlugin. Settings not given as options are read from
// the auth.* and session.* keys during Init.
func Plugin(opts ...AuthOption) *AuthPlugin {
	p := &AuthPlugin{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthPlugin owns the Provider for the lifetime of the app.
type AuthPlugin struct {
	loginURL    string
	sessionKey  string
	gatewayOpts []gateway.Option

	provider *Provider
}

// From dashboard.Plugin.
func (p *AuthPlugin) Name() string {
	return PluginName
}

// From dashboard.DependentPlugin.
func (p *AuthPlugin) Deps() []string {
	return []string{storage.PluginName}
}

// From dashboard.OptionalDependentPlugin.
func (p *AuthPlugin) OptDeps() []string {
	return []string{eventbus.PluginName}
}

// From dashboard.InitializablePlugin. Builds the session store and gateway and
// restores the persisted session.
func (p *AuthPlugin) Init(ctx context.Context, r *dashboard.Registry) error {
	if p.loginURL == "" {
		p.loginURL = dashboard.ConfigString("auth.loginUrl")
	}
	if p.loginURL == "" {
		return errors.New("auth: auth.loginUrl is not configured")
	}
	if p.sessionKey == "" {
		p.sessionKey = dashboard.ConfigString("session.key")
	}
	if p.sessionKey == "" {
		p.sessionKey = session.DefaultKey
	}
	gatewayOpts := append([]gateway.Option{
		gateway.WithTimeout(dashboard.ConfigDuration("auth.timeout")),
		gateway.WithRequestIDs(!dashboard.ConfigExists("auth.requestIds") || dashboard.ConfigBool("auth.requestIds")),
		gateway.WithCookieJar(),
	}, p.gatewayOpts...)

	sp, ok := r.Get(storage.PluginName).(*storage.StoragePlugin)
	if !ok {
		return errors.New("auth: storage plugin has unexpected type")
	}
	if err := sp.InitModel(ctx, storage.Entry{}); err != nil {
		return errors.WrapPrefix(err, "auth: failed to prepare session storage", 0)
	}

	sessionOpts := []session.Option{session.WithKey(p.sessionKey)}
	if bp, ok := r.Get(eventbus.PluginName).(*eventbus.EventBusPlugin); ok {
		sessionOpts = append(sessionOpts, session.WithEventBus(bp.EventBus))
	}

	sessions := session.New(sp.KV(), sessionOpts...)
	p.provider = NewProvider(sessions, gateway.New(p.loginURL, sessions, gatewayOpts...))

	logging.Infow(ctx, "auth: restoring session", "key", p.sessionKey, "login_url", p.loginURL)
	sessions.Hydrate(ctx)
	return nil
}

// Provider returns the provider built during Init, or nil before Init.
func (p *AuthPlugin) Provider() *Provider {
	return p.provider
}
