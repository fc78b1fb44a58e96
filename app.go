// Package dashboard wires the blog dashboard's components together. An App
// owns a plugin registry, a base context carrying the logger and the global
// configuration.
//
// Example:
//
//	app := dashboard.New(
//		dashboard.WithPlugin(storage.Plugin(store)),
//		dashboard.WithPlugin(auth.Plugin()),
//	)
//	if err := app.Init(); err != nil {
//		log.Fatal(err)
//	}
//	defer app.Shutdown(context.Background())
package dashboard

import (
	"context"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/logging"
)

// Option customizes an App.
type Option func(*App)

// WithPlugin registers a plugin with the app's registry.
func WithPlugin(p Plugin) Option {
	return func(a *App) {
		a.plugins.Register(p)
	}
}

// WithLogger overrides the logger built from logging.format.
func WithLogger(l logging.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithContext sets the base context plugins are initialized with.
func WithContext(ctx context.Context) Option {
	return func(a *App) {
		a.ctx = ctx
	}
}

// App is the root of a dashboard process.
type App struct {
	ctx     context.Context
	logger  logging.Logger
	plugins *Registry
}

// New returns an App. Registered config defaults are applied first so options
// and plugins can read them.
func New(opts ...Option) *App {
	if err := ApplyConfigDefaults(); err != nil {
		panic("error applying config defaults: " + err.Error())
	}

	a := &App{plugins: &Registry{}}
	for _, opt := range opts {
		opt(a)
	}
	if a.ctx == nil {
		a.ctx = context.Background()
	}
	if a.logger == nil {
		a.logger = logging.New(ConfigString("logging.format"))
	}
	a.ctx = logging.With(a.ctx, a.logger)
	return a
}

// Context returns the app's base context, which carries its logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Registry returns the plugin registry.
func (a *App) Registry() *Registry {
	return a.plugins
}

// Init reports configuration warnings, rejects invalid configuration values
// and initializes plugins in dependency order.
func (a *App) Init() error {
	if warnings := ValidateConfig(); len(warnings) > 0 {
		logging.Warn(a.ctx, FormatValidationWarnings(warnings))
	}
	if errs := ValidateConfigValues(); len(errs) > 0 {
		return errors.New(FormatValidationErrors(errs))
	}
	if err := a.plugins.Init(a.ctx); err != nil {
		return errors.WrapPrefix(err, "dashboard: init failed", 0)
	}
	logging.Debugw(a.ctx, "dashboard: initialized", "name", ConfigString("name"))
	return nil
}

// Shutdown releases plugin resources in reverse initialization order.
func (a *App) Shutdown(ctx context.Context) error {
	return a.plugins.Shutdown(logging.With(ctx, a.logger))
}
