package dashboard

import (
	"context"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/logging"
)

// The base plugin interface.
type Plugin interface {
	// Name of the plugin, used for querying and dependency resolution.
	Name() string
}

// Implemented if plugin depends on other plugins.
type DependentPlugin interface {
	// Deps returns the names for plugins which this plugin depends on.
	Deps() []string
}

// Implemented if plugin has optional dependencies, which should be initialized
// before the plugin, but are not required.
type OptionalDependentPlugin interface {
	// OptDeps returns the names for plugins which this plugin optionally depends on.
	OptDeps() []string
}

// Implemented if the plugin needs to be initialized outside construction.
type InitializablePlugin interface {
	// Init the plugin. Will be called in dependency order.
	Init(ctx context.Context, r *Registry) error
}

// Implemented if the plugin holds resources that must be released.
type ShutdownPlugin interface {
	// Shutdown is called in reverse initialization order.
	Shutdown(ctx context.Context) error
}

// Registry manages plugins and their dependencies.
type Registry struct {
	plugins map[string]Plugin
	keys    []string
	order   []string // Initialization order, used for shutdown.
}

// Get a plugin.
func (r *Registry) Get(key string) Plugin {
	if p, ok := r.plugins[key]; ok {
		return p
	}
	return nil
}

// Register a plugin. Registering a second plugin with the same name replaces
// the first.
func (r *Registry) Register(plugin Plugin) {
	if r.plugins == nil {
		r.plugins = map[string]Plugin{}
	}
	n := plugin.Name()
	if _, exists := r.plugins[n]; !exists {
		r.keys = append(r.keys, n)
	}
	r.plugins[n] = plugin
}

// Init all plugins in the Registry. Plugins will be visited in dependency order.
func (r *Registry) Init(ctx context.Context) error {
	if r.plugins == nil {
		return nil
	}

	// Validate dependency graph first.
	visiting := make(map[string]bool)
	for _, key := range r.keys {
		if err := r.validateDeps(key, visiting, true); err != nil {
			return err
		}
	}

	initialized := make(map[string]bool)
	for _, key := range r.keys {
		if err := r.initPlugin(ctx, key, initialized); err != nil {
			return err
		}
	}

	return nil
}

// Shutdown plugins in reverse initialization order. All plugins are visited
// even if one fails, the errors are joined.
func (r *Registry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		key := r.order[i]
		if p, ok := r.plugins[key].(ShutdownPlugin); ok {
			logging.Debugw(ctx, "plugin: shutting down", "plugin", key)
			if err := p.Shutdown(ctx); err != nil {
				errs = append(errs, errors.WrapPrefix(err, "plugin: failed to shut down '"+key+"'", 0))
			}
		}
	}
	r.order = nil
	return errors.Join(errs...)
}

// Walks the plugin dependency graph and ensures that deps are registered and that
// there are no cycles.
func (r *Registry) validateDeps(key string, visiting map[string]bool, required bool) error {
	if visiting[key] {
		return errors.Errorf("plugin: dependency cycle detected involving '%v'", key)
	}

	plugin, ok := r.plugins[key]
	if !ok {
		if !required {
			return nil
		}
		return errors.Errorf("plugin: missing dependency, '%v' not registered", key)
	}

	visiting[key] = true
	defer delete(visiting, key)

	for _, dep := range deps(plugin) {
		if err := r.validateDeps(dep, visiting, true); err != nil {
			return err
		}
	}
	for _, dep := range optDeps(plugin) {
		if err := r.validateDeps(dep, visiting, false); err != nil {
			return err
		}
	}
	return nil
}

// Ensures plugins are initialized in dependency order. Registered optional
// dependencies are initialized first as well.
func (r *Registry) initPlugin(ctx context.Context, key string, initialized map[string]bool) error {
	if initialized[key] {
		return nil
	}

	plugin, ok := r.plugins[key]
	if !ok {
		return errors.Errorf("plugin '%v' not registered", key)
	}

	for _, dep := range deps(plugin) {
		if err := r.initPlugin(ctx, dep, initialized); err != nil {
			return err
		}
	}
	for _, dep := range optDeps(plugin) {
		if _, registered := r.plugins[dep]; !registered {
			continue
		}
		if err := r.initPlugin(ctx, dep, initialized); err != nil {
			return err
		}
	}

	if p, ok := plugin.(InitializablePlugin); ok {
		logging.Debugw(ctx, "plugin: initializing", "plugin", key)
		if err := p.Init(ctx, r); err != nil {
			return errors.Errorf("plugin: failed to initialize '%v': %w", key, err)
		}
	}

	initialized[key] = true
	r.order = append(r.order, key)
	return nil
}

func deps(p Plugin) []string {
	if d, ok := p.(DependentPlugin); ok {
		return d.Deps()
	}
	return nil
}

func optDeps(p Plugin) []string {
	if d, ok := p.(OptionalDependentPlugin); ok {
		return d.OptDeps()
	}
	return nil
}
