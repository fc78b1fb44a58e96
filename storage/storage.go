// Package storage contains a small persistence interface used by the session
// layer and the dashboard's record listings, plus a key/value view over it
// that mirrors browser local storage.
//
// Stores provide create, read, upsert, delete, list and exists operations.
// Models are represented as structs and must have a `PK() string` method.
//
// Examples:
//
//	app := dashboard.New(dashboard.WithPlugin(storage.Plugin(sqlite.New("file:dash.s3db"))))
//
//	func (p *MyPlugin) Init(ctx context.Context, r *dashboard.Registry) error {
//	  p.store = r.Get(storage.PluginName).(*storage.StoragePlugin)
//	}
package storage

import (
	"context"

	"github.com/danieldean2000/oscorm-dashboard/logging"
)

// PluginName can be used to query the storage plugin.
const PluginName = "storage"

// Plugin wraps a storage implementation for registration.
func Plugin(impl Store) *StoragePlugin {
	return &StoragePlugin{Store: impl}
}

// StoragePlugin exposes a Store to other plugins.
type StoragePlugin struct {
	Store
}

// From dashboard.Plugin.
func (p *StoragePlugin) Name() string {
	return PluginName
}

// From dashboard.ShutdownPlugin.
func (p *StoragePlugin) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "storage: closing store")
	return p.Store.Close()
}

// InitModel can be called by a plugin or application to perform per model
// initialization. Stores that do not implement ModelInitializer still
// function correctly, but store data in a shared table.
func (p *StoragePlugin) InitModel(ctx context.Context, m Model) error {
	if i, ok := p.Store.(ModelInitializer); ok {
		return i.InitModel(ctx, m)
	}
	return nil
}

// KV returns a key/value view over the plugin's store.
func (p *StoragePlugin) KV() *KV {
	return NewKV(p.Store)
}
