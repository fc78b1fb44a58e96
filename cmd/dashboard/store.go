package main

import (
	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/storage"
	"github.com/danieldean2000/oscorm-dashboard/storage/memstore"
	"github.com/danieldean2000/oscorm-dashboard/storage/postgres"
	"github.com/danieldean2000/oscorm-dashboard/storage/sqlite"
)

// openStore returns the store named by the storage.driver key.
func openStore(driver, dsn, prefix string) (storage.Store, error) {
	switch driver {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		return sqlite.New(dsn, sqlite.WithPrefix(prefix))
	case "postgres":
		return postgres.New(dsn, postgres.WithPrefix(prefix))
	default:
		return nil, errors.Errorf("unknown storage driver %q", driver)
	}
}
