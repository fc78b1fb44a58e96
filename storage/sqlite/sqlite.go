// Package sqlite provides a SQLite implementation of the storage.Store
// interface. It is the default durable backend for the dashboard: a local
// database file plays the role that browser local storage plays for a web
// client.
//
// Examples:
//
//	store, err := sqlite.New("file:dashboard.s3db", sqlite.WithPrefix("dash_"))
//
//	store, err := sqlite.New(":memory:")
//
//nolint:gosec // Reports on G202. SQL string concat used to parameterize table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/storage"

	"github.com/mattn/go-sqlite3"
)

// Option is a functional option for configuring the store.
type Option func(*store)

// WithPrefix overrides the default prefix for table names.
func WithPrefix(prefix string) Option {
	return func(s *store) {
		s.prefix = prefix
	}
}

// New opens a SQLite backed store and creates the shared table if needed.
func New(dsn string, opts ...Option) (storage.Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapPrefix(err, "sqlite: failed to open database", 0)
	}
	// In-memory databases are per connection.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	s := &store{
		db:     db,
		prefix: "dashboard_",
		tables: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureDefaultTable(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(dsn string, opts ...Option) storage.Store {
	s, err := New(dsn, opts...)
	if err != nil {
		panic(err.Error())
	}
	return s
}

type store struct {
	db     *sql.DB
	prefix string

	mu     sync.RWMutex
	tables map[string]bool
}

// From storage.ModelInitializer. Sets up a dedicated table for the model.
func (s *store) InitModel(ctx context.Context, model storage.Model) error {
	name := storage.Name(model)
	if err := s.ensureTable(ctx, name); err != nil {
		return err
	}
	s.mu.Lock()
	s.tables[name] = true
	s.mu.Unlock()
	return nil
}

func (s *store) Create(ctx context.Context, models ...storage.Model) error {
	return s.insert(ctx, false, models...)
}

func (s *store) Upsert(ctx context.Context, models ...storage.Model) error {
	return s.insert(ctx, true, models...)
}

func (s *store) Read(ctx context.Context, id string, model storage.Model) error {
	if err := storage.ValidateReceiver(model); err != nil {
		return err
	}

	where, args := s.keyClause(model, id)
	row := s.db.QueryRowContext(ctx, "SELECT value FROM "+s.tableName(model)+" WHERE "+where, args...)

	var value []byte
	if err := row.Scan(&value); err != nil {
		return translateError(err)
	}
	if err := json.Unmarshal(value, model); err != nil {
		return errors.Mark(storage.ErrInvalidModel, 0).Append(err.Error())
	}
	return nil
}

func (s *store) Delete(ctx context.Context, model storage.Model) error {
	where, args := s.keyClause(model, model.PK())
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.tableName(model)+" WHERE "+where, args...)
	if err != nil {
		return translateError(err)
	}
	if n, err := res.RowsAffected(); n == 0 || err != nil {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	return nil
}

func (s *store) List(ctx context.Context, models any, filter storage.Model) error {
	sliceVal, err := storage.ValidateListTarget(models, filter)
	if err != nil {
		return err
	}

	query, args := s.buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	return storage.ScanJSONRows(rows, sliceVal)
}

func (s *store) Exists(ctx context.Context, id string, model storage.Model) (bool, error) {
	where, args := s.keyClause(model, id)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.tableName(model)+" WHERE "+where, args...).Scan(&count)
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) isDedicated(model storage.Model) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[storage.Name(model)]
}

func (s *store) tableName(model storage.Model) string {
	if s.isDedicated(model) {
		return s.prefix + storage.Name(model)
	}
	return s.prefix + "default"
}

func (s *store) keyClause(model storage.Model, id string) (string, []any) {
	if s.isDedicated(model) {
		return "id = ?", []any{id}
	}
	return "id = ? AND entity_type = ?", []any{id, storage.Name(model)}
}

func (s *store) insert(ctx context.Context, upsert bool, models ...storage.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	for _, model := range models {
		value, err := json.Marshal(model)
		if err != nil {
			return errors.Mark(storage.ErrInvalidModel, 0).Append(err.Error())
		}

		var query string
		var args []any
		if s.isDedicated(model) {
			query = `INSERT INTO ` + s.tableName(model) + ` (id, value, created_at, updated_at)
				VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
			if upsert {
				query += ` ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
			}
			args = []any{model.PK(), value}
		} else {
			query = `INSERT INTO ` + s.tableName(model) + ` (id, entity_type, value, created_at, updated_at)
				VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
			if upsert {
				query += ` ON CONFLICT(id, entity_type) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
			}
			args = []any{model.PK(), storage.Name(model), value}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translateError(err)
		}
	}

	return translateError(tx.Commit())
}

func (s *store) ensureDefaultTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.prefix+`default (
		id TEXT,
		entity_type TEXT,
		value BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id, entity_type)
	);`)
	if err != nil {
		return errors.Errorf("sqlite: failed to create default table: %w", err)
	}
	return nil
}

func (s *store) ensureTable(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.prefix+name+` (
		id TEXT PRIMARY KEY,
		value BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return errors.Errorf("sqlite: failed to create table [%s]: %w", name, err)
	}
	return nil
}

func (s *store) buildListQuery(filter storage.Model) (string, []any) {
	var where []string
	var args []any

	if !s.isDedicated(filter) {
		where = append(where, "entity_type = ?")
		args = append(args, storage.Name(filter))
	}

	keys, values := storage.FilterFields(filter)
	for i, key := range keys {
		where = append(where, "json_extract(value, '$."+key+"') = ?")
		args = append(args, values[i])
	}

	query := "SELECT value FROM " + s.tableName(filter)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY id", args
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code {
		case sqlite3.ErrNotFound:
			return errors.Mark(storage.ErrNotFound, 0)
		case sqlite3.ErrConstraint:
			return errors.Mark(storage.ErrAlreadyExists, 0)
		}
	}
	return errors.MaybeWrap(err, 0)
}
