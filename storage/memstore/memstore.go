// Package memstore implements storage.Store in a purely in-memory manner. It
// is used in tests and when the dashboard runs with `storage.driver: memory`,
// in which case sessions do not survive a restart.
package memstore

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/storage"
)

// New returns a store that provides transient, in-memory storage.
func New() storage.Store {
	return &store{
		data: map[string]map[string][]byte{},
	}
}

type store struct {
	// data[modelName][pk] = JSON
	data map[string]map[string][]byte
	mu   sync.RWMutex
}

func (s *store) Create(ctx context.Context, models ...storage.Model) error {
	encoded, err := encodeAll(models)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range models {
		if _, ok := s.data[storage.Name(m)][m.PK()]; ok {
			return errors.Mark(storage.ErrAlreadyExists, 0).Append(m.PK())
		}
	}
	s.put(models, encoded)
	return nil
}

func (s *store) Read(ctx context.Context, id string, model storage.Model) error {
	if err := storage.ValidateReceiver(model); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id, model)
}

func (s *store) read(id string, model storage.Model) error {
	b, ok := s.data[storage.Name(model)][id]
	if !ok {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	if err := json.Unmarshal(b, model); err != nil {
		return errors.Mark(storage.ErrInvalidModel, 0).Append(err.Error())
	}
	return nil
}

func (s *store) Upsert(ctx context.Context, models ...storage.Model) error {
	encoded, err := encodeAll(models)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(models, encoded)
	return nil
}

func (s *store) Delete(ctx context.Context, model storage.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := storage.Name(model)
	if _, ok := s.data[n][model.PK()]; !ok {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	delete(s.data[n], model.PK())
	return nil
}

// List always performs a full scan of all items of the filter's type.
func (s *store) List(ctx context.Context, models any, filter storage.Model) error {
	sliceVal, err := storage.ValidateListTarget(models, filter)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.data[storage.Name(filter)]
	pks := make([]string, 0, len(table))
	for pk := range table {
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	elemType := sliceVal.Type().Elem()
	filterValue := reflect.ValueOf(filter)
	for _, pk := range pks {
		elem := reflect.New(elemType)
		if err := s.read(pk, elem.Interface().(storage.Model)); err != nil {
			return err
		}
		if matches(elem.Elem(), filterValue) {
			sliceVal.Set(reflect.Append(sliceVal, elem.Elem()))
		}
	}
	return nil
}

func (s *store) Exists(ctx context.Context, id string, model storage.Model) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[storage.Name(model)][id]
	return ok, nil
}

func (s *store) Close() error {
	return nil
}

func (s *store) put(models []storage.Model, encoded [][]byte) {
	for i, m := range models {
		n := storage.Name(m)
		if s.data[n] == nil {
			s.data[n] = map[string][]byte{}
		}
		s.data[n][m.PK()] = encoded[i]
	}
}

func encodeAll(models []storage.Model) ([][]byte, error) {
	out := make([][]byte, len(models))
	for i, m := range models {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, errors.Mark(storage.ErrInvalidModel, 0).Append(err.Error())
		}
		out[i] = b
	}
	return out, nil
}

// matches reports whether every non-zero field of filter equals the
// corresponding field of v.
func matches(v, filter reflect.Value) bool {
	for i := range filter.NumField() {
		f := filter.Field(i)
		if !filter.Type().Field(i).IsExported() || !shouldFilter(f) {
			continue
		}
		if !reflect.DeepEqual(v.Field(i).Interface(), f.Interface()) {
			return false
		}
	}
	return true
}

// shouldFilter returns true for non-zero values and non-nil pointers.
func shouldFilter(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return !v.IsNil()
	default:
		return !v.IsZero()
	}
}
