package storage

import (
	"context"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"google.golang.org/grpc/codes"
)

var (
	// Returned when a record does not exist.
	ErrNotFound = errors.NewC("record not found", codes.NotFound)

	// Returned when a record conflicts with an existing key.
	ErrAlreadyExists = errors.NewC("primary key already exists", codes.AlreadyExists)

	// Returned when List is called with a non-slice.
	ErrSliceRequired = errors.NewC("pointer slice required", codes.InvalidArgument)

	// Returned when a store can not marshal/unmarshal a model.
	ErrInvalidModel = errors.NewC("invalid model", codes.InvalidArgument)

	// Returned when List is called with a filter and slice of mismatching types.
	ErrTypeMismatch = errors.NewC("type mismatch", codes.InvalidArgument)

	// Returned when a store is passed an uninitialized pointer.
	ErrNilModel = errors.NewC("uninitialized pointer passed as model", codes.InvalidArgument)
)

// Store is the persistence surface shared by every backend. Records are
// serialized as JSON and addressed by the model's name and primary key.
type Store interface {
	// Create multiple records. Fails with ErrAlreadyExists if any key is taken,
	// in which case nothing is written.
	Create(ctx context.Context, models ...Model) error

	// Read the record with the given id into model.
	Read(ctx context.Context, id string, model Model) error

	// Upsert inserts or replaces multiple records atomically.
	Upsert(ctx context.Context, models ...Model) error

	// Delete a record. Only the primary key needs to be populated. Returns
	// ErrNotFound if there was nothing to delete.
	Delete(ctx context.Context, model Model) error

	// List populates the slice of models with records that have fields which
	// match the fields of filter. Zero-value fields will be ignored, unless the
	// field is a pointer. Results are ordered by primary key.
	List(ctx context.Context, models any, filter Model) error

	// Exists returns true if a record with the given id exists.
	Exists(ctx context.Context, id string, model Model) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// ModelInitializer is implemented by stores that support per-model setup,
// such as a dedicated table in a SQL database. Stores still work without
// initialization, storing data in a shared table.
type ModelInitializer interface {
	InitModel(ctx context.Context, model Model) error
}
