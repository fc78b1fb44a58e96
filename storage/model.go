package storage

import (
	"reflect"
	"strings"
	"sync"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	pluralize "github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

var (
	pluralizer = pluralize.NewClient()

	modelNamesMu sync.Mutex
	modelNames   = map[reflect.Type]string{}
)

// Model defines the interface for records which want to be persisted to a
// storage engine.
type Model interface {
	// PK returns the primary key that the record is stored under.
	PK() string
}

// Namer allows Models to override how the table-name is determined.
type Namer interface {
	Name() string
}

// Name returns a pluralized, snake cased version of the model's type name,
// e.g. BlogPost becomes blog_posts, unless the model implements Namer.
func Name(m any) string {
	if n, ok := m.(Namer); ok {
		return n.Name()
	}
	t := reflect.TypeOf(m)
	if t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}

	modelNamesMu.Lock()
	defer modelNamesMu.Unlock()
	if n, ok := modelNames[t]; ok {
		return n
	}
	n := pluralizer.Plural(strcase.ToSnake(t.Name()))
	modelNames[t] = n
	return n
}

// ValidateReceiver returns an error if the model is nil or uninitialized.
func ValidateReceiver(model Model) error {
	if model == nil || (reflect.ValueOf(model).Kind() == reflect.Ptr && reflect.ValueOf(model).IsNil()) {
		return errors.Mark(ErrNilModel, 0)
	}
	return nil
}

// ValidateListTarget checks that models is a pointer to a slice whose element
// type matches filter, returning the slice value to append to.
func ValidateListTarget(models any, filter Model) (reflect.Value, error) {
	modelsVal := reflect.ValueOf(models)
	if modelsVal.Kind() != reflect.Ptr || modelsVal.Elem().Kind() != reflect.Slice {
		return reflect.Value{}, errors.Mark(ErrSliceRequired, 0)
	}
	sliceVal := modelsVal.Elem()
	if sliceVal.Type().Elem() != reflect.TypeOf(filter) {
		return reflect.Value{}, errors.Mark(ErrTypeMismatch, 0)
	}
	return sliceVal, nil
}

// FilterFields returns the JSON keys and values of the fields of filter that
// should constrain a List call: non-nil pointers and non-zero values. Pointer
// values are dereferenced.
func FilterFields(filter Model) ([]string, []any) {
	v := reflect.ValueOf(filter)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	var names []string
	var values []any
	for i := range v.NumField() {
		field := v.Field(i)
		if !v.Type().Field(i).IsExported() {
			continue
		}
		if field.Kind() == reflect.Ptr || field.Kind() == reflect.Interface {
			if field.IsNil() {
				continue
			}
		} else if field.IsZero() {
			continue
		}
		names = append(names, jsonKey(v.Type().Field(i)))
		values = append(values, reflect.Indirect(field).Interface())
	}
	return names, values
}

func jsonKey(f reflect.StructField) string {
	tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if tag == "" || tag == "-" {
		return f.Name
	}
	return tag
}
