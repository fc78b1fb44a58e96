package storage

import (
	"database/sql"
	"encoding/json"
	"reflect"

	"github.com/danieldean2000/oscorm-dashboard/errors"
)

// ScanJSONRows decodes a single JSON column from each row and appends the
// result to sliceVal. Used by the SQL backed stores.
func ScanJSONRows(rows *sql.Rows, sliceVal reflect.Value) error {
	elemType := sliceVal.Type().Elem()
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return errors.Wrap(err, 0)
		}
		elem := reflect.New(elemType)
		if err := json.Unmarshal(value, elem.Interface()); err != nil {
			return errors.Mark(ErrInvalidModel, 0).Append(err.Error())
		}
		sliceVal.Set(reflect.Append(sliceVal, elem.Elem()))
	}
	return errors.MaybeWrap(rows.Err(), 0)
}
