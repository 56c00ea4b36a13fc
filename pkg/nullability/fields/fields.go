// Package fields provides nullability.Resolver implementations for Go
// structs, decoded JSON objects and CEL-addressed nested documents.
package fields

import (
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"

	"github.com/jacksonlee411/nullguard/pkg/nullability"
)

// MissingFieldMode decides what happens when a declared field does not exist
// on the record being evaluated.
type MissingFieldMode string

const (
	MissingFieldFatal  MissingFieldMode = "fatal"
	MissingFieldAbsent MissingFieldMode = "absent"
)

func ParseMissingFieldMode(raw string) (MissingFieldMode, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch MissingFieldMode(raw) {
	case "":
		return MissingFieldFatal, nil
	case MissingFieldFatal, MissingFieldAbsent:
		return MissingFieldMode(raw), nil
	default:
		return "", errors.New("fields: invalid missing field mode (expected fatal|absent)")
	}
}

type Options struct {
	MissingField MissingFieldMode
	// TagName is the struct tag consulted for alternate field names.
	// Empty means "json"; "-" disables tag lookup.
	TagName string
}

func (o Options) missing(field string, recordType string) (nullability.Observation, error) {
	if o.MissingField == MissingFieldAbsent {
		return nullability.Absent, nil
	}
	return nullability.Absent, nullability.NewFieldResolutionError(field, recordType)
}

var valuerType = reflect.TypeFor[driver.Valuer]()

// Observe classifies a value the way every resolver in this package does:
// nil references are Absent, driver.Valuer implementations that yield nil
// (sql.NullString, pgtype.Text, ...) are Absent, everything else is Present.
func Observe(v any) nullability.Observation {
	if v == nil {
		return nullability.Absent
	}
	return observeValue(reflect.ValueOf(v))
}

func observeValue(v reflect.Value) nullability.Observation {
	if !v.IsValid() {
		return nullability.Absent
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nullability.Absent
		}
		return observeValue(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nullability.Absent
		}
	}
	if v.CanInterface() && v.Type().Implements(valuerType) {
		val, err := v.Interface().(driver.Valuer).Value()
		if err == nil && val == nil {
			return nullability.Absent
		}
	}
	return nullability.Present
}
