// Package validation installs nullability specs as go-playground/validator
// struct-level rules, so that a single Validate.Struct call reports both
// field tags and cross-field nullability violations.
package validation

import (
	"errors"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jacksonlee411/nullguard/pkg/nullability"
	"github.com/jacksonlee411/nullguard/pkg/nullability/fields"
)

const (
	TagAllOrNone       = "all_or_none"
	TagExactlyOne      = "exactly_one"
	TagAtMostN         = "at_most_n"
	TagFieldResolution = "nullability_field"
)

var ErrNilValidator = errors.New("validation: validator is nil")

// Tag returns the validator tag a violated spec is reported under.
func Tag(p nullability.Policy) string {
	switch p {
	case nullability.PolicyAllOrNone:
		return TagAllOrNone
	case nullability.PolicyExactlyOne:
		return TagExactlyOne
	case nullability.PolicyAtMostN:
		return TagAtMostN
	default:
		return ""
	}
}

// Register attaches specs to the struct type of sample. Specs are checked and
// bound to the type right away; any configuration or field name problem is
// returned here instead of surfacing during validation.
//
// Calling Register again for the same type replaces the earlier specs, so
// every constraint of a type goes into one call.
func Register(v *validator.Validate, sample any, specs ...nullability.Spec) error {
	if v == nil {
		return ErrNilValidator
	}
	t := reflect.TypeOf(sample)
	if t == nil {
		return errors.New("validation: sample is nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return errors.New("validation: sample must be a struct, got " + t.String())
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	r := fields.NewStructResolver(fields.Options{})
	if err := r.Bind(t, specs...); err != nil {
		return err
	}

	bound := append([]nullability.Spec(nil), specs...)
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		rec := sl.Current()
		for _, s := range bound {
			report(sl, rec, s, r)
		}
	}, reflect.Zero(t).Interface())
	return nil
}

func report(sl validator.StructLevel, rec reflect.Value, s nullability.Spec, r *fields.StructResolver) {
	names := s.FieldNames()
	verdict, err := nullability.Evaluate(s, rec.Interface(), r)
	if err != nil {
		field := names[0]
		if missing, ok := nullability.MissingField(err); ok {
			field = missing
		}
		sl.ReportError(nil, field, field, TagFieldResolution, "")
		return
	}
	if verdict == nullability.Valid {
		return
	}
	param := ""
	if s.Policy() == nullability.PolicyAtMostN {
		param = strconv.Itoa(s.MaxNotNull())
	}
	sl.ReportError(nil, names[0], names[0], Tag(s.Policy()), param)
}
