package nullability

import "errors"

// ConfigurationError reports a spec that cannot be evaluated at all. It is a
// caller defect and is never folded into an Invalid verdict.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "nullability: " + e.Reason }

func newConfigurationError(reason string) error { return &ConfigurationError{Reason: reason} }

// FieldResolutionError reports a declared field that does not exist on the
// record's type.
type FieldResolutionError struct {
	Field      string
	RecordType string
}

func (e *FieldResolutionError) Error() string {
	if e.RecordType == "" {
		return "nullability: could not find field: " + e.Field
	}
	return "nullability: could not find field: " + e.Field + " on " + e.RecordType
}

func NewFieldResolutionError(field string, recordType string) error {
	return &FieldResolutionError{Field: field, RecordType: recordType}
}

func IsConfigurationError(err error) bool {
	_, ok := errors.AsType[*ConfigurationError](err)
	return ok
}

func IsFieldResolutionError(err error) bool {
	_, ok := errors.AsType[*FieldResolutionError](err)
	return ok
}

// MissingField returns the field named by a FieldResolutionError in err's chain.
func MissingField(err error) (string, bool) {
	e, ok := errors.AsType[*FieldResolutionError](err)
	if !ok {
		return "", false
	}
	return e.Field, true
}
