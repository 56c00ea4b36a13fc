// Package nullability evaluates cross-field nullability constraints.
//
// A Spec names two or more fields of a record and one policy:
//
//   - ALL_OR_NONE: every field is set, or none is.
//   - EXACTLY_ONE: exactly one field is set.
//   - AT_MOST_N: no more than MaxNotNull fields are set (default 1).
//
// Evaluation is a pure scan in declaration order that stops as soon as the
// verdict is known. A nil record is always Valid. Misconfigured specs and
// fields missing from the record's type are returned as errors
// (*ConfigurationError, *FieldResolutionError), never as Invalid.
//
// How a field is classified as set is up to the Resolver; see the fields
// subpackage.
package nullability
