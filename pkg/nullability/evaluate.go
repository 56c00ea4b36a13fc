package nullability

import (
	"reflect"
	"strconv"
)

type Observation uint8

const (
	Absent Observation = iota
	Present
)

func (o Observation) String() string {
	if o == Present {
		return "present"
	}
	return "absent"
}

// ObservationOf maps a boolean "is set" flag to an Observation.
func ObservationOf(set bool) Observation {
	if set {
		return Present
	}
	return Absent
}

type Verdict uint8

const (
	Invalid Verdict = iota
	Valid
)

func (v Verdict) String() string {
	if v == Valid {
		return "valid"
	}
	return "invalid"
}

// Resolver classifies one named field of a record. It must tell a null value
// (Absent) apart from a field that does not exist, which it reports with a
// *FieldResolutionError.
type Resolver interface {
	Resolve(record any, field string) (Observation, error)
}

type ResolverFunc func(record any, field string) (Observation, error)

func (f ResolverFunc) Resolve(record any, field string) (Observation, error) {
	return f(record, field)
}

// Evaluate applies spec to record. A nil record is always Valid. Fields are
// resolved lazily in declaration order, so fields after the deciding one are
// never looked up.
func Evaluate(spec Spec, record any, r Resolver) (Verdict, error) {
	if isNilRecord(record) {
		return Valid, nil
	}
	if err := spec.checkFieldCount(); err != nil {
		return Invalid, err
	}
	sc, err := newScanner(spec)
	if err != nil {
		return Invalid, err
	}
	if r == nil {
		return Invalid, newConfigurationError("resolver is nil")
	}
	for _, name := range spec.fieldNames {
		o, err := r.Resolve(record, name)
		if err != nil {
			return Invalid, err
		}
		if sc.step(o) {
			return Invalid, nil
		}
	}
	return sc.finish(), nil
}

// EvaluateObservations applies spec to observations that were already
// resolved, one per field name and in the same order.
func EvaluateObservations(spec Spec, observations []Observation) (Verdict, error) {
	if err := spec.checkFieldCount(); err != nil {
		return Invalid, err
	}
	if len(observations) != len(spec.fieldNames) {
		return Invalid, newConfigurationError("expected " + strconv.Itoa(len(spec.fieldNames)) + " observations, got " + strconv.Itoa(len(observations)))
	}
	sc, err := newScanner(spec)
	if err != nil {
		return Invalid, err
	}
	for _, o := range observations {
		if sc.step(o) {
			return Invalid, nil
		}
	}
	return sc.finish(), nil
}

type scanner struct {
	policy     Policy
	maxNotNull int

	sawPresent bool
	sawAbsent  bool
	count      int
}

func newScanner(spec Spec) (scanner, error) {
	switch spec.policy {
	case PolicyAllOrNone, PolicyExactlyOne:
	case PolicyAtMostN:
		if spec.maxNotNull < 1 {
			return scanner{}, newConfigurationError("max not null cannot be less than 1")
		}
	default:
		return scanner{}, newConfigurationError("unknown policy " + string(spec.policy))
	}
	return scanner{policy: spec.policy, maxNotNull: spec.maxNotNull}, nil
}

// step consumes one observation and reports whether the scan already proved
// the record invalid.
func (s *scanner) step(o Observation) bool {
	switch s.policy {
	case PolicyAllOrNone:
		if o == Present {
			s.sawPresent = true
			return s.sawAbsent
		}
		s.sawAbsent = true
		return s.sawPresent
	case PolicyExactlyOne:
		if o != Present {
			return false
		}
		if s.sawPresent {
			return true
		}
		s.sawPresent = true
		return false
	default:
		if o == Present {
			s.count++
		}
		return s.count > s.maxNotNull
	}
}

func (s *scanner) finish() Verdict {
	if s.policy == PolicyExactlyOne && !s.sawPresent {
		return Invalid
	}
	return Valid
}

func isNilRecord(record any) bool {
	if record == nil {
		return true
	}
	v := reflect.ValueOf(record)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
