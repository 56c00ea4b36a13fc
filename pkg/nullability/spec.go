package nullability

import (
	"slices"
	"strconv"
	"strings"
)

type Policy string

const (
	PolicyAllOrNone  Policy = "ALL_OR_NONE"
	PolicyExactlyOne Policy = "EXACTLY_ONE"
	PolicyAtMostN    Policy = "AT_MOST_N"
)

const DefaultMaxNotNull = 1

// ParsePolicy accepts the canonical names case-insensitively.
func ParsePolicy(raw string) (Policy, error) {
	p := Policy(strings.ToUpper(strings.TrimSpace(raw)))
	switch p {
	case PolicyAllOrNone, PolicyExactlyOne, PolicyAtMostN:
		return p, nil
	default:
		return "", newConfigurationError("unknown policy " + strings.TrimSpace(raw) + " (expected ALL_OR_NONE|EXACTLY_ONE|AT_MOST_N)")
	}
}

// Spec is one declared constraint. The zero value is not usable; build it
// with NewSpec. A Spec is read-only after construction and may be shared.
type Spec struct {
	name       string
	message    string
	policy     Policy
	fieldNames []string
	maxNotNull int
}

type Option func(*Spec)

// WithMaxNotNull sets the bound for AT_MOST_N. Other policies ignore it.
func WithMaxNotNull(n int) Option {
	return func(s *Spec) { s.maxNotNull = n }
}

func WithName(name string) Option {
	return func(s *Spec) { s.name = strings.TrimSpace(name) }
}

// WithMessage attaches a message template for the reporting layer.
func WithMessage(message string) Option {
	return func(s *Spec) { s.message = message }
}

// NewSpec performs the construction-time checks: a known policy, non-empty
// distinct field names and, for AT_MOST_N, a bound of at least one.
// The two-field minimum is checked by Validate and on every evaluation.
func NewSpec(policy Policy, fieldNames []string, opts ...Option) (Spec, error) {
	s := Spec{
		policy:     policy,
		fieldNames: slices.Clone(fieldNames),
		maxNotNull: DefaultMaxNotNull,
	}
	for _, opt := range opts {
		opt(&s)
	}

	switch policy {
	case PolicyAllOrNone, PolicyExactlyOne:
	case PolicyAtMostN:
		if s.maxNotNull < 1 {
			return Spec{}, newConfigurationError("max not null cannot be less than 1")
		}
	default:
		return Spec{}, newConfigurationError("unknown policy " + string(policy))
	}

	seen := make(map[string]struct{}, len(s.fieldNames))
	for _, name := range s.fieldNames {
		if strings.TrimSpace(name) == "" {
			return Spec{}, newConfigurationError("field name is empty")
		}
		if _, dup := seen[name]; dup {
			return Spec{}, newConfigurationError("duplicate field name " + name)
		}
		seen[name] = struct{}{}
	}
	return s, nil
}

func AllOrNone(fieldNames ...string) (Spec, error) {
	return NewSpec(PolicyAllOrNone, fieldNames)
}

func ExactlyOne(fieldNames ...string) (Spec, error) {
	return NewSpec(PolicyExactlyOne, fieldNames)
}

func AtMostN(maxNotNull int, fieldNames ...string) (Spec, error) {
	return NewSpec(PolicyAtMostN, fieldNames, WithMaxNotNull(maxNotNull))
}

// Validate runs every configuration check, including the two-field minimum
// that evaluation would otherwise only report on a non-nil record.
func (s Spec) Validate() error {
	if err := s.checkFieldCount(); err != nil {
		return err
	}
	if s.policy == PolicyAtMostN && s.maxNotNull < 1 {
		return newConfigurationError("max not null cannot be less than 1")
	}
	switch s.policy {
	case PolicyAllOrNone, PolicyExactlyOne, PolicyAtMostN:
		return nil
	default:
		return newConfigurationError("unknown policy " + string(s.policy))
	}
}

func (s Spec) checkFieldCount() error {
	if len(s.fieldNames) < 2 {
		return newConfigurationError("at least two field names required")
	}
	return nil
}

func (s Spec) Policy() Policy  { return s.policy }
func (s Spec) Name() string    { return s.name }
func (s Spec) Message() string { return s.message }
func (s Spec) MaxNotNull() int { return s.maxNotNull }
func (s Spec) FieldCount() int { return len(s.fieldNames) }

// FieldNames returns a copy in declaration order.
func (s Spec) FieldNames() []string { return slices.Clone(s.fieldNames) }

// String renders the spec as POLICY(a,b,c) or AT_MOST_N[2](a,b,c).
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(string(s.policy))
	if s.policy == PolicyAtMostN {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(s.maxNotNull))
		b.WriteString("]")
	}
	b.WriteString("(")
	b.WriteString(strings.Join(s.fieldNames, ","))
	b.WriteString(")")
	return b.String()
}
