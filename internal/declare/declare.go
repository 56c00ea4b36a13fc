// Package declare loads constraint declarations (from YAML files or the
// tenant-scoped Postgres table) and compiles them into nullability specs.
package declare

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jacksonlee411/nullguard/pkg/nullability"
	"gopkg.in/yaml.v3"
)

type Declarations struct {
	Version int                   `yaml:"version"`
	Records map[string]RecordDecl `yaml:"records"`
}

type RecordDecl struct {
	Constraints []Constraint `yaml:"constraints"`
}

// Constraint is the serialized form of one nullability.Spec. MaxNotNull is
// a pointer so that an explicit 0 is rejected instead of replaced by the
// default.
type Constraint struct {
	Name       string   `yaml:"name" json:"name"`
	Policy     string   `yaml:"policy" json:"policy"`
	Fields     []string `yaml:"fields" json:"fields"`
	MaxNotNull *int     `yaml:"max_not_null,omitempty" json:"max_not_null,omitempty"`
	Message    string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// Spec compiles c. The result has passed Spec.Validate.
func (c Constraint) Spec() (nullability.Spec, error) {
	policy, err := nullability.ParsePolicy(c.Policy)
	if err != nil {
		return nullability.Spec{}, err
	}
	opts := []nullability.Option{nullability.WithName(c.Name), nullability.WithMessage(c.Message)}
	if c.MaxNotNull != nil {
		if policy != nullability.PolicyAtMostN {
			return nullability.Spec{}, &nullability.ConfigurationError{Reason: "max_not_null is only valid for AT_MOST_N"}
		}
		opts = append(opts, nullability.WithMaxNotNull(*c.MaxNotNull))
	}
	s, err := nullability.NewSpec(policy, c.Fields, opts...)
	if err != nil {
		return nullability.Spec{}, err
	}
	if err := s.Validate(); err != nil {
		return nullability.Spec{}, err
	}
	return s, nil
}

// FromSpec is the inverse of Constraint.Spec.
func FromSpec(s nullability.Spec) Constraint {
	c := Constraint{
		Name:    s.Name(),
		Policy:  string(s.Policy()),
		Fields:  s.FieldNames(),
		Message: s.Message(),
	}
	if s.Policy() == nullability.PolicyAtMostN {
		n := s.MaxNotNull()
		c.MaxNotNull = &n
	}
	return c
}

func ParseDeclarationsYAML(b []byte) (Declarations, error) {
	var d Declarations
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Declarations{}, err
	}
	if d.Version != 1 {
		return Declarations{}, errors.New("declarations: unsupported version")
	}
	if d.Records == nil {
		return Declarations{}, errors.New("declarations: missing records")
	}
	for recordType := range d.Records {
		if strings.TrimSpace(recordType) == "" {
			return Declarations{}, errors.New("declarations: empty record type")
		}
	}
	return d, nil
}

func LoadDeclarations(path string) (Declarations, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Declarations{}, err
	}
	d, err := ParseDeclarationsYAML(b)
	if err != nil {
		return Declarations{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
