package declare

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jacksonlee411/nullguard/pkg/nullability"
)

// Catalog holds the compiled specs of every declared record type. It is
// immutable once built.
type Catalog struct {
	specs map[string][]nullability.Spec
}

// NewCatalog compiles every constraint. Any configuration problem fails the
// whole catalog; the error names the record type and constraint.
func NewCatalog(d Declarations) (*Catalog, error) {
	c := &Catalog{specs: make(map[string][]nullability.Spec, len(d.Records))}
	for recordType, rd := range d.Records {
		if err := c.add(recordType, rd.Constraints); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CatalogFromConstraints builds a catalog from rows grouped by record type,
// as returned by PGStore.ListDeclarations.
func CatalogFromConstraints(byType map[string][]Constraint) (*Catalog, error) {
	d := Declarations{Version: 1, Records: make(map[string]RecordDecl, len(byType))}
	for recordType, cs := range byType {
		d.Records[recordType] = RecordDecl{Constraints: cs}
	}
	return NewCatalog(d)
}

func (c *Catalog) add(recordType string, constraints []Constraint) error {
	recordType = strings.TrimSpace(recordType)
	specs := make([]nullability.Spec, 0, len(constraints))
	for i, con := range constraints {
		s, err := con.Spec()
		if err != nil {
			return fmt.Errorf("declarations: %s: %s: %w", recordType, constraintLabel(con, i), err)
		}
		specs = append(specs, s)
	}
	c.specs[recordType] = specs
	return nil
}

func constraintLabel(c Constraint, i int) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "constraint[" + strconv.Itoa(i) + "]"
}

// Specs returns the specs declared for recordType in declaration order.
func (c *Catalog) Specs(recordType string) ([]nullability.Spec, bool) {
	specs, ok := c.specs[strings.TrimSpace(recordType)]
	if !ok {
		return nil, false
	}
	return slices.Clone(specs), true
}

// RecordTypes returns the declared record types, sorted.
func (c *Catalog) RecordTypes() []string {
	out := make([]string, 0, len(c.specs))
	for t := range c.specs {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
