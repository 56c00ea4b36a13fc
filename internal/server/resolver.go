package server

import (
	"github.com/jacksonlee411/nullguard/internal/config"
	"github.com/jacksonlee411/nullguard/internal/declare"
	"github.com/jacksonlee411/nullguard/pkg/nullability"
	"github.com/jacksonlee411/nullguard/pkg/nullability/fields"
)

// NewResolver builds the resolver for decoded JSON records. With a catalog,
// CEL paths are compiled up front so a bad path fails startup.
func NewResolver(kind config.ResolverKind, mode fields.MissingFieldMode, catalog *declare.Catalog) (nullability.Resolver, error) {
	opts := fields.Options{MissingField: mode}
	if kind != config.ResolverCEL {
		return fields.NewMapResolver(opts), nil
	}
	r, err := fields.NewCELResolver(opts)
	if err != nil {
		return nil, err
	}
	if catalog != nil {
		for _, t := range catalog.RecordTypes() {
			specs, _ := catalog.Specs(t)
			if err := r.Compile(specs...); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
