package server

import (
	"context"

	"github.com/jacksonlee411/nullguard/internal/declare"
)

// CatalogSource yields the compiled declarations in force for a tenant.
type CatalogSource interface {
	Catalog(ctx context.Context, tenantID string) (*declare.Catalog, error)
}

// DeclarationStore persists declarations. Only database-backed deployments
// have one.
type DeclarationStore interface {
	ListDeclarations(ctx context.Context, tenantID string) (map[string][]declare.Constraint, error)
	PutConstraint(ctx context.Context, tenantID string, recordType string, c declare.Constraint) error
}

// StaticCatalog serves one catalog, loaded from a declarations file, to
// every tenant.
type StaticCatalog struct {
	catalog *declare.Catalog
}

func NewStaticCatalog(c *declare.Catalog) StaticCatalog {
	return StaticCatalog{catalog: c}
}

func (s StaticCatalog) Catalog(context.Context, string) (*declare.Catalog, error) {
	return s.catalog, nil
}

// StoreCatalog compiles the tenant's stored declarations on every call, so
// a PUT is visible to the next evaluation.
type StoreCatalog struct {
	store DeclarationStore
}

func NewStoreCatalog(store DeclarationStore) StoreCatalog {
	return StoreCatalog{store: store}
}

func (s StoreCatalog) Catalog(ctx context.Context, tenantID string) (*declare.Catalog, error) {
	byType, err := s.store.ListDeclarations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return declare.CatalogFromConstraints(byType)
}
