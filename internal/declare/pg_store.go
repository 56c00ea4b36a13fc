package declare

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jacksonlee411/nullguard/pkg/httperr"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore keeps per-tenant declarations in nullguard.constraint_declarations:
//
//	tenant_id uuid, record_type text, name text, policy text, fields text[],
//	max_not_null int NULL, message text, created_at, updated_at
//	PRIMARY KEY (tenant_id, record_type, name)
type PGStore struct {
	pool pgBeginner
}

func NewPGStore(pool pgBeginner) *PGStore {
	return &PGStore{pool: pool}
}

// normalizeTenantID rejects ids the uuid column would refuse, so callers get
// a client error instead of a failed statement.
func normalizeTenantID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", httperr.NewBadRequestCode("invalid_tenant", "tenant_id is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", httperr.NewBadRequestCode("invalid_tenant", "tenant_id must be a uuid: "+raw)
	}
	return u.String(), nil
}

// ListDeclarations returns the tenant's constraints grouped by record type,
// each group in creation order.
func (s *PGStore) ListDeclarations(ctx context.Context, tenantID string) (map[string][]Constraint, error) {
	tenantID, err := normalizeTenantID(tenantID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT
  record_type,
  name,
  policy,
  fields,
  max_not_null,
  COALESCE(message, '')
FROM nullguard.constraint_declarations
WHERE tenant_id = $1::uuid
ORDER BY record_type, created_at, name
`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Constraint)
	for rows.Next() {
		var recordType string
		var c Constraint
		if err := rows.Scan(&recordType, &c.Name, &c.Policy, &c.Fields, &c.MaxNotNull, &c.Message); err != nil {
			return nil, err
		}
		out[recordType] = append(out[recordType], c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// PutConstraint validates c and upserts it by (tenant, record type, name).
func (s *PGStore) PutConstraint(ctx context.Context, tenantID string, recordType string, c Constraint) error {
	tenantID, err := normalizeTenantID(tenantID)
	if err != nil {
		return err
	}
	recordType, c, err = normalizeConstraint(recordType, c)
	if err != nil {
		return err
	}

	return s.inTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		return upsertConstraint(ctx, tx, tenantID, recordType, c)
	})
}

// PutDeclarations upserts every constraint of d in one transaction and
// returns how many were written. Nothing is written unless all of them are
// valid and named.
func (s *PGStore) PutDeclarations(ctx context.Context, tenantID string, d Declarations) (int, error) {
	tenantID, err := normalizeTenantID(tenantID)
	if err != nil {
		return 0, err
	}

	type row struct {
		recordType string
		c          Constraint
	}
	var rows []row
	for _, recordType := range slices.Sorted(maps.Keys(d.Records)) {
		for i, c := range d.Records[recordType].Constraints {
			rt, nc, err := normalizeConstraint(recordType, c)
			if err != nil {
				return 0, fmt.Errorf("%s: constraint[%d]: %w", recordType, i, err)
			}
			rows = append(rows, row{recordType: rt, c: nc})
		}
	}

	err = s.inTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		for _, r := range rows {
			if err := upsertConstraint(ctx, tx, tenantID, r.recordType, r.c); err != nil {
				return fmt.Errorf("%s: %s: %w", r.recordType, r.c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func normalizeConstraint(recordType string, c Constraint) (string, Constraint, error) {
	recordType = strings.TrimSpace(recordType)
	if recordType == "" {
		return "", Constraint{}, errors.New("record_type is required")
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return "", Constraint{}, errors.New("name is required")
	}
	spec, err := c.Spec()
	if err != nil {
		return "", Constraint{}, err
	}
	return recordType, FromSpec(spec), nil
}

func (s *PGStore) inTenantTx(ctx context.Context, tenantID string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertConstraint(ctx context.Context, tx execer, tenantID string, recordType string, c Constraint) error {
	_, err := tx.Exec(ctx, `
INSERT INTO nullguard.constraint_declarations (
  tenant_id,
  record_type,
  name,
  policy,
  fields,
  max_not_null,
  message,
  created_at,
  updated_at
)
VALUES (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text[],
  $6::int,
  NULLIF($7::text, ''),
  now(),
  now()
)
ON CONFLICT (tenant_id, record_type, name)
DO UPDATE SET
  policy = EXCLUDED.policy,
  fields = EXCLUDED.fields,
  max_not_null = EXCLUDED.max_not_null,
  message = EXCLUDED.message,
  updated_at = now()
`, tenantID, recordType, c.Name, c.Policy, c.Fields, c.MaxNotNull, c.Message)
	return err
}
