package declare

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var Schema string

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the declarations table and its tenant isolation
// policy if they do not exist yet.
func EnsureSchema(ctx context.Context, db execer) error {
	_, err := db.Exec(ctx, Schema)
	return err
}
