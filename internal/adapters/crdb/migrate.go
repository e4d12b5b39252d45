package crdb

import (
	"context"
	_ "embed"
	"strings"

	"github.com/cockroachdb/errors"
)

//go:embed schema.sql
var schema string

// Migrate applies the ledger schema. Every statement is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "apply schema statement %.40q", stmt)
		}
	}
	return nil
}
