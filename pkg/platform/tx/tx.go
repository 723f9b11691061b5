// Package tx runs database/sql work inside a transaction.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// Run begins a transaction on db, calls fn with it, and commits if fn returns
// nil. Any error from fn rolls the transaction back and is returned unchanged.
func Run(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = t.Rollback()
	}()

	if err := fn(t); err != nil {
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
