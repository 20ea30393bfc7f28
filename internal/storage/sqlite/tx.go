package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// withTx runs fn inside a transaction, committing on a nil return and
// rolling back otherwise. It is the one place in the package that owns a
// BEGIN/COMMIT pair, so every multi-statement mutation goes through it.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true

	return nil
}
