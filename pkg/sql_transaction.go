package pkg

import (
	"context"
	"database/sql"
	"log/slog"
)

// WithTransaction runs fn inside a transaction on conn. fn's error rolls the
// transaction back; a nil error commits it. caller is used as the log prefix.
func WithTransaction(ctx context.Context, conn *sql.DB, caller string, fn func(context.Context, *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		slog.ErrorContext(ctx, caller, "beginTx", err)
		return err
	}

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			slog.ErrorContext(ctx, caller, "rollback", rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		slog.ErrorContext(ctx, caller, "commit", err)
		return err
	}

	return nil
}
