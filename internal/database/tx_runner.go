package database

import (
	"context"
	"fmt"

	"fable-server/internal/interfaces"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check
var _ interfaces.TxRunner = (*PgxTxRunner)(nil)

// PgxTxRunner runs functions inside a pgx transaction.
type PgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewPgxTxRunner creates a TxRunner backed by the given pool.
func NewPgxTxRunner(pool *pgxpool.Pool) *PgxTxRunner {
	return &PgxTxRunner{pool: pool}
}

// WithTx executes fn inside a transaction, committing on success and
// rolling back on error or panic.
func (r *PgxTxRunner) WithTx(ctx context.Context, fn func(q interfaces.DBTX) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}
