package interfaces

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts over *pgxpool.Pool and pgx.Tx so repository methods can
// run either standalone or inside a caller-managed transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner executes fn inside a single transaction, committing on nil
// and rolling back on error. The DBTX handed to fn must be passed to
// every repository call that belongs to the same atomic unit.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(q DBTX) error) error
}
