package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the query surface shared by *pgxpool.Pool, pgx.Tx and the
// pgxmock pool used in tests. Repositories bind to it so a flow can run
// the same repository against a transaction.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStarter is a Database that can open transactions (a pool, not a tx).
type TxStarter interface {
	Database
	Begin(ctx context.Context) (pgx.Tx, error)
}
