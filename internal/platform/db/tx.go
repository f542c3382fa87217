package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const ConnKey contextKey = "db_conn"

// Conn is the subset of pgx query methods repositories need. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so a repository runs against whichever connection the
// context carries.
type Conn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ConnFromContext retrieves the transaction-scoped connection from context.
// Returns nil when the context carries no transaction.
func ConnFromContext(ctx context.Context) Conn {
	conn, _ := ctx.Value(ConnKey).(Conn)
	return conn
}

// TxRunner runs a function inside a database transaction. Repositories called
// with the derived context pick the transaction connection out of it, so
// multiple repository calls commit or roll back together.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type poolTxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolTxRunner{pool: pool}
}

// WithinTx begins a transaction, stores it in the context and calls fn.
// The transaction commits when fn returns nil and rolls back otherwise.
// Transient serialization failures are retried once.
func (r *poolTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := r.runOnce(ctx, fn)
	if IsSerializationFailure(err) {
		err = r.runOnce(ctx, fn)
	}
	return err
}

func (r *poolTxRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	txCtx := context.WithValue(ctx, ConnKey, Conn(tx))
	if err := fn(txCtx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
