package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// Querier is the query surface repositories need. Both pgx.Tx and the
// pool satisfy it, but request-scoped code must use the transaction
// carrying the security context.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// set_config with is_local=true scopes both values to the enclosing
// transaction, so nothing survives past commit/rollback and no other
// pooled connection can observe them.
const setSecurityContextSQL = `SELECT set_config('app.current_user_id', $1, true),
       set_config('app.current_user_role', $2, true)`

// BindSecurityContext injects the RLS identity values into the
// transaction. Empty strings denote an anonymous request. A failure
// here is fatal for the request: proceeding with an unset context
// would let RLS policies mis-scope every subsequent query.
func BindSecurityContext(ctx context.Context, tx pgx.Tx, userID, role string) error {
	if _, err := tx.Exec(ctx, setSecurityContextSQL, userID, role); err != nil {
		return fmt.Errorf("platform/db: bind security context: %v: %w", err, httpx.ErrSecurityContext)
	}
	return nil
}

// WithSecurityContext acquires one pooled connection, opens a
// transaction, binds the security context and runs fn inside it. The
// transaction commits only when fn returns nil; every other exit path,
// panics included, rolls back and releases the connection.
func WithSecurityContext(ctx context.Context, pool *pgxpool.Pool, userID, role string, fn func(pgx.Tx) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: acquire conn: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := BindSecurityContext(ctx, tx, userID, role); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

type txContextKey struct{}

// ContextWithTx stores the request transaction in context.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext extracts the request transaction from context.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx
}
