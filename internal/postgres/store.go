// Package postgres implements the persistence layer. It exposes typed
// operations only; no SQL escapes this package. Multi-row mutations run
// inside a single transaction obtained through Store.WithTx, and callers
// that change order totals, status, or payments take a row lock on the
// order first (GetOrderForUpdate).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so every query method
// works inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the typed repository over Postgres.
type Store struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewStore creates a Store over a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// WithTx runs fn inside a transaction. The transactional Store passed to fn
// shares no state with the receiver beyond the pool. Rollback on any error,
// commit otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.pool == nil {
		// Already transactional; nest by reusing the same tx.
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// notFound converts pgx.ErrNoRows into a domain not-found error.
func notFound(err error, op, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(op, resource)
	}
	return domain.Internal(err, op, "database error")
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
