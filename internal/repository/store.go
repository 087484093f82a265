// Package repository implements the ledger on PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-grower-bot/internal/ledger"
)

const uniqueViolation = "23505"

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*Tx)(nil)
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// reader holds the read queries. Inside a transaction the point reads
// lock the rows they return.
type reader struct {
	q         querier
	forUpdate bool
}

func (r *reader) lockClause() string {
	if r.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// Store handles ledger persistence on a connection pool.
type Store struct {
	reader
	pool *pgxpool.Pool
}

// NewStore creates a new Store instance.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{reader: reader{q: pool}, pool: pool}
}

// Tx is a ledger transaction bound to one pgx.Tx.
type Tx struct {
	reader
}

// InTx runs fn inside a database transaction. The transaction commits when
// fn returns nil and rolls back otherwise, including on context cancellation.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &Tx{reader: reader{q: tx, forUpdate: true}})
	})
	return classify(err)
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// classify marks connection-level failures as ledger.ErrUnavailable.
// Contract errors and errors returned by callbacks pass through unchanged.
func classify(err error) error {
	if err == nil ||
		errors.Is(err, ledger.ErrConflict) ||
		errors.Is(err, ledger.ErrNotFound) ||
		errors.Is(err, ledger.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
	}
	return err
}
