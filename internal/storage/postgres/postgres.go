// Package postgres implements the order workflow stores on PostgreSQL via pgx.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orderflow/db"
	"github.com/xenking/orderflow/internal/domain/order"
)

const uniqueViolation = "23505"

// NewPool creates a pgxpool.Pool with shopspring/decimal support for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var _ order.Transactor = (*Store)(nil)

// Store hands out repositories bound either to the pool or to a transaction.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Stores returns repositories that run each statement on the pool.
func (s *Store) Stores() order.Stores {
	return storesFor(s.pool, false)
}

// InTx runs fn in a READ COMMITTED transaction. Product and inventory reads
// made through the transaction's stores take row locks.
func (s *Store) InTx(ctx context.Context, fn func(tx order.Stores) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(storesFor(tx, true))
	})
}

func storesFor(q querier, lock bool) order.Stores {
	return order.Stores{
		Carts:     &CartRepository{q: q},
		Addresses: &AddressRepository{q: q},
		Users:     &UserRepository{q: q},
		Coupons:   &CouponRepository{q: q},
		Products:  &ProductRepository{q: q, lock: lock},
		Inventory: &InventoryRepository{q: q, lock: lock},
		Orders:    &OrderRepository{q: q},
		Payments:  &PaymentRepository{q: q},
	}
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

func forUpdate(sql string, lock bool) string {
	if lock {
		return sql + " FOR UPDATE"
	}
	return sql
}
