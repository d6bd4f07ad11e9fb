// Package db provides database connection helpers.
package db

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool.New")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres ping failed")
	}

	return pool, nil
}

// OpenPostgres returns a database/sql handle backed by a verified pgx pool.
// Closing the returned *sql.DB does not close the pool; call the returned
// func for that.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, func(), error) {
	pool, err := NewPostgresPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	return sqlDB, func() {
		_ = sqlDB.Close()
		pool.Close()
	}, nil
}
