// Package pg implements omnia's session contracts on top of a pgx
// connection pool. Each session pins one pooled connection for the
// lifetime of its transaction; savepoints are plain SAVEPOINT /
// RELEASE / ROLLBACK TO statements with generated names.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"omnia"
)

const (
	defaultMaxConns    = 5
	defaultMinConns    = 1
	defaultMaxIdleTime = 2 * time.Minute
)

// Factory hands out sessions backed by a pgx pool. It implements
// omnia.SessionFactory.
type Factory struct{ Pool *pgxpool.Pool }

// Connect parses url, applies pool defaults and connects.
func Connect(ctx context.Context, url string) (*Factory, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse pg url: %w", err)
	}
	cfg.MaxConns, cfg.MinConns = defaultMaxConns, defaultMinConns
	cfg.MaxConnIdleTime = defaultMaxIdleTime
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect pg: %w", err)
	}
	return &Factory{Pool: pool}, nil
}

func (f *Factory) Close()                         { f.Pool.Close() }
func (f *Factory) Ping(ctx context.Context) error { return f.Pool.Ping(ctx) }

// CreateSession acquires a pooled connection and opens a transaction
// on it. The connection goes back to the pool when the session closes.
func (f *Factory) CreateSession(ctx context.Context) (omnia.Session, error) {
	conn, err := f.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &session{conn: conn, tx: tx}, nil
}
