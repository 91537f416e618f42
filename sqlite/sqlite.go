// Package sqlite implements omnia's session contracts over database/sql
// with the modernc.org/sqlite driver. Each session checks out a
// dedicated connection; savepoints use the same SAVEPOINT statements as
// the pg package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"omnia"
)

// Factory hands out sessions over a sql.DB. It implements
// omnia.SessionFactory.
type Factory struct{ DB *sql.DB }

// Open opens (or creates) the database at dsn, e.g. a file path or
// "file:test.db?mode=memory".
func Open(dsn string) (*Factory, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Factory{DB: db}, nil
}

func (f *Factory) Close() error                   { return f.DB.Close() }
func (f *Factory) Ping(ctx context.Context) error { return f.DB.PingContext(ctx) }

// CreateSession checks a connection out of the pool and begins a
// transaction on it.
func (f *Factory) CreateSession(ctx context.Context) (omnia.Session, error) {
	conn, err := f.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &session{conn: conn, tx: tx}, nil
}
