package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"omnia"
)

type session struct {
	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

// rows adapts *sql.Rows to omnia.Rows (Close without an error return).
type rows struct{ *sql.Rows }

func (r rows) Close() { _ = r.Rows.Close() }

func (s *session) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.tx.ExecContext(ctx, query, args...)
	return err
}

func (s *session) Query(ctx context.Context, query string, args ...any) (omnia.Rows, error) {
	rs, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows{rs}, nil
}

func (s *session) QueryRow(ctx context.Context, query string, args ...any) omnia.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}

func (s *session) Commit(context.Context) error   { return s.tx.Commit() }
func (s *session) Rollback(context.Context) error { return s.tx.Rollback() }

func savepointName() string {
	return "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *session) BeginNested(ctx context.Context) (omnia.SavepointHandle, error) {
	name := savepointName()
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+quoteIdent(name)); err != nil {
		return "", fmt.Errorf("savepoint %s: %w", name, err)
	}
	return omnia.SavepointHandle(name), nil
}

func (s *session) RollbackTo(ctx context.Context, sp omnia.SavepointHandle) error {
	_, err := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+quoteIdent(string(sp)))
	return err
}

func (s *session) Release(ctx context.Context, sp omnia.SavepointHandle) error {
	_, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+quoteIdent(string(sp)))
	return err
}

// Close discards pending work and returns the connection to the pool.
// Idempotent.
func (s *session) Close(context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.tx.Rollback()
	closeErr := s.conn.Close()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("close session: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close conn: %w", closeErr)
	}
	return nil
}
