package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"omnia"
)

type session struct {
	conn   *pgxpool.Conn
	tx     pgx.Tx
	closed bool
}

func (s *session) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.tx.Exec(ctx, query, args...)
	return err
}

func (s *session) Query(ctx context.Context, query string, args ...any) (omnia.Rows, error) {
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *session) QueryRow(ctx context.Context, query string, args ...any) omnia.Row {
	return s.tx.QueryRow(ctx, query, args...)
}

func (s *session) Commit(ctx context.Context) error   { return s.tx.Commit(ctx) }
func (s *session) Rollback(ctx context.Context) error { return s.tx.Rollback(ctx) }

func savepointName() string {
	return "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *session) BeginNested(ctx context.Context) (omnia.SavepointHandle, error) {
	name := savepointName()
	if _, err := s.tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize()); err != nil {
		return "", fmt.Errorf("savepoint %s: %w", name, err)
	}
	return omnia.SavepointHandle(name), nil
}

func (s *session) RollbackTo(ctx context.Context, sp omnia.SavepointHandle) error {
	_, err := s.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{string(sp)}.Sanitize())
	return err
}

func (s *session) Release(ctx context.Context, sp omnia.SavepointHandle) error {
	_, err := s.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{string(sp)}.Sanitize())
	return err
}

// Close discards any still-pending work and returns the connection to
// the pool. Idempotent; a rollback of an already finished transaction
// is not an error.
func (s *session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.tx.Rollback(ctx)
	s.conn.Release()
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
