package omnia

import "context"

// SavepointHandle identifies a savepoint established on a Session. The
// scope layer treats it as opaque; only the Session that produced it
// can interpret it.
type SavepointHandle string

// Row is a single-row result.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a multi-row result. The shape matches pgx rows directly;
// database/sql rows need a one-line wrapper for Close.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Session is the narrow surface omnia requires from a database engine:
// statement execution plus transaction and savepoint control. A Session
// is owned by exactly one Transaction and is not safe for concurrent
// use.
type Session interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	BeginNested(ctx context.Context) (SavepointHandle, error)
	RollbackTo(ctx context.Context, sp SavepointHandle) error
	Release(ctx context.Context, sp SavepointHandle) error

	// Close releases the underlying connection. Implementations must be
	// idempotent and must discard any work still pending.
	Close(ctx context.Context) error
}

// SessionFactory produces sessions, typically from a connection pool.
type SessionFactory interface {
	CreateSession(ctx context.Context) (Session, error)
}
