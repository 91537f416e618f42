package omnia

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Option configures a Transaction.
type Option func(*Transaction)

// WithLogger attaches a logger to the transaction and every savepoint
// derived from it. The default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Transaction) {
		if log != nil {
			t.log = log
		}
	}
}

// Transaction is the outermost scope. It owns the session it acquired
// from the factory and is responsible for releasing it via Close.
type Transaction struct {
	factory SessionFactory
	session Session
	log     *zap.Logger

	state        State
	openChildren int
	closed       bool

	deferred []deferredStmt
}

type deferredStmt struct {
	query string
	args  []any
}

// Begin acquires a session from the factory and opens a transaction on
// it. Failures to obtain a session are reported as ErrAcquisition.
func Begin(ctx context.Context, factory SessionFactory, opts ...Option) (*Transaction, error) {
	t := &Transaction{factory: factory, log: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	sess, err := factory.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	t.session = sess
	t.state = StateOpen
	t.log.Debug("transaction opened")
	return t, nil
}

// Session returns the session owned by this transaction.
func (t *Transaction) Session() Session { return t.session }

// State returns the current lifecycle state.
func (t *Transaction) State() State { return t.state }

// Savepoint opens a new savepoint directly under this transaction.
func (t *Transaction) Savepoint(ctx context.Context) (*Savepoint, error) {
	return newSavepoint(ctx, t)
}

// Commit makes the transaction's work durable. The transaction must be
// open and must not have open child savepoints. If the engine rejects
// the commit the transaction ends up rolled back and ErrCommit is
// returned; nothing in the scope is durable in that case.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.state != StateOpen {
		return fmt.Errorf("%w: commit on %s transaction", ErrInvalidState, t.state)
	}
	if t.openChildren > 0 {
		return fmt.Errorf("%w: commit with %d open savepoint(s)", ErrInvalidState, t.openChildren)
	}
	if err := t.session.Commit(ctx); err != nil {
		// The engine rolls a failed commit back; mirror that so the
		// scope can never look half-committed.
		t.state = StateRolledBack
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}
	t.state = StateCommitted
	t.log.Debug("transaction committed")
	return nil
}

// Rollback discards all work done in this transaction, including work
// from savepoints that were already released.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.state != StateOpen {
		return fmt.Errorf("%w: rollback on %s transaction", ErrInvalidState, t.state)
	}
	t.state = StateRolledBack
	if err := t.session.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	t.log.Debug("transaction rolled back")
	return nil
}

// Defer queues a statement to run after this transaction has fully
// closed, in a fresh transaction from the same factory. Useful for
// work that must not ride on the current transaction's outcome, e.g.
// audit writes that should survive a rollback.
func (t *Transaction) Defer(query string, args ...any) *Transaction {
	t.deferred = append(t.deferred, deferredStmt{query: query, args: args})
	return t
}

// Close releases the session exactly once, rolling back first if the
// transaction is still open, then executes any deferred statements.
// Safe to call multiple times; typically run via defer.
func (t *Transaction) Close(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.state == StateOpen {
		if err := t.Rollback(ctx); err != nil {
			t.log.Error("rollback on close", zap.Error(err))
		}
	}
	if err := t.session.Close(ctx); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return t.runDeferred(ctx)
}

func (t *Transaction) runDeferred(ctx context.Context) error {
	if len(t.deferred) == 0 {
		return nil
	}
	stmts := t.deferred
	t.deferred = nil
	return Transact(ctx, t.factory, func(txn *Transaction) error {
		for _, st := range stmts {
			if err := txn.Session().Exec(ctx, st.query, st.args...); err != nil {
				return fmt.Errorf("deferred statement: %w", err)
			}
		}
		return nil
	}, WithLogger(t.log))
}

// InSavepoint runs fn inside a savepoint under this transaction,
// committing it when fn returns nil and rolling it back when fn
// returns an error or panics.
func (t *Transaction) InSavepoint(ctx context.Context, fn func(*Savepoint) error) error {
	return inSavepoint(ctx, t, fn)
}

// Transact runs fn inside a new transaction: commit on nil, rollback
// on error or panic (the panic is re-raised), session released on
// every path. The error returned by fn is passed through unchanged;
// cleanup failures on the error path are logged, not substituted.
func Transact(ctx context.Context, factory SessionFactory, fn func(txn *Transaction) error, opts ...Option) (err error) {
	txn, err := Begin(ctx, factory, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := txn.Close(ctx); closeErr != nil {
			if err == nil {
				err = closeErr
			} else {
				txn.log.Error("close after failure", zap.Error(closeErr))
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if txn.state == StateOpen {
				if rbErr := txn.Rollback(ctx); rbErr != nil {
					txn.log.Error("rollback after panic", zap.Error(rbErr))
				}
			}
			panic(r)
		}
	}()
	if err = fn(txn); err != nil {
		if txn.state == StateOpen {
			if rbErr := txn.Rollback(ctx); rbErr != nil {
				txn.log.Error("rollback on error exit", zap.Error(rbErr))
			}
		}
		return err
	}
	if txn.state == StateOpen {
		return txn.Commit(ctx)
	}
	return nil
}

func (t *Transaction) open() bool          { return t.state == StateOpen }
func (t *Transaction) adoptChild()         { t.openChildren++ }
func (t *Transaction) releaseChild()       { t.openChildren-- }
func (t *Transaction) logger() *zap.Logger { return t.log }
