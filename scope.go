package omnia

import (
	"context"

	"go.uber.org/zap"
)

// Scope is the behavior shared by Transaction and Savepoint: a bounded
// unit of work with an explicit commit-or-rollback outcome and the
// ability to nest savepoints beneath it.
type Scope interface {
	Session() Session
	State() State
	Savepoint(ctx context.Context) (*Savepoint, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// scope is the internal contract between a savepoint and its parent.
type scope interface {
	Scope
	// open reports whether this scope and all its ancestors are still
	// open; a savepoint under a finished ancestor is unusable even if
	// its own state says otherwise.
	open() bool
	adoptChild()
	releaseChild()
	logger() *zap.Logger
}

// inSavepoint runs fn inside a fresh savepoint under parent: commit on
// nil, rollback on error or panic. Panics are re-raised after the
// rollback. The error returned by fn comes back unchanged; a rollback
// failure during forced cleanup is logged so it cannot mask it.
func inSavepoint(ctx context.Context, parent scope, fn func(*Savepoint) error) (err error) {
	sp, err := newSavepoint(ctx, parent)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if rbErr := sp.Rollback(ctx); rbErr != nil {
				sp.log.Error("savepoint rollback after panic", zap.Error(rbErr))
			}
			panic(r)
		}
	}()
	if err = fn(sp); err != nil {
		if sp.state == StateOpen {
			if rbErr := sp.Rollback(ctx); rbErr != nil {
				sp.log.Error("savepoint rollback on error exit", zap.Error(rbErr))
			}
		}
		return err
	}
	if sp.state == StateOpen {
		return sp.Commit(ctx)
	}
	return nil
}
