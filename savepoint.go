package omnia

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Savepoint is a nestable scope marking a point its parent's session
// can be partially rolled back to. It shares the session of the
// transaction at the root of its nesting chain and never owns it:
// committing merges its work into the parent scope, rolling back
// discards everything issued since it was opened.
type Savepoint struct {
	parent  scope
	session Session
	handle  SavepointHandle
	log     *zap.Logger

	state        State
	openChildren int
}

func newSavepoint(ctx context.Context, parent scope) (*Savepoint, error) {
	if !parent.open() {
		return nil, fmt.Errorf("%w: savepoint under %s parent", ErrInvalidState, parent.State())
	}
	handle, err := parent.Session().BeginNested(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin nested: %w", err)
	}
	parent.adoptChild()
	sp := &Savepoint{
		parent:  parent,
		session: parent.Session(),
		handle:  handle,
		log:     parent.logger(),
	}
	sp.log.Debug("savepoint opened", zap.String("savepoint", string(handle)))
	return sp, nil
}

// Session returns the shared session. The savepoint does not own it.
func (s *Savepoint) Session() Session { return s.session }

// State returns the current lifecycle state.
func (s *Savepoint) State() State { return s.state }

// Parent returns the enclosing scope. The back-reference is used only
// to validate nesting order; it carries no ownership.
func (s *Savepoint) Parent() Scope { return s.parent }

// Savepoint opens a child savepoint one level deeper.
func (s *Savepoint) Savepoint(ctx context.Context) (*Savepoint, error) {
	return newSavepoint(ctx, s)
}

func (s *Savepoint) ensureOpen(op string) error {
	if s.state != StateOpen {
		return fmt.Errorf("%w: %s on %s savepoint", ErrInvalidState, op, s.state)
	}
	if !s.parent.open() {
		return fmt.Errorf("%w: %s on savepoint whose parent reached %s", ErrInvalidState, op, s.parent.State())
	}
	return nil
}

// Commit releases the savepoint. Its work stays pending in the shared
// session and becomes subject to the parent's commit-or-rollback
// decision. Open child savepoints must be resolved first.
func (s *Savepoint) Commit(ctx context.Context) error {
	if err := s.ensureOpen("commit"); err != nil {
		return err
	}
	if s.openChildren > 0 {
		return fmt.Errorf("%w: commit with %d open savepoint(s)", ErrInvalidState, s.openChildren)
	}
	if err := s.session.Release(ctx, s.handle); err != nil {
		s.state = StateRolledBack
		s.parent.releaseChild()
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}
	s.state = StateCommitted
	s.parent.releaseChild()
	s.log.Debug("savepoint released", zap.String("savepoint", string(s.handle)))
	return nil
}

// Rollback reverts the session to this savepoint, discarding all work
// issued since it was opened, including by deeper savepoints. Work done
// before it was opened is untouched.
func (s *Savepoint) Rollback(ctx context.Context) error {
	if err := s.ensureOpen("rollback"); err != nil {
		return err
	}
	s.state = StateRolledBack
	s.parent.releaseChild()
	if err := s.session.RollbackTo(ctx, s.handle); err != nil {
		return fmt.Errorf("rollback to savepoint: %w", err)
	}
	s.log.Debug("savepoint rolled back", zap.String("savepoint", string(s.handle)))
	return nil
}

// InSavepoint runs fn inside a child savepoint, committing it when fn
// returns nil and rolling it back when fn returns an error or panics.
func (s *Savepoint) InSavepoint(ctx context.Context, fn func(*Savepoint) error) error {
	return inSavepoint(ctx, s, fn)
}

func (s *Savepoint) open() bool          { return s.state == StateOpen && s.parent.open() }
func (s *Savepoint) adoptChild()         { s.openChildren++ }
func (s *Savepoint) releaseChild()       { s.openChildren-- }
func (s *Savepoint) logger() *zap.Logger { return s.log }
