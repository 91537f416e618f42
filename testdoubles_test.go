package omnia

import (
	"context"
	"fmt"
)

// fakeSession records every call so tests can assert on the exact
// sequence of engine operations a scope issued.
type fakeSession struct {
	ops   []string
	spSeq int

	execErr        error
	commitErr      error
	rollbackErr    error
	beginNestedErr error
	releaseErr     error
	rollbackToErr  error
	closeErr       error

	closeCalls int
}

func (f *fakeSession) Exec(_ context.Context, query string, _ ...any) error {
	if f.execErr != nil {
		return f.execErr
	}
	f.ops = append(f.ops, "exec "+query)
	return nil
}

func (f *fakeSession) Query(context.Context, string, ...any) (Rows, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeSession) QueryRow(context.Context, string, ...any) Row { return nil }

func (f *fakeSession) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.ops = append(f.ops, "commit")
	return nil
}

func (f *fakeSession) Rollback(context.Context) error {
	if f.rollbackErr != nil {
		return f.rollbackErr
	}
	f.ops = append(f.ops, "rollback")
	return nil
}

func (f *fakeSession) BeginNested(context.Context) (SavepointHandle, error) {
	if f.beginNestedErr != nil {
		return "", f.beginNestedErr
	}
	f.spSeq++
	name := fmt.Sprintf("sp%d", f.spSeq)
	f.ops = append(f.ops, "savepoint "+name)
	return SavepointHandle(name), nil
}

func (f *fakeSession) RollbackTo(_ context.Context, sp SavepointHandle) error {
	if f.rollbackToErr != nil {
		return f.rollbackToErr
	}
	f.ops = append(f.ops, "rollback_to "+string(sp))
	return nil
}

func (f *fakeSession) Release(_ context.Context, sp SavepointHandle) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.ops = append(f.ops, "release "+string(sp))
	return nil
}

func (f *fakeSession) Close(context.Context) error {
	f.closeCalls++
	if f.closeErr != nil {
		return f.closeErr
	}
	f.ops = append(f.ops, "close")
	return nil
}

type fakeFactory struct {
	createErr error
	sessions  []*fakeSession
}

func (f *fakeFactory) CreateSession(context.Context) (Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	s := &fakeSession{}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeFactory) last() *fakeSession { return f.sessions[len(f.sessions)-1] }
