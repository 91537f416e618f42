// Package omnia makes transaction and savepoint boundaries explicit.
//
// A Transaction owns one database session for its whole lifetime; any
// number of Savepoints can be nested inside it, each marking a point
// the session can be partially rolled back to. Scopes follow a single
// one-way state machine: open, then either committed or rolled back.
//
// The usual entry point is Transact, which commits when the given
// function returns nil and rolls back when it returns an error or
// panics, releasing the session on every path:
//
//	err := omnia.Transact(ctx, factory, func(txn *omnia.Transaction) error {
//		if err := txn.Session().Exec(ctx, insertRow, 1); err != nil {
//			return err
//		}
//		return txn.InSavepoint(ctx, func(sp *omnia.Savepoint) error {
//			return sp.Session().Exec(ctx, insertAudit, 1)
//		})
//	})
//
// All engine-specific behavior lives behind the Session and
// SessionFactory interfaces; see the pg and sqlite packages for the
// bundled implementations.
package omnia
