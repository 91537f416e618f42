package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"omnia"
	"omnia/pg"
)

func withPostgres(t *testing.T) *pg.Factory {
	t.Helper()
	if os.Getenv("TESTCONTAINERS") == "" {
		t.Skip("set TESTCONTAINERS=1 to run containerized PG tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("omnia"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	factory, err := pg.Connect(ctx, dsn)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return factory.Ping(ctx) == nil }, time.Minute, 500*time.Millisecond)

	_, err = factory.Pool.Exec(ctx, `CREATE TABLE items (id INT PRIMARY KEY, label TEXT NOT NULL)`)
	require.NoError(t, err)

	t.Cleanup(func() {
		factory.Close()
		_ = container.Terminate(context.Background())
	})
	return factory
}

func countItems(t *testing.T, sess omnia.Session) int {
	t.Helper()
	var n int
	require.NoError(t, sess.QueryRow(context.Background(), `SELECT count(*) FROM items`).Scan(&n))
	return n
}

func Test_SavepointRollback_KeepsShallowerWork(t *testing.T) {
	factory := withPostgres(t)
	ctx := context.Background()

	err := omnia.Transact(ctx, factory, func(txn *omnia.Transaction) error {
		sess := txn.Session()
		require.NoError(t, sess.Exec(ctx, `INSERT INTO items VALUES (1, 'a')`))

		s1, err := txn.Savepoint(ctx)
		require.NoError(t, err)
		require.NoError(t, sess.Exec(ctx, `INSERT INTO items VALUES (2, 'b')`))

		s2, err := s1.Savepoint(ctx)
		require.NoError(t, err)
		require.NoError(t, sess.Exec(ctx, `INSERT INTO items VALUES (3, 'c')`))

		// rolling back the innermost savepoint discards only row 3
		require.NoError(t, s2.Rollback(ctx))
		require.Equal(t, 2, countItems(t, sess))

		require.NoError(t, s1.Commit(ctx))
		return nil
	})
	require.NoError(t, err)

	// rows 1 and 2 are durable after the outer commit
	err = omnia.Transact(ctx, factory, func(txn *omnia.Transaction) error {
		require.Equal(t, 2, countItems(t, txn.Session()))
		return nil
	})
	require.NoError(t, err)
}

func Test_ErrorInsideTransaction_DiscardsEverything(t *testing.T) {
	factory := withPostgres(t)
	ctx := context.Background()

	boom := os.ErrInvalid
	err := omnia.Transact(ctx, factory, func(txn *omnia.Transaction) error {
		require.NoError(t, txn.Session().Exec(ctx, `INSERT INTO items VALUES (1, 'a')`))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = omnia.Transact(ctx, factory, func(txn *omnia.Transaction) error {
		require.Equal(t, 0, countItems(t, txn.Session()))
		return nil
	})
	require.NoError(t, err)
}

func Test_FailedStatementInSavepoint_LeavesTransactionUsable(t *testing.T) {
	factory := withPostgres(t)
	ctx := context.Background()

	err := omnia.Transact(ctx, factory, func(txn *omnia.Transaction) error {
		sess := txn.Session()
		require.NoError(t, sess.Exec(ctx, `INSERT INTO items VALUES (1, 'a')`))

		// duplicate key inside a savepoint poisons only the savepoint
		spErr := txn.InSavepoint(ctx, func(sp *omnia.Savepoint) error {
			return sp.Session().Exec(ctx, `INSERT INTO items VALUES (1, 'dup')`)
		})
		require.Error(t, spErr)

		require.NoError(t, sess.Exec(ctx, `INSERT INTO items VALUES (2, 'b')`))
		return nil
	})
	require.NoError(t, err)

	err = omnia.Transact(ctx, factory, func(txn *omnia.Transaction) error {
		require.Equal(t, 2, countItems(t, txn.Session()))
		return nil
	})
	require.NoError(t, err)
}
