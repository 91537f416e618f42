package ledger

import (
	"context"
	"fmt"

	"omnia"
)

// Queries run on whatever session the enclosing scope provides, so the
// same code serves pg and sqlite factories. Placeholders use the $N
// form, which both engines accept.

func getBalance(ctx context.Context, sess omnia.Session, id string) (int64, error) {
	var balance int64
	if err := sess.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&balance); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return balance, nil
}

func addToBalance(ctx context.Context, sess omnia.Session, id string, delta int64) error {
	return sess.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, delta, id)
}

func insertAccount(ctx context.Context, sess omnia.Session, a Account) error {
	return sess.Exec(ctx, `INSERT INTO accounts (id, balance) VALUES ($1, $2)`, a.ID, a.Balance)
}

func insertTransfer(ctx context.Context, sess omnia.Session, t Transfer) error {
	return sess.Exec(ctx, `
        INSERT INTO transfers (id, from_account, to_account, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.From, t.To, t.Amount, t.CreatedAt)
}

func insertAudit(ctx context.Context, sess omnia.Session, transferID, note string) error {
	return sess.Exec(ctx, `INSERT INTO audit_log (transfer_id, note) VALUES ($1, $2)`, transferID, note)
}
