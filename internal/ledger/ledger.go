// Package ledger is a small transfer service demonstrating omnia's
// transaction and savepoint scopes end to end: every money movement is
// one transaction, best-effort bookkeeping rides in a savepoint so its
// failure cannot take the transfer down.
package ledger

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("ledger: account not found")
	ErrAccountExists     = errors.New("ledger: account already exists")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrDuplicateRequest  = errors.New("ledger: duplicate request")
	ErrBadRequest        = errors.New("ledger: bad request")
)

type Account struct {
	ID      string
	Balance int64
}

type Transfer struct {
	ID        string
	From      string
	To        string
	Amount    int64
	CreatedAt time.Time
}
