package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"omnia"
)

// IdempotencyStore reserves request keys so retried transfers are not
// applied twice.
type IdempotencyStore interface {
	TryReserve(ctx context.Context, key string) (bool, error)
}

// NoopIdempotency accepts every key.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }

type Service struct {
	factory omnia.SessionFactory
	idem    IdempotencyStore
	clock   func() time.Time
	idgen   func() string
	log     *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.clock = now } }
func WithIDGen(gen func() string) Option    { return func(s *Service) { s.idgen = gen } }

func NewService(factory omnia.SessionFactory, idem IdempotencyStore, log *zap.Logger, opts ...Option) *Service {
	s := &Service{factory: factory, idem: idem, log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.idgen == nil {
		s.idgen = uuid.NewString
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// CreateAccount opens an account with the given starting balance.
func (s *Service) CreateAccount(ctx context.Context, id string, balance int64) (Account, error) {
	if id == "" || balance < 0 {
		return Account{}, fmt.Errorf("%w: id and a non-negative balance are required", ErrBadRequest)
	}
	a := Account{ID: id, Balance: balance}
	err := omnia.Transact(ctx, s.factory, func(txn *omnia.Transaction) error {
		if _, err := getBalance(ctx, txn.Session(), id); err == nil {
			return fmt.Errorf("%w: %q", ErrAccountExists, id)
		}
		return insertAccount(ctx, txn.Session(), a)
	}, omnia.WithLogger(s.log))
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// Account returns the current balance.
func (s *Service) Account(ctx context.Context, id string) (Account, error) {
	var a Account
	err := omnia.Transact(ctx, s.factory, func(txn *omnia.Transaction) error {
		balance, err := getBalance(ctx, txn.Session(), id)
		if err != nil {
			return err
		}
		a = Account{ID: id, Balance: balance}
		return nil
	}, omnia.WithLogger(s.log))
	return a, err
}

// Transfer moves amount from one account to another in a single
// transaction. When idemKey is set it is reserved first; a key seen
// before yields ErrDuplicateRequest. The audit row is written inside a
// savepoint: if it fails, only the audit row is discarded and the
// transfer still commits.
func (s *Service) Transfer(ctx context.Context, from, to string, amount int64, idemKey string) (Transfer, error) {
	if from == "" || to == "" || from == to || amount <= 0 {
		return Transfer{}, fmt.Errorf("%w: distinct accounts and a positive amount are required", ErrBadRequest)
	}
	if idemKey != "" {
		ok, err := s.idem.TryReserve(ctx, idemKey)
		if err != nil {
			return Transfer{}, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !ok {
			return Transfer{}, ErrDuplicateRequest
		}
	}

	tr := Transfer{
		ID:        s.idgen(),
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: s.clock().UTC(),
	}
	err := omnia.Transact(ctx, s.factory, func(txn *omnia.Transaction) error {
		sess := txn.Session()

		balance, err := getBalance(ctx, sess, from)
		if err != nil {
			return err
		}
		if balance < amount {
			return fmt.Errorf("%w: %q has %d, needs %d", ErrInsufficientFunds, from, balance, amount)
		}
		if _, err := getBalance(ctx, sess, to); err != nil {
			return err
		}

		if err := addToBalance(ctx, sess, from, -amount); err != nil {
			return err
		}
		if err := addToBalance(ctx, sess, to, amount); err != nil {
			return err
		}
		if err := insertTransfer(ctx, sess, tr); err != nil {
			return err
		}

		// best effort: a failed audit write rolls back only itself
		if err := txn.InSavepoint(ctx, func(sp *omnia.Savepoint) error {
			return insertAudit(ctx, sp.Session(), tr.ID, fmt.Sprintf("%s -> %s: %d", from, to, amount))
		}); err != nil {
			s.log.Warn("audit write discarded", zap.String("transfer_id", tr.ID), zap.Error(err))
		}
		return nil
	}, omnia.WithLogger(s.log))
	if err != nil {
		return Transfer{}, err
	}
	return tr, nil
}
