// Package ledger holds the balance and transaction history of the single logged-in account.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

// Ledger is the running balance plus the append-only list of transactions.
// ApplyPayment is its only mutator.
type Ledger struct {
	mu      sync.RWMutex
	balance decimal.Decimal
	history []domain.Transaction

	now   func() time.Time
	newID func() string
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDs overrides the transaction ID generator.
func WithIDs(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// New opens a ledger with the given non-negative balance.
func New(opening decimal.Decimal, opts ...Option) (*Ledger, error) {
	if opening.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance must not be negative", domain.ErrInvalidAmount)
	}
	if err := domain.CheckMoney(opening); err != nil {
		return nil, err
	}
	l := &Ledger{
		balance: opening,
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// ApplyPayment debits amount and appends the matching transaction in one step.
// On failure neither the balance nor the history changes.
func (l *Ledger) ApplyPayment(amount decimal.Decimal, counterpartyName, counterpartyCNIC string) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	if err := domain.CheckMoney(amount); err != nil {
		return domain.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance.LessThan(amount) {
		return domain.Transaction{}, fmt.Errorf("%w: balance %s, requested %s",
			domain.ErrInsufficientFunds, l.balance.StringFixed(2), amount.StringFixed(2))
	}

	after := l.balance.Sub(amount)
	tx := domain.Transaction{
		ID:               l.newID(),
		Timestamp:        l.now(),
		Kind:             domain.KindPaymentTx,
		Amount:           amount,
		CounterpartyName: counterpartyName,
		CounterpartyCNIC: counterpartyCNIC,
		BalanceAfter:     after,
	}
	l.balance = after
	l.history = append(l.history, tx)
	return tx, nil
}

// Balance returns the current balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// History returns a copy of the transactions in append order.
func (l *Ledger) History() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Transaction(nil), l.history...)
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}

// Snapshot reads the balance and history under one lock.
func (l *Ledger) Snapshot() (decimal.Decimal, []domain.Transaction) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance, append([]domain.Transaction(nil), l.history...)
}
