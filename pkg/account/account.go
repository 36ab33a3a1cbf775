package account

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// Account is a point-in-time copy of an account's state.
// Values returned by stores are snapshots; mutating one has no effect on the store.
type Account struct {
	ID        string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// New returns an account with the given opening balance.
func New(id string, balance decimal.Decimal) Account {
	return Account{ID: id, Balance: balance}
}

// Entry is the store-owned record behind an account id.
// It carries the account's lock; balance mutations require the lock to be held.
type Entry struct {
	lock  *semaphore.Weighted
	state Account
}

// NewEntry creates an unlocked entry holding acct.
// Zero timestamps are set to now.
func NewEntry(acct Account) *Entry {
	now := time.Now().UTC()
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = now
	}
	if acct.UpdatedAt.IsZero() {
		acct.UpdatedAt = acct.CreatedAt
	}
	return &Entry{
		lock:  semaphore.NewWeighted(1),
		state: acct,
	}
}

// ID returns the immutable account id. Safe without the lock.
func (e *Entry) ID() string {
	return e.state.ID
}

// Lock acquires the account lock, blocking until it is free or ctx is done.
func (e *Entry) Lock(ctx context.Context) error {
	return e.lock.Acquire(ctx, 1)
}

// TryLock acquires the lock only if it is free.
func (e *Entry) TryLock() bool {
	return e.lock.TryAcquire(1)
}

// Unlock releases the account lock.
func (e *Entry) Unlock() {
	e.lock.Release(1)
}

// Balance returns the current balance. Caller must hold the lock.
func (e *Entry) Balance() decimal.Decimal {
	return e.state.Balance
}

// Debit subtracts amount from the balance. Caller must hold the lock.
// Returns ErrInsufficientFunds and leaves the balance untouched if it would go negative.
func (e *Entry) Debit(amount decimal.Decimal, at time.Time) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: debit of %s", ErrInvalidAmount, amount)
	}
	if e.state.Balance.LessThan(amount) {
		return fmt.Errorf("%w: account %s has %s, needs %s",
			ErrInsufficientFunds, e.state.ID, e.state.Balance, amount)
	}
	e.state.Balance = e.state.Balance.Sub(amount)
	e.state.UpdatedAt = at
	return nil
}

// Credit adds amount to the balance. Caller must hold the lock.
func (e *Entry) Credit(amount decimal.Decimal, at time.Time) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: credit of %s", ErrInvalidAmount, amount)
	}
	e.state.Balance = e.state.Balance.Add(amount)
	e.state.UpdatedAt = at
	return nil
}

// Snapshot copies the account state under the lock, so it never observes a
// transfer halfway through.
func (e *Entry) Snapshot(ctx context.Context) (Account, error) {
	if err := e.Lock(ctx); err != nil {
		return Account{}, err
	}
	defer e.Unlock()
	return e.state, nil
}

// Locked copies the account state. Caller must hold the lock.
func (e *Entry) Locked() Account {
	return e.state
}
