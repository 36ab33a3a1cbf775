package account

import (
	"context"
)

// Store owns the mapping from account id to account state.
// All methods must be safe for concurrent use.
type Store interface {
	// Create inserts acct if its id is unused.
	// The existence check and the insert are a single atomic step.
	// Returns an error matching ErrDuplicateAccountID if the id is taken.
	Create(ctx context.Context, acct Account) error

	// Get returns a snapshot of the account, or ErrAccountNotFound.
	Get(ctx context.Context, id string) (Account, error)

	// Resolve returns the live entry for id, or ErrAccountNotFound.
	// Only the transfer path should mutate entries, and only under their lock.
	Resolve(ctx context.Context, id string) (*Entry, error)

	// Clear removes every account. Not safe to run alongside transfers.
	Clear(ctx context.Context) error

	// Len returns the number of accounts.
	Len() int

	// Name identifies the store in logs and metrics.
	Name() string

	// Close releases store resources.
	Close() error
}
