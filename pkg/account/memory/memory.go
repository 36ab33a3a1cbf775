package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"funds-transfer/pkg/account"
	"funds-transfer/pkg/logging"

	"go.uber.org/zap"
)

// Store is an in-process account store satisfying account.Store.
// Entries live for the life of the process; nothing is persisted.
type Store struct {
	// data maps account id to its live entry
	data map[string]*account.Entry

	// mu guards data, not the entries themselves
	mu sync.RWMutex

	config StoreConfig
	logger *logging.Logger
	closed bool
}

// StoreConfig holds configuration for the memory store.
type StoreConfig struct {
	// Name is the store identifier used in logs and errors
	Name string

	// MaxAccounts caps the number of accounts (0 = unlimited)
	MaxAccounts int

	// Logger defaults to the global logger
	Logger *logging.Logger
}

// ErrCapacity is returned by Create when MaxAccounts is reached.
var ErrCapacity = errors.New("account: store capacity reached")

// NewStore creates an empty memory store.
func NewStore(config StoreConfig) *Store {
	if config.Name == "" {
		config.Name = "memory"
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.L()
	}

	return &Store{
		data:   make(map[string]*account.Entry),
		config: config,
		logger: logger.Named("store").Named(config.Name),
	}
}

// Create inserts acct unless its id already exists.
func (s *Store) Create(ctx context.Context, acct account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := account.ValidateID(acct.ID); err != nil {
		return err
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	entry := account.NewEntry(acct)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return account.ErrStoreClosed
	}
	if _, exists := s.data[acct.ID]; exists {
		return &account.DuplicateAccountError{ID: acct.ID}
	}
	if s.config.MaxAccounts > 0 && len(s.data) >= s.config.MaxAccounts {
		return ErrCapacity
	}
	s.data[acct.ID] = entry

	s.logger.Debug("account created",
		logging.AccountID(acct.ID),
		logging.Amount("balance", acct.Balance),
	)
	return nil
}

// Get returns a snapshot of the account. It waits for any transfer holding
// the account lock, so it never sees a half-applied transfer.
func (s *Store) Get(ctx context.Context, id string) (account.Account, error) {
	entry, err := s.Resolve(ctx, id)
	if err != nil {
		return account.Account{}, err
	}
	return entry.Snapshot(ctx)
}

// Resolve returns the live entry for id.
func (s *Store) Resolve(ctx context.Context, id string) (*account.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, exists := s.data[id]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, account.ErrStoreClosed
	}
	if !exists {
		return nil, account.ErrAccountNotFound
	}
	return entry, nil
}

// Clear removes every account.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return account.ErrStoreClosed
	}
	n := len(s.data)
	s.data = make(map[string]*account.Entry)

	s.logger.Info("store cleared", zap.Int("removed", n))
	return nil
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.config.Name
}

// Close drops all data. Later calls fail with account.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}

// Stats returns current store statistics.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{
		Size:     len(s.data),
		Capacity: s.config.MaxAccounts,
	}
	if stats.Capacity == 0 {
		stats.Capacity = -1 // unlimited
	}
	return stats
}

// StoreStats holds store statistics.
type StoreStats struct {
	Size     int // Current number of accounts
	Capacity int // Max accounts (-1 = unlimited)
}
