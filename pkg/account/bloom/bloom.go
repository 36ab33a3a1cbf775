package bloom

import (
	"context"
	"sync"

	"funds-transfer/pkg/account"

	"github.com/bits-and-blooms/bloom/v3"
)

// Store puts a bloom filter in front of an account store so lookups of ids
// that were never created are rejected without touching the inner store.
type Store struct {
	inner  account.Store
	filter *bloom.BloomFilter
	mu     sync.RWMutex

	expected uint
	fpRate   float64

	totalQueries   uint64
	bloomRejected  uint64
	falsePositives uint64
}

// NewStore wraps inner. expectedAccounts and falsePositiveRate size the filter.
func NewStore(inner account.Store, expectedAccounts uint, falsePositiveRate float64) *Store {
	if expectedAccounts == 0 {
		expectedAccounts = 10000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	return &Store{
		inner:    inner,
		filter:   bloom.NewWithEstimates(expectedAccounts, falsePositiveRate),
		expected: expectedAccounts,
		fpRate:   falsePositiveRate,
	}
}

// Name returns the wrapped store's name.
func (s *Store) Name() string {
	return "bloom(" + s.inner.Name() + ")"
}

// Create records the id in the filter and then creates it in the inner store.
// The id is added first so a concurrent lookup never misses a created account.
func (s *Store) Create(ctx context.Context, acct account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.filter.AddString(acct.ID)
	s.mu.Unlock()

	return s.inner.Create(ctx, acct)
}

// Get returns a snapshot, short-circuiting unknown ids.
func (s *Store) Get(ctx context.Context, id string) (account.Account, error) {
	if !s.mayExist(id) {
		return account.Account{}, account.ErrAccountNotFound
	}

	acct, err := s.inner.Get(ctx, id)
	s.countFalsePositive(err)
	return acct, err
}

// Resolve returns the live entry, short-circuiting unknown ids.
func (s *Store) Resolve(ctx context.Context, id string) (*account.Entry, error) {
	if !s.mayExist(id) {
		return nil, account.ErrAccountNotFound
	}

	entry, err := s.inner.Resolve(ctx, id)
	s.countFalsePositive(err)
	return entry, err
}

// Clear empties the inner store and resets the filter.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.inner.Clear(ctx); err != nil {
		return err
	}
	s.Reset()
	return nil
}

// Len returns the inner store's account count.
func (s *Store) Len() int {
	return s.inner.Len()
}

// Close closes the inner store.
func (s *Store) Close() error {
	return s.inner.Close()
}

// Reset clears the filter and its statistics.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter = bloom.NewWithEstimates(s.expected, s.fpRate)
	s.totalQueries = 0
	s.bloomRejected = 0
	s.falsePositives = 0
}

func (s *Store) mayExist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalQueries++
	if !s.filter.TestString(id) {
		s.bloomRejected++
		return false
	}
	return true
}

func (s *Store) countFalsePositive(err error) {
	if account.IsNotFound(err) {
		s.mu.Lock()
		s.falsePositives++
		s.mu.Unlock()
	}
}

// Stats returns statistics about the filter.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rejectionRate := 0.0
	falsePositiveRate := 0.0

	if s.totalQueries > 0 {
		rejectionRate = float64(s.bloomRejected) / float64(s.totalQueries)
		queried := s.totalQueries - s.bloomRejected
		if queried > 0 {
			falsePositiveRate = float64(s.falsePositives) / float64(queried)
		}
	}

	return Stats{
		TotalQueries:      s.totalQueries,
		BloomRejected:     s.bloomRejected,
		FalsePositives:    s.falsePositives,
		RejectionRate:     rejectionRate,
		FalsePositiveRate: falsePositiveRate,
		FilterCapacity:    s.filter.Cap(),
	}
}

// Stats holds bloom filter statistics.
type Stats struct {
	TotalQueries      uint64
	BloomRejected     uint64
	FalsePositives    uint64
	RejectionRate     float64
	FalsePositiveRate float64
	FilterCapacity    uint
}
