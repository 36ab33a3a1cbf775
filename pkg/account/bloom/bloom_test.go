package bloom

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"funds-transfer/pkg/account"
	"funds-transfer/pkg/account/memory"

	"github.com/shopspring/decimal"
)

// countingStore records how often lookups reach the inner store.
type countingStore struct {
	*memory.Store
	lookups int64
}

func (c *countingStore) Get(ctx context.Context, id string) (account.Account, error) {
	atomic.AddInt64(&c.lookups, 1)
	return c.Store.Get(ctx, id)
}

func (c *countingStore) Resolve(ctx context.Context, id string) (*account.Entry, error) {
	atomic.AddInt64(&c.lookups, 1)
	return c.Store.Resolve(ctx, id)
}

func newCounting() *countingStore {
	return &countingStore{Store: memory.NewStore(memory.StoreConfig{Name: "inner"})}
}

func TestStore_Name(t *testing.T) {
	s := NewStore(newCounting(), 100, 0.01)
	if s.Name() != "bloom(inner)" {
		t.Errorf("unexpected name %q", s.Name())
	}
}

func TestStore_RejectsUnknownWithoutInnerLookup(t *testing.T) {
	inner := newCounting()
	s := NewStore(inner, 1000, 0.001)
	defer s.Close()

	ctx := context.Background()

	_, err := s.Get(ctx, "never-created")
	if !errors.Is(err, account.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	_, err = s.Resolve(ctx, "never-created")
	if !errors.Is(err, account.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	if n := atomic.LoadInt64(&inner.lookups); n != 0 {
		t.Errorf("expected no inner lookups, got %d", n)
	}

	stats := s.Stats()
	if stats.TotalQueries != 2 || stats.BloomRejected != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.RejectionRate != 1.0 {
		t.Errorf("expected rejection rate 1.0, got %f", stats.RejectionRate)
	}
}

func TestStore_PassesKnownIDs(t *testing.T) {
	inner := newCounting()
	s := NewStore(inner, 1000, 0.001)
	defer s.Close()

	ctx := context.Background()

	if err := s.Create(ctx, account.New("Id-1", decimal.NewFromInt(50))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	acct, err := s.Get(ctx, "Id-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !acct.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected balance 50, got %s", acct.Balance)
	}

	entry, err := s.Resolve(ctx, "Id-1")
	if err != nil || entry.ID() != "Id-1" {
		t.Fatalf("Resolve failed: %v", err)
	}

	if n := atomic.LoadInt64(&inner.lookups); n != 2 {
		t.Errorf("expected 2 inner lookups, got %d", n)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 account, got %d", s.Len())
	}
}

func TestStore_DuplicatePropagates(t *testing.T) {
	s := NewStore(newCounting(), 100, 0.01)
	defer s.Close()

	ctx := context.Background()
	_ = s.Create(ctx, account.New("dup", decimal.Zero))

	if err := s.Create(ctx, account.New("dup", decimal.Zero)); !account.IsDuplicate(err) {
		t.Errorf("expected duplicate error, got %v", err)
	}
}

func TestStore_NoFalseNegatives(t *testing.T) {
	s := NewStore(newCounting(), 500, 0.01)
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("acct-%d", i)
		if err := s.Create(ctx, account.New(id, decimal.Zero)); err != nil {
			t.Fatalf("Create(%s) failed: %v", id, err)
		}
	}

	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("acct-%d", i)
		if _, err := s.Get(ctx, id); err != nil {
			t.Errorf("Get(%s) failed: %v", id, err)
		}
	}

	if s.Stats().BloomRejected != 0 {
		t.Errorf("filter rejected a created account: %+v", s.Stats())
	}
}

func TestStore_ClearResetsFilter(t *testing.T) {
	inner := newCounting()
	s := NewStore(inner, 100, 0.01)
	defer s.Close()

	ctx := context.Background()
	_ = s.Create(ctx, account.New("A", decimal.Zero))
	_, _ = s.Get(ctx, "A")

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	before := atomic.LoadInt64(&inner.lookups)
	if _, err := s.Get(ctx, "A"); !account.IsNotFound(err) {
		t.Errorf("expected not found after Clear, got %v", err)
	}
	if atomic.LoadInt64(&inner.lookups) != before {
		t.Error("cleared id still reached the inner store")
	}
	if s.Stats().TotalQueries != 1 {
		t.Errorf("expected stats reset, got %+v", s.Stats())
	}
}

func TestStore_ImplementsInterface(t *testing.T) {
	var _ account.Store = (*Store)(nil)
}
