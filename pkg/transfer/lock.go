package transfer

import (
	"context"
	"fmt"

	"funds-transfer/pkg/account"
)

// lockPair locks both entries in ascending id order and returns the matching
// unlock. Every caller uses the same order, so two transfers over the same
// pair in opposite directions cannot deadlock. A self-transfer locks once.
func lockPair(ctx context.Context, a, b *account.Entry) (unlock func(), err error) {
	if a.ID() == b.ID() {
		if err := a.Lock(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, a.ID(), err)
		}
		return a.Unlock, nil
	}

	first, second := a, b
	if firstID, _ := account.Ordered(a.ID(), b.ID()); firstID != a.ID() {
		first, second = b, a
	}

	if err := first.Lock(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, first.ID(), err)
	}
	if err := second.Lock(ctx); err != nil {
		first.Unlock()
		return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, second.ID(), err)
	}

	return func() {
		second.Unlock()
		first.Unlock()
	}, nil
}
