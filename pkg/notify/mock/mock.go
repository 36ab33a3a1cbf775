package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"funds-transfer/pkg/notify"
)

// Sink is a mock notify.Sink for testing.
// Set the hooks to inject behavior; every delivered notification is recorded.
type Sink struct {
	// Function hooks - set these to customize behavior
	DeliverFunc func(ctx context.Context, n notify.Notification) error
	NameFunc    func() string
	CloseFunc   func() error

	mu        sync.Mutex
	delivered []notify.Notification

	// Call tracking (must use atomic operations for race-free access)
	deliverCalls int64
	closeCalls   int64
}

// Deliver records n and runs DeliverFunc if set.
func (m *Sink) Deliver(ctx context.Context, n notify.Notification) error {
	atomic.AddInt64(&m.deliverCalls, 1)
	if m.DeliverFunc != nil {
		if err := m.DeliverFunc(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.delivered = append(m.delivered, n)
	m.mu.Unlock()
	return nil
}

// Name returns NameFunc() or "mock".
func (m *Sink) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// Close runs CloseFunc if set.
func (m *Sink) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// DeliverCalls returns the number of Deliver calls, failed ones included.
func (m *Sink) DeliverCalls() int64 {
	return atomic.LoadInt64(&m.deliverCalls)
}

// CloseCalls returns the number of Close calls.
func (m *Sink) CloseCalls() int64 {
	return atomic.LoadInt64(&m.closeCalls)
}

// Delivered returns a copy of the successfully delivered notifications.
func (m *Sink) Delivered() []notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Notification(nil), m.delivered...)
}

// Notifier is a synchronous notify.Notifier that records everything it receives.
type Notifier struct {
	// NotifyFunc runs before the notification is recorded
	NotifyFunc func(ctx context.Context, n notify.Notification)

	mu    sync.Mutex
	calls []notify.Notification
}

// Notify records n.
func (m *Notifier) Notify(ctx context.Context, n notify.Notification) {
	if m.NotifyFunc != nil {
		m.NotifyFunc(ctx, n)
	}
	m.mu.Lock()
	m.calls = append(m.calls, n)
	m.mu.Unlock()
}

// Calls returns a copy of every notification received.
func (m *Notifier) Calls() []notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Notification(nil), m.calls...)
}
