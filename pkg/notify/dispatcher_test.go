package notify_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	metricsmem "funds-transfer/pkg/metrics/memory"
	"funds-transfer/pkg/notify"
	"funds-transfer/pkg/notify/mock"
)

func note(account, tx string) notify.Notification {
	return notify.Notification{AccountID: account, TransactionID: tx, Role: notify.RoleSender}
}

func TestDispatcher_Delivers(t *testing.T) {
	sink := &mock.Sink{}
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{QueueSize: 10, Workers: 2})
	defer d.Close()

	for i := 0; i < 5; i++ {
		if err := d.Send(context.Background(), note("A", fmt.Sprintf("tx-%d", i))); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	if err := d.Flush(time.Second); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if got := len(sink.Delivered()); got != 5 {
		t.Errorf("expected 5 deliveries, got %d", got)
	}

	stats := d.Stats()
	if stats.Enqueued != 5 || stats.Delivered != 5 || stats.Pending != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDispatcher_NotifyDoesNotBlockOnSlowSink(t *testing.T) {
	release := make(chan struct{})
	sink := &mock.Sink{
		DeliverFunc: func(ctx context.Context, n notify.Notification) error {
			<-release
			return nil
		},
	}
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{QueueSize: 10, Workers: 1})
	defer d.Close()
	defer close(release)

	start := time.Now()
	d.Notify(context.Background(), note("A", "tx-1"))
	d.Notify(context.Background(), note("B", "tx-1"))
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Notify blocked for %v", elapsed)
	}
}

func TestDispatcher_DropsOnBackpressure(t *testing.T) {
	release := make(chan struct{})
	sink := &mock.Sink{
		NameFunc: func() string { return "slow" },
		DeliverFunc: func(ctx context.Context, n notify.Notification) error {
			<-release
			return nil
		},
	}
	collector := metricsmem.NewCollector()
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{
		QueueSize:   1,
		Workers:     1,
		MaxWaitTime: 5 * time.Millisecond,
		Metrics:     collector,
	})

	// One in the worker, one in the queue, the rest are dropped.
	var dropped int
	for i := 0; i < 10; i++ {
		err := d.Send(context.Background(), note("A", fmt.Sprintf("tx-%d", i)))
		if errors.Is(err, notify.ErrQueueFull) {
			dropped++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if dropped < 8 {
		t.Errorf("expected at least 8 drops, got %d", dropped)
	}
	if got := d.Stats().Dropped; got != int64(dropped) {
		t.Errorf("stats dropped = %d, want %d", got, dropped)
	}
	if sm := collector.Sink("slow"); sm == nil || sm.Dropped != int64(dropped) {
		t.Errorf("metrics did not record drops: %+v", sm)
	}

	close(release)
	d.Close()
}

func TestDispatcher_FailuresAreCounted(t *testing.T) {
	sink := &mock.Sink{
		DeliverFunc: func(ctx context.Context, n notify.Notification) error {
			return errors.New("smtp down")
		},
	}
	collector := metricsmem.NewCollector()
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{Metrics: collector})
	defer d.Close()

	d.Notify(context.Background(), note("A", "tx-1"))
	d.Notify(context.Background(), note("B", "tx-1"))

	if err := d.Flush(time.Second); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if got := d.Stats().Failed; got != 2 {
		t.Errorf("expected 2 failures, got %d", got)
	}
	if sm := collector.Sink("mock"); sm == nil || sm.Failed != 2 {
		t.Errorf("metrics did not record failures: %+v", sm)
	}
}

func TestDispatcher_SurvivesPanickingSink(t *testing.T) {
	var calls int64
	sink := &mock.Sink{
		DeliverFunc: func(ctx context.Context, n notify.Notification) error {
			if atomic.AddInt64(&calls, 1) == 1 {
				panic("boom")
			}
			return nil
		},
	}
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{Workers: 1})
	defer d.Close()

	d.Notify(context.Background(), note("A", "tx-1"))
	d.Notify(context.Background(), note("A", "tx-2"))

	if err := d.Flush(time.Second); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	stats := d.Stats()
	if stats.Failed != 1 || stats.Delivered != 1 {
		t.Errorf("unexpected stats after panic: %+v", stats)
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	sink := &mock.Sink{
		DeliverFunc: func(ctx context.Context, n notify.Notification) error {
			time.Sleep(time.Millisecond)
			mu.Lock()
			seen = append(seen, n.TransactionID)
			mu.Unlock()
			return nil
		},
	}
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{QueueSize: 100, Workers: 1})

	for i := 0; i < 20; i++ {
		if err := d.Send(context.Background(), note("A", fmt.Sprintf("tx-%d", i))); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 20 {
		t.Errorf("expected 20 deliveries after Close, got %d", len(seen))
	}
	if sink.CloseCalls() != 1 {
		t.Errorf("expected sink closed once, got %d", sink.CloseCalls())
	}
}

func TestDispatcher_SendAfterClose(t *testing.T) {
	sink := &mock.Sink{}
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{})
	d.Close()

	if err := d.Send(context.Background(), note("A", "tx")); !errors.Is(err, notify.ErrDispatcherClosed) {
		t.Errorf("expected ErrDispatcherClosed, got %v", err)
	}

	// Close is idempotent.
	if err := d.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if sink.CloseCalls() != 1 {
		t.Errorf("expected sink closed once, got %d", sink.CloseCalls())
	}
}

func TestDispatcher_SendCancelledContext(t *testing.T) {
	d := notify.NewDispatcher(&mock.Sink{}, notify.DispatcherConfig{})
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Send(ctx, note("A", "tx")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if d.Stats().Pending != 0 {
		t.Errorf("cancelled send left pending work: %+v", d.Stats())
	}
}

func TestDispatcher_FlushTimeout(t *testing.T) {
	release := make(chan struct{})
	sink := &mock.Sink{
		DeliverFunc: func(ctx context.Context, n notify.Notification) error {
			<-release
			return nil
		},
	}
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{Workers: 1})
	defer d.Close()
	defer close(release)

	_ = d.Send(context.Background(), note("A", "tx"))

	if err := d.Flush(20 * time.Millisecond); !errors.Is(err, notify.ErrFlushTimeout) {
		t.Errorf("expected ErrFlushTimeout, got %v", err)
	}
}

func TestDispatcher_ReportsQueueDepth(t *testing.T) {
	collector := metricsmem.NewCollector()
	d := notify.NewDispatcher(&mock.Sink{}, notify.DispatcherConfig{
		Metrics:             collector,
		DepthReportInterval: 5 * time.Millisecond,
	})
	defer d.Close()

	deadline := time.Now().Add(time.Second)
	for collector.Sink("mock") == nil {
		if time.Now().After(deadline) {
			t.Fatal("queue depth was never reported")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcher_ImplementsNotifier(t *testing.T) {
	var _ notify.Notifier = (*notify.Dispatcher)(nil)
}
