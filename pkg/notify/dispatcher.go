package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"funds-transfer/pkg/logging"
	"funds-transfer/pkg/metrics"

	"go.uber.org/zap"
)

// Dispatcher is an asynchronous Notifier. Notifications go onto a bounded
// queue and a worker pool hands them to a Sink. When the queue stays full
// for MaxWaitTime the notification is dropped and counted.
type Dispatcher struct {
	sink       Sink
	queue      chan Notification
	workers    int
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	config     DispatcherConfig
	metrics    metrics.Collector
	logger     *logging.Logger
	sinkName   string

	// Statistics (accessed atomically)
	pending   int64
	enqueued  int64
	delivered int64
	failed    int64
	dropped   int64

	metricsTicker *time.Ticker
	metricsStop   chan struct{}
}

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// QueueSize is the bounded queue size (default: 1000)
	QueueSize int

	// Workers is the number of concurrent deliverers (default: 2)
	Workers int

	// MaxWaitTime is how long Send waits on a full queue before dropping (default: 10ms)
	MaxWaitTime time.Duration

	// DepthReportInterval is how often queue depth goes to metrics (default: 5s)
	DepthReportInterval time.Duration

	// Metrics defaults to metrics.NoOpCollector
	Metrics metrics.Collector

	// Logger defaults to the global logger
	Logger *logging.Logger
}

// DefaultDispatcherConfig returns the defaults applied to zero fields.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:           1000,
		Workers:             2,
		MaxWaitTime:         10 * time.Millisecond,
		DepthReportInterval: 5 * time.Second,
	}
}

// NewDispatcher starts a dispatcher delivering to sink. It must be closed with Close.
func NewDispatcher(sink Sink, config DispatcherConfig) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.MaxWaitTime == 0 {
		config.MaxWaitTime = defaults.MaxWaitTime
	}
	if config.DepthReportInterval <= 0 {
		config.DepthReportInterval = defaults.DepthReportInterval
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NoOpCollector{}
	}
	if config.Logger == nil {
		config.Logger = logging.L()
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		sink:          sink,
		queue:         make(chan Notification, config.QueueSize),
		workers:       config.Workers,
		ctx:           ctx,
		cancelFunc:    cancel,
		config:        config,
		metrics:       config.Metrics,
		logger:        config.Logger.Named("notify").With(zap.String("sink", sink.Name())),
		sinkName:      sink.Name(),
		metricsTicker: time.NewTicker(config.DepthReportInterval),
		metricsStop:   make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	go d.reportMetrics()

	return d
}

// Notify enqueues n and never reports failure. Drops are logged and counted.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if err := d.Send(ctx, n); err != nil {
		d.logger.Warn("notification not queued",
			logging.AccountID(n.AccountID),
			logging.TransactionID(n.TransactionID),
			zap.Error(err),
		)
	}
}

// Send enqueues n, waiting up to MaxWaitTime on a full queue.
// Returns ErrQueueFull if the notification was dropped.
func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	select {
	case <-d.ctx.Done():
		return ErrDispatcherClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	atomic.AddInt64(&d.pending, 1)

	// Fast path when there is room.
	select {
	case d.queue <- n:
		atomic.AddInt64(&d.enqueued, 1)
		return nil
	default:
	}

	timer := time.NewTimer(d.config.MaxWaitTime)
	defer timer.Stop()

	select {
	case d.queue <- n:
		atomic.AddInt64(&d.enqueued, 1)
		return nil
	case <-timer.C:
		atomic.AddInt64(&d.pending, -1)
		atomic.AddInt64(&d.dropped, 1)
		d.metrics.RecordDeliveryDropped(d.sinkName)
		return ErrQueueFull
	case <-ctx.Done():
		atomic.AddInt64(&d.pending, -1)
		return ctx.Err()
	case <-d.ctx.Done():
		atomic.AddInt64(&d.pending, -1)
		return ErrDispatcherClosed
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.ctx.Done():
			// Drain what is left before exiting.
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	defer atomic.AddInt64(&d.pending, -1)

	start := time.Now()
	err := d.safeDeliver(n)
	duration := time.Since(start)

	d.metrics.RecordDelivery(d.sinkName, err == nil, duration)

	if err != nil {
		atomic.AddInt64(&d.failed, 1)
		d.logger.Warn("notification delivery failed",
			logging.AccountID(n.AccountID),
			logging.TransactionID(n.TransactionID),
			zap.String("role", string(n.Role)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	atomic.AddInt64(&d.delivered, 1)
}

// safeDeliver keeps a panicking sink from taking down a worker.
func (d *Dispatcher) safeDeliver(n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return d.sink.Deliver(context.Background(), n)
}

// Flush waits until every accepted notification has been delivered or failed.
func (d *Dispatcher) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if atomic.LoadInt64(&d.pending) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrFlushTimeout
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Close stops accepting notifications, delivers what is queued, then closes the sink.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.metricsStop)
		d.metricsTicker.Stop()

		d.cancelFunc()
		d.wg.Wait()

		err = d.sink.Close()
	})
	return err
}

func (d *Dispatcher) reportMetrics() {
	for {
		select {
		case <-d.metricsTicker.C:
			d.metrics.RecordQueueDepth(d.sinkName, len(d.queue))
		case <-d.metricsStop:
			return
		}
	}
}

// Stats returns current dispatcher statistics.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		QueueDepth: len(d.queue),
		Pending:    atomic.LoadInt64(&d.pending),
		Enqueued:   atomic.LoadInt64(&d.enqueued),
		Delivered:  atomic.LoadInt64(&d.delivered),
		Failed:     atomic.LoadInt64(&d.failed),
		Dropped:    atomic.LoadInt64(&d.dropped),
	}
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("notify: sink panicked: %v", e.value)
}
