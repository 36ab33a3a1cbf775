package resilience

import (
	"context"
	"errors"
	"time"

	"funds-transfer/pkg/logging"
	"funds-transfer/pkg/metrics"
	"funds-transfer/pkg/notify"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects deliveries
	ErrCircuitOpen = errors.New("resilience: circuit breaker open")

	// ErrTimeout is returned when a delivery exceeds its timeout
	ErrTimeout = errors.New("resilience: delivery timeout")
)

// Sink wraps a notify.Sink with a per-delivery timeout and a circuit breaker,
// so a dead backend fails fast instead of tying up dispatcher workers.
type Sink struct {
	sink    notify.Sink
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// NewSink wraps sink with the given config.
func NewSink(sink notify.Sink, config Config) *Sink {
	return NewSinkWithMetrics(sink, config, metrics.NoOpCollector{})
}

// NewSinkWithMetrics wraps sink and reports breaker state changes to collector.
func NewSinkWithMetrics(sink notify.Sink, config Config, collector metrics.Collector) *Sink {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	logger := logging.L().Named("resilience").Named(sink.Name())

	rs := &Sink{
		sink:    sink,
		timeout: config.Timeout,
		metrics: collector,
		logger:  logger,
	}

	logger.Info("resilient sink initialized",
		zap.String("sink", sink.Name()),
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreakerConfig.MaxRequests),
		zap.Duration("circuit_interval", config.CircuitBreakerConfig.Interval),
		zap.Duration("circuit_timeout", config.CircuitBreakerConfig.Timeout),
	)

	tripFn := config.CircuitBreakerConfig.ReadyToTrip
	if tripFn == nil {
		tripFn = ConsecutiveFailures(5)
	}

	settings := gobreaker.Settings{
		Name:        sink.Name(),
		MaxRequests: config.CircuitBreakerConfig.MaxRequests,
		Interval:    config.CircuitBreakerConfig.Interval,
		Timeout:     config.CircuitBreakerConfig.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return tripFn(Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			})
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("sink", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			rs.metrics.RecordCircuitState(name, circuitState(to))
		},
	}

	rs.cb = gobreaker.NewCircuitBreaker(settings)

	return rs
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// Name returns the wrapped sink's name.
func (rs *Sink) Name() string {
	return rs.sink.Name()
}

// State returns the breaker state.
func (rs *Sink) State() metrics.CircuitState {
	return circuitState(rs.cb.State())
}

// Deliver runs the wrapped delivery through the breaker with a timeout.
func (rs *Sink) Deliver(ctx context.Context, n notify.Notification) error {
	start := time.Now()

	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	_, err := rs.cb.Execute(func() (interface{}, error) {
		return nil, rs.sink.Deliver(ctx, n)
	})
	if err == nil {
		return nil
	}

	duration := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		rs.logger.Debug("circuit breaker open - delivery rejected",
			logging.TransactionID(n.TransactionID),
		)
		return ErrCircuitOpen
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		rs.logger.Warn("delivery timeout",
			logging.TransactionID(n.TransactionID),
			zap.Duration("timeout", rs.timeout),
			zap.Duration("elapsed", duration),
		)
		return ErrTimeout
	}
	return err
}

// Close closes the wrapped sink.
func (rs *Sink) Close() error {
	return rs.sink.Close()
}
