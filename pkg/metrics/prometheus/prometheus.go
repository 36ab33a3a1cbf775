package prometheus

import (
	"time"

	"funds-transfer/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	namespace string

	// Accounts
	accountCreates *prometheus.CounterVec

	// Transfers
	transfers       *prometheus.CounterVec
	transferLatency *prometheus.HistogramVec
	lockWait        prometheus.Histogram

	// Notification delivery
	deliveries      *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec
	dropped         *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec
}

// NewCollector creates a Prometheus collector. Call Register before use.
func NewCollector(namespace string) *Collector {
	latencyBuckets := prometheus.ExponentialBuckets(0.0001, 2, 15) // 0.1ms to ~3s

	return &Collector{
		namespace: namespace,
		accountCreates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_creates_total",
				Help:      "Total number of account creation attempts by result",
			},
			[]string{"result"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total number of transfers by status and decline reason",
			},
			[]string{"status", "reason"},
		),
		transferLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer latency from request to outcome",
				Buckets:   latencyBuckets,
			},
			[]string{"status"},
		),
		lockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lock_wait_seconds",
				Help:      "Time spent acquiring both account locks",
				Buckets:   latencyBuckets,
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of notification deliveries per sink and status",
			},
			[]string{"sink", "status"},
		),
		deliveryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_duration_seconds",
				Help:      "Notification delivery latency per sink",
				Buckets:   latencyBuckets,
			},
			[]string{"sink"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Total number of notifications dropped on a full queue",
			},
			[]string{"sink"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "notification_queue_depth",
				Help:      "Current notification queue depth per sink",
			},
			[]string{"sink"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per sink",
			},
			[]string{"sink"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per sink (0=closed, 1=open, 2=half-open)",
			},
			[]string{"sink"},
		),
	}
}

// Register registers all metrics with registry.
func (c *Collector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.accountCreates,
		c.transfers,
		c.transferLatency,
		c.lockWait,
		c.deliveries,
		c.deliveryLatency,
		c.dropped,
		c.queueDepth,
		c.circuitOpens,
		c.circuitState,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordAccountCreate records an account creation attempt.
func (c *Collector) RecordAccountCreate(success bool) {
	result := "created"
	if !success {
		result = "rejected"
	}
	c.accountCreates.WithLabelValues(result).Inc()
}

// RecordTransfer records a finished transfer.
func (c *Collector) RecordTransfer(status string, reason string, duration time.Duration) {
	c.transfers.WithLabelValues(status, reason).Inc()
	c.transferLatency.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordLockWait records how long a transfer waited for its account locks.
func (c *Collector) RecordLockWait(duration time.Duration) {
	c.lockWait.Observe(duration.Seconds())
}

// RecordDelivery records one notification delivery attempt.
func (c *Collector) RecordDelivery(sink string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	c.deliveries.WithLabelValues(sink, status).Inc()
	c.deliveryLatency.WithLabelValues(sink).Observe(duration.Seconds())
}

// RecordDeliveryDropped records a notification dropped on backpressure.
func (c *Collector) RecordDeliveryDropped(sink string) {
	c.dropped.WithLabelValues(sink).Inc()
}

// RecordQueueDepth records the dispatcher queue depth.
func (c *Collector) RecordQueueDepth(sink string, depth int) {
	c.queueDepth.WithLabelValues(sink).Set(float64(depth))
}

// RecordCircuitState records the current circuit breaker state.
func (c *Collector) RecordCircuitState(sink string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(sink).Set(float64(state))
	if state == metrics.CircuitOpen {
		c.circuitOpens.WithLabelValues(sink).Inc()
	}
}
