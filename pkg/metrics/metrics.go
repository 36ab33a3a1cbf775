package metrics

import (
	"time"
)

// Collector receives transfer and notification metrics.
// Implementations export them to a backend (Prometheus) or keep them for inspection.
type Collector interface {
	// Accounts
	RecordAccountCreate(success bool)

	// Transfers
	RecordTransfer(status string, reason string, duration time.Duration)
	RecordLockWait(duration time.Duration)

	// Notification delivery
	RecordDelivery(sink string, success bool, duration time.Duration)
	RecordDeliveryDropped(sink string)
	RecordQueueDepth(sink string, depth int)

	// Circuit breaker
	RecordCircuitState(sink string, state CircuitState)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the sink has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards everything. It is the default when no collector is configured.
type NoOpCollector struct{}

func (NoOpCollector) RecordAccountCreate(success bool) {}

func (NoOpCollector) RecordTransfer(status string, reason string, duration time.Duration) {}

func (NoOpCollector) RecordLockWait(duration time.Duration) {}

func (NoOpCollector) RecordDelivery(sink string, success bool, duration time.Duration) {}

func (NoOpCollector) RecordDeliveryDropped(sink string) {}

func (NoOpCollector) RecordQueueDepth(sink string, depth int) {}

func (NoOpCollector) RecordCircuitState(sink string, state CircuitState) {}
