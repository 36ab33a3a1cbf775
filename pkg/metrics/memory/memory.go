package memory

import (
	"sync"
	"time"

	"funds-transfer/pkg/metrics"
)

// Collector implements metrics.Collector in memory, for tests and the JSON status endpoint.
type Collector struct {
	mu sync.RWMutex

	accountsCreated int64
	createFailures  int64

	transfers        map[string]int64 // by status
	declinesByReason map[string]int64
	transferLatency  []time.Duration
	lockWaits        []time.Duration

	sinks map[string]*SinkMetrics
}

// SinkMetrics holds delivery metrics for one notification sink.
type SinkMetrics struct {
	Delivered     int64
	Failed        int64
	Dropped       int64
	QueueDepth    int
	CircuitState  metrics.CircuitState
	CircuitOpens  int64
	DeliveryTimes []time.Duration
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		transfers:        make(map[string]int64),
		declinesByReason: make(map[string]int64),
		sinks:            make(map[string]*SinkMetrics),
	}
}

// sink returns the metrics for name, creating them if needed. Caller holds mu.
func (c *Collector) sink(name string) *SinkMetrics {
	sm, ok := c.sinks[name]
	if !ok {
		sm = &SinkMetrics{}
		c.sinks[name] = sm
	}
	return sm
}

// RecordAccountCreate records an account creation attempt.
func (c *Collector) RecordAccountCreate(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if success {
		c.accountsCreated++
	} else {
		c.createFailures++
	}
}

// RecordTransfer records a finished transfer.
func (c *Collector) RecordTransfer(status string, reason string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transfers[status]++
	if reason != "" {
		c.declinesByReason[reason]++
	}
	c.transferLatency = append(c.transferLatency, duration)
}

// RecordLockWait records how long a transfer waited for its account locks.
func (c *Collector) RecordLockWait(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lockWaits = append(c.lockWaits, duration)
}

// RecordDelivery records one notification delivery attempt.
func (c *Collector) RecordDelivery(sink string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sm := c.sink(sink)
	if success {
		sm.Delivered++
	} else {
		sm.Failed++
	}
	sm.DeliveryTimes = append(sm.DeliveryTimes, duration)
}

// RecordDeliveryDropped records a notification dropped on backpressure.
func (c *Collector) RecordDeliveryDropped(sink string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink(sink).Dropped++
}

// RecordQueueDepth records the dispatcher queue depth.
func (c *Collector) RecordQueueDepth(sink string, depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink(sink).QueueDepth = depth
}

// RecordCircuitState records a circuit breaker transition.
func (c *Collector) RecordCircuitState(sink string, state metrics.CircuitState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sm := c.sink(sink)
	if sm.CircuitState != metrics.CircuitOpen && state == metrics.CircuitOpen {
		sm.CircuitOpens++
	}
	sm.CircuitState = state
}

// Snapshot is a copy of the collected metrics.
type Snapshot struct {
	AccountsCreated  int64                  `json:"accounts_created"`
	CreateFailures   int64                  `json:"create_failures"`
	Transfers        map[string]int64       `json:"transfers"`
	DeclinesByReason map[string]int64       `json:"declines_by_reason"`
	LockWaits        int                    `json:"lock_waits"`
	Sinks            map[string]SinkMetrics `json:"sinks"`
}

// Snapshot returns a copy of the current metrics state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		AccountsCreated:  c.accountsCreated,
		CreateFailures:   c.createFailures,
		Transfers:        make(map[string]int64, len(c.transfers)),
		DeclinesByReason: make(map[string]int64, len(c.declinesByReason)),
		LockWaits:        len(c.lockWaits),
		Sinks:            make(map[string]SinkMetrics, len(c.sinks)),
	}
	for k, v := range c.transfers {
		snap.Transfers[k] = v
	}
	for k, v := range c.declinesByReason {
		snap.DeclinesByReason[k] = v
	}
	for k, v := range c.sinks {
		cp := *v
		cp.DeliveryTimes = append([]time.Duration(nil), v.DeliveryTimes...)
		snap.Sinks[k] = cp
	}
	return snap
}

// Sink returns a copy of one sink's metrics, or nil if nothing was recorded for it.
func (c *Collector) Sink(name string) *SinkMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if sm, ok := c.sinks[name]; ok {
		cp := *sm
		return &cp
	}
	return nil
}

// Reset clears all collected metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accountsCreated = 0
	c.createFailures = 0
	c.transfers = make(map[string]int64)
	c.declinesByReason = make(map[string]int64)
	c.transferLatency = nil
	c.lockWaits = nil
	c.sinks = make(map[string]*SinkMetrics)
}
