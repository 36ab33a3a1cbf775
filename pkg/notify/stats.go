package notify

import "errors"

// DispatcherStats provides statistics about dispatcher operations.
type DispatcherStats struct {
	// QueueDepth is the current number of notifications waiting for a worker
	QueueDepth int

	// Pending counts queued plus in-flight notifications
	Pending int64

	// Enqueued is the total number of notifications accepted
	Enqueued int64

	// Delivered is the total number of successful deliveries
	Delivered int64

	// Failed is the total number of deliveries the sink rejected
	Failed int64

	// Dropped is the total number of notifications dropped due to backpressure
	Dropped int64
}

// Errors returned by dispatcher operations.
var (
	// ErrQueueFull is returned when the queue stays full past MaxWaitTime
	ErrQueueFull = errors.New("notify: queue full, notification dropped")

	// ErrDispatcherClosed is returned when sending to a closed dispatcher
	ErrDispatcherClosed = errors.New("notify: dispatcher is closed")

	// ErrFlushTimeout is returned when Flush times out waiting for deliveries
	ErrFlushTimeout = errors.New("notify: flush timeout exceeded")
)
