package metrics

import (
	"testing"
	"time"
)

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestNoOpCollector(t *testing.T) {
	var c Collector = NoOpCollector{}

	// Nothing to observe; just make sure every method is callable.
	c.RecordAccountCreate(true)
	c.RecordTransfer("SUCCESS", "", time.Millisecond)
	c.RecordLockWait(time.Millisecond)
	c.RecordDelivery("log", true, time.Millisecond)
	c.RecordDeliveryDropped("log")
	c.RecordQueueDepth("log", 3)
	c.RecordCircuitState("log", CircuitOpen)
}
