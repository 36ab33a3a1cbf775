package prometheus

import (
	"testing"
	"time"

	"funds-transfer/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Register(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector("transfer_test")

	require.NoError(t, c.Register(registry))

	// Registering twice must fail with a duplicate registration error.
	assert.Error(t, c.Register(registry))
}

func TestCollector_RecordTransfer(t *testing.T) {
	c := NewCollector("transfer_test")
	require.NoError(t, c.Register(prometheus.NewRegistry()))

	c.RecordTransfer("SUCCESS", "", 2*time.Millisecond)
	c.RecordTransfer("FAILURE", "insufficient_funds", time.Millisecond)
	c.RecordTransfer("FAILURE", "insufficient_funds", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transfers.WithLabelValues("SUCCESS", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.transfers.WithLabelValues("FAILURE", "insufficient_funds")))
}

func TestCollector_Accounts(t *testing.T) {
	c := NewCollector("transfer_test")

	c.RecordAccountCreate(true)
	c.RecordAccountCreate(false)
	c.RecordAccountCreate(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.accountCreates.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.accountCreates.WithLabelValues("rejected")))
}

func TestCollector_Delivery(t *testing.T) {
	c := NewCollector("transfer_test")

	c.RecordDelivery("webhook", true, time.Millisecond)
	c.RecordDelivery("webhook", false, time.Millisecond)
	c.RecordDeliveryDropped("webhook")
	c.RecordQueueDepth("webhook", 12)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries.WithLabelValues("webhook", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries.WithLabelValues("webhook", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("webhook")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.queueDepth.WithLabelValues("webhook")))
}

func TestCollector_CircuitState(t *testing.T) {
	c := NewCollector("transfer_test")

	c.RecordCircuitState("redis", metrics.CircuitOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.circuitState.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.circuitOpens.WithLabelValues("redis")))

	c.RecordCircuitState("redis", metrics.CircuitHalfOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.circuitState.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.circuitOpens.WithLabelValues("redis")))
}

func TestCollector_ImplementsInterface(t *testing.T) {
	var _ metrics.Collector = NewCollector("x")
}
