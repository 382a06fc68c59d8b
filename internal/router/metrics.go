package router

// MetricsRecorder defines the metrics operations needed by the router.
// This interface allows for dependency injection and testing with fakes.
type MetricsRecorder interface {
	RecordReceived()
	RecordDelivered()
	RecordBatched()
	RecordSuppressed(reason string)
	RecordDeliveryError()
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
// It does nothing, eliminating the need for nil checks.
type NoOpMetrics struct{}

// Compile-time check that NoOpMetrics implements MetricsRecorder.
var _ MetricsRecorder = (*NoOpMetrics)(nil)

// RecordReceived does nothing.
func (n *NoOpMetrics) RecordReceived() {}

// RecordDelivered does nothing.
func (n *NoOpMetrics) RecordDelivered() {}

// RecordBatched does nothing.
func (n *NoOpMetrics) RecordBatched() {}

// RecordSuppressed does nothing.
func (n *NoOpMetrics) RecordSuppressed(_ string) {}

// RecordDeliveryError does nothing.
func (n *NoOpMetrics) RecordDeliveryError() {}
