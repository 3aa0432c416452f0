package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncUploads increments the upload counter. Kind is empty on success.
	IncUploads(resourceType string, success bool, kind string)

	// ObserveUploadDuration records how long one file upload took.
	ObserveUploadDuration(resourceType string, duration time.Duration)

	// IncRollbacks increments the rollback counter.
	IncRollbacks(success bool)

	// SetLayersPublished sets the number of recorded layers.
	SetLayersPublished(count int)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncUploads implements MetricsCollector.
func (n *NoOpMetrics) IncUploads(_ string, _ bool, _ string) {}

// ObserveUploadDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveUploadDuration(_ string, _ time.Duration) {}

// IncRollbacks implements MetricsCollector.
func (n *NoOpMetrics) IncRollbacks(_ bool) {}

// SetLayersPublished implements MetricsCollector.
func (n *NoOpMetrics) SetLayersPublished(_ int) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
