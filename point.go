package vigil

import "fmt"

// Sample is a single observation on a metric stream: a Unix millisecond
// timestamp and a float64 value. Samples are immutable once recorded.
type Sample struct {
	// Timestamp is the observation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Value is the observed measurement.
	Value float64 `json:"value"`
}

// StreamID identifies a single monitored metric stream. All baseline,
// threshold, and suppression state is scoped per StreamID; nothing is
// shared across streams.
type StreamID struct {
	// EntityID is the monitored entity (website, synthetic check, service).
	EntityID string `json:"entity_id"`
	// Metric is the metric name (e.g. "response_time_ms", "error_rate").
	Metric string `json:"metric_name"`
}

// String returns the canonical "entityID_metric" key used for map lookups
// and batch result grouping.
func (id StreamID) String() string {
	return fmt.Sprintf("%s_%s", id.EntityID, id.Metric)
}

// Values extracts the value column from a slice of samples.
func Values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

// Timestamps extracts the timestamp column from a slice of samples.
func Timestamps(samples []Sample) []int64 {
	out := make([]int64, len(samples))
	for i, s := range samples {
		out[i] = s.Timestamp
	}
	return out
}
