// Package metrics is what internal/orchestrator and internal/batch use to
// record how a generation run went: "generation_duration_seconds" per
// software name, "generation_count" split by success/failure, and
// "batch_items_total" for a batch run's overall tally. cmd/saigen picks the
// concrete Collector at startup — DefaultCollector buffers Metric values
// for JSONLinesExporter, PrometheusCollector (prometheus.go) publishes
// straight to a prometheus.Registry, and NoopCollector is the default when
// no metrics sink is configured.
package metrics

import "time"

// MetricType distinguishes how a Metric's Value should be interpreted.
type MetricType string

const (
	// TypeCounter is a monotonically increasing count, e.g. generation_count.
	TypeCounter MetricType = "counter"
	// TypeGauge is a point-in-time value that can go up or down.
	TypeGauge MetricType = "gauge"
	// TypeDuration is a time span in milliseconds, e.g. generation_duration_seconds.
	TypeDuration MetricType = "duration"
)

// Metric is one data point DefaultCollector buffers before a Flush hands
// the batch to an Exporter.
type Metric struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// parseLabels turns the variadic key, value, key, value... pairs that
// orchestrator and batch pass to IncrCounter/SetGauge (e.g. "success",
// "true") into a map. An odd count leaves the trailing key's value empty.
func parseLabels(labels []string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	result := make(map[string]string)
	for i := 0; i < len(labels); i += 2 {
		key := labels[i]
		value := ""
		if i+1 < len(labels) {
			value = labels[i+1]
		}
		result[key] = value
	}
	return result
}
