package metrics

import (
	"encoding/json"
	"fmt"
	"io"
)

// Exporter is what DefaultCollector.Flush hands its buffered Metric slice
// to; PrometheusCollector has no use for one since it publishes live.
type Exporter interface {
	Export(metrics []Metric) error
}

// JSONLinesExporter writes one JSON-encoded Metric per line, for
// cmd/saigen's -metrics-out flag to append a run's metrics to a file or
// log shipper.
type JSONLinesExporter struct {
	writer io.Writer
}

// NewJSONLinesExporter creates a JSONLinesExporter writing to w.
func NewJSONLinesExporter(w io.Writer) *JSONLinesExporter {
	return &JSONLinesExporter{writer: w}
}

// Export writes metrics as JSON Lines to the underlying writer.
func (e *JSONLinesExporter) Export(metrics []Metric) error {
	for _, m := range metrics {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal metric %s: %w", m.Name, err)
		}
		if _, err := e.writer.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", m.Name, err)
		}
	}
	return nil
}
