package metrics

import (
	"sync"
	"time"
)

// Collector is the metrics sink internal/orchestrator and internal/batch
// record against; cmd/saigen chooses an implementation (DefaultCollector,
// PrometheusCollector, or NoopCollector) at startup.
type Collector interface {
	// RecordDuration records a duration metric with optional labels (key, value pairs).
	RecordDuration(name string, duration time.Duration, labels ...string)

	// StartTimer returns a stop function that records duration when called,
	// e.g. around one software name's full generation in orchestrator.Run.
	StartTimer(name string, labels ...string) func()

	// IncrCounter increments a counter by 1.
	IncrCounter(name string, labels ...string)

	// AddCounter adds delta to a counter.
	AddCounter(name string, delta int64, labels ...string)

	// SetGauge sets a gauge value.
	SetGauge(name string, value float64, labels ...string)

	// Flush exports collected metrics and clears the buffer.
	Flush() error

	// Metrics returns all collected metrics.
	Metrics() []Metric
}

// DefaultCollector buffers Metric values in memory and hands the batch to
// an Exporter on Flush; it's the Collector cmd/saigen wires up for
// -metrics-out, as opposed to PrometheusCollector which publishes straight
// to a registry.
type DefaultCollector struct {
	mu       sync.Mutex
	buffered []Metric
	exporter Exporter
	clock    func() time.Time // immutable after construction
}

// CollectorOption configures a DefaultCollector.
type CollectorOption func(*DefaultCollector)

// WithClock substitutes the timestamp source, so tests can pin Metric
// timestamps.
func WithClock(clock func() time.Time) CollectorOption {
	return func(c *DefaultCollector) {
		c.clock = clock
	}
}

// NewCollector creates a DefaultCollector flushing into exporter.
func NewCollector(exporter Exporter, opts ...CollectorOption) *DefaultCollector {
	c := &DefaultCollector{exporter: exporter, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// record stamps and buffers one data point; every public recording method
// funnels through here.
func (c *DefaultCollector) record(typ MetricType, name string, value float64, labels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffered = append(c.buffered, Metric{
		Timestamp: c.clock(),
		Name:      name,
		Type:      typ,
		Value:     value,
		Labels:    parseLabels(labels),
	})
}

// RecordDuration records a duration metric in milliseconds.
func (c *DefaultCollector) RecordDuration(name string, duration time.Duration, labels ...string) {
	c.record(TypeDuration, name, float64(duration.Milliseconds()), labels)
}

// StartTimer returns a stop function that records the elapsed time when
// called.
func (c *DefaultCollector) StartTimer(name string, labels ...string) func() {
	start := c.clock()
	return func() {
		c.RecordDuration(name, c.clock().Sub(start), labels...)
	}
}

// IncrCounter increments a counter by 1.
func (c *DefaultCollector) IncrCounter(name string, labels ...string) {
	c.record(TypeCounter, name, 1, labels)
}

// AddCounter adds delta to a counter.
func (c *DefaultCollector) AddCounter(name string, delta int64, labels ...string) {
	c.record(TypeCounter, name, float64(delta), labels)
}

// SetGauge sets a gauge value.
func (c *DefaultCollector) SetGauge(name string, value float64, labels ...string) {
	c.record(TypeGauge, name, value, labels)
}

// Flush hands the buffered metrics to the exporter and clears the buffer.
// With no exporter configured the buffer keeps accumulating for Metrics().
func (c *DefaultCollector) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exporter == nil {
		return nil
	}
	if err := c.exporter.Export(c.buffered); err != nil {
		return err
	}
	c.buffered = c.buffered[:0]
	return nil
}

// Metrics returns a copy of the buffered metrics.
func (c *DefaultCollector) Metrics() []Metric {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Metric, len(c.buffered))
	copy(out, c.buffered)
	return out
}

// NoopCollector discards everything; cmd/saigen falls back to it when no
// metrics sink is configured, and orchestrator and batch construct one when
// the caller passes a nil Collector.
type NoopCollector struct{}

// NewNoopCollector creates a NoopCollector.
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (n *NoopCollector) RecordDuration(string, time.Duration, ...string) {}
func (n *NoopCollector) StartTimer(string, ...string) func()             { return func() {} }
func (n *NoopCollector) IncrCounter(string, ...string)                   {}
func (n *NoopCollector) AddCounter(string, int64, ...string)             {}
func (n *NoopCollector) SetGauge(string, float64, ...string)             {}
func (n *NoopCollector) Flush() error                                    { return nil }
func (n *NoopCollector) Metrics() []Metric                               { return nil }
