package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector by publishing to
// prometheus.CounterVec/HistogramVec/GaugeVec instead of the in-process
// Metric slice DefaultCollector buffers. Vectors are created lazily, keyed
// by metric name plus the label keys the first call for that name used —
// every later call for that name must supply the same label keys, which
// holds in practice since each call site always passes the same shape
// (e.g. generation_duration_seconds always labeled by "provider").
type PrometheusCollector struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusCollector constructs a PrometheusCollector registered
// against reg. A nil reg uses a fresh, private prometheus.Registry rather
// than the global default, so multiple Orchestrators never collide on
// metric names.
func NewPrometheusCollector(reg *prometheus.Registry) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PrometheusCollector{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// Registry exposes the underlying prometheus.Registry, e.g. for wiring
// promhttp.HandlerFor in cmd/saigen.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.reg
}

func labelKeysValues(labels []string) ([]string, []string) {
	keys := make([]string, 0, len(labels)/2)
	values := make([]string, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		keys = append(keys, labels[i])
		values = append(values, labels[i+1])
	}
	return keys, values
}

func (c *PrometheusCollector) counterVec(name string, keys []string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.counters[name]; ok {
		return v
	}
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "saigen counter: " + name,
	}, keys)
	c.reg.MustRegister(v)
	c.counters[name] = v
	return v
}

func (c *PrometheusCollector) histogramVec(name string, keys []string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.histograms[name]; ok {
		return v
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "saigen histogram: " + name,
		Buckets: prometheus.DefBuckets,
	}, keys)
	c.reg.MustRegister(v)
	c.histograms[name] = v
	return v
}

func (c *PrometheusCollector) gaugeVec(name string, keys []string) *prometheus.GaugeVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.gauges[name]; ok {
		return v
	}
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "saigen gauge: " + name,
	}, keys)
	c.reg.MustRegister(v)
	c.gauges[name] = v
	return v
}

// RecordDuration implements Collector.
func (c *PrometheusCollector) RecordDuration(name string, duration time.Duration, labels ...string) {
	keys, values := labelKeysValues(labels)
	c.histogramVec(name, keys).WithLabelValues(values...).Observe(duration.Seconds())
}

// StartTimer implements Collector.
func (c *PrometheusCollector) StartTimer(name string, labels ...string) func() {
	start := time.Now()
	return func() {
		c.RecordDuration(name, time.Since(start), labels...)
	}
}

// IncrCounter implements Collector.
func (c *PrometheusCollector) IncrCounter(name string, labels ...string) {
	c.AddCounter(name, 1, labels...)
}

// AddCounter implements Collector.
func (c *PrometheusCollector) AddCounter(name string, delta int64, labels ...string) {
	keys, values := labelKeysValues(labels)
	c.counterVec(name, keys).WithLabelValues(values...).Add(float64(delta))
}

// SetGauge implements Collector.
func (c *PrometheusCollector) SetGauge(name string, value float64, labels ...string) {
	keys, values := labelKeysValues(labels)
	c.gaugeVec(name, keys).WithLabelValues(values...).Set(value)
}

// Flush is a no-op: Prometheus scrapes the registry directly rather than
// exporting through an Exporter.
func (c *PrometheusCollector) Flush() error { return nil }

// Metrics always returns nil: snapshot history lives in the Prometheus
// registry, not in an in-process slice.
func (c *PrometheusCollector) Metrics() []Metric { return nil }
