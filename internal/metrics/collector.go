package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns the notifier's private registry. Besides the chat pipeline
// metrics it exposes the Go runtime and process collectors.
type Collector struct {
	registry *prometheus.Registry
	factory  promauto.Factory
}

// NewCollector creates a collector with runtime and process metrics registered
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Collector{
		registry: registry,
		factory:  promauto.With(registry),
	}
}

// Counter registers a counter vector; labels may be empty
func (c *Collector) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	return c.factory.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

// Histogram registers a histogram vector with explicit buckets
func (c *Collector) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return c.factory.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
}

// Registry returns the registry served on /metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
