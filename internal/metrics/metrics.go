// Package metrics exposes Prometheus instruments for the server. All methods
// are safe on a nil *Collector, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application's metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	DocFetches  *prometheus.CounterVec
	ListFetches *prometheus.CounterVec
	CardFetches *prometheus.CounterVec

	LeafLoads     *prometheus.CounterVec
	UnhandledKind *prometheus.CounterVec

	LiveSessions prometheus.Gauge
	BuildJobs    *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		DocFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_fetches_total",
				Help:      "Document lookups by result (hit, miss, fallback)",
			},
			[]string{"result"},
		),
		ListFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_list_fetches_total",
				Help:      "Document list fetches by result (ok, fallback)",
			},
			[]string{"result"},
		),
		CardFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "card_fetches_total",
				Help:      "Card data loads by result (ok, fallback)",
			},
			[]string{"result"},
		),
		LeafLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "leaf_resource_loads_total",
				Help:      "Lazy leaf resource loads by kind and result",
			},
			[]string{"kind", "result"},
		),
		UnhandledKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unhandled_nodes_total",
				Help:      "Nodes rendered as unhandled markers, by type",
			},
			[]string{"type"},
		),
		LiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_sessions",
				Help:      "Open live viewport connections",
			},
		),
		BuildJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "build_jobs_total",
				Help:      "Documents built by final status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.DocFetches,
		c.ListFetches,
		c.CardFetches,
		c.LeafLoads,
		c.UnhandledKind,
		c.LiveSessions,
		c.BuildJobs,
	)
	return c
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) DocFetch(result string) {
	if c == nil {
		return
	}
	c.DocFetches.WithLabelValues(result).Inc()
}

func (c *Collector) ListFetch(result string) {
	if c == nil {
		return
	}
	c.ListFetches.WithLabelValues(result).Inc()
}

func (c *Collector) CardFetch(result string) {
	if c == nil {
		return
	}
	c.CardFetches.WithLabelValues(result).Inc()
}

// LeafLoad records a settled lazy resource load. It matches the loader's
// settle hook signature.
func (c *Collector) LeafLoad(kind string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.LeafLoads.WithLabelValues(kind, result).Inc()
}

func (c *Collector) Unhandled(types []string) {
	if c == nil {
		return
	}
	for _, t := range types {
		c.UnhandledKind.WithLabelValues(t).Inc()
	}
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.LiveSessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.LiveSessions.Dec()
}

func (c *Collector) BuildJob(status string) {
	if c == nil {
		return
	}
	c.BuildJobs.WithLabelValues(status).Inc()
}
