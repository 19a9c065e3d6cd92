// Package telemetry exports Prometheus metrics for tool calls, search legs,
// storage queries and the query embedding cache.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

const namespace = "slackmcp"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds every collector on a private registry, so tests and
// multiple servers in one process never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec

	legLatency   *prometheus.HistogramVec
	fusedResults prometheus.Histogram

	queryLatency *prometheus.HistogramVec
	queryErrors  *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// Config configures the metrics.
type Config struct {
	// LatencyBuckets for latency histograms, in seconds.
	LatencyBuckets []float64

	// ProcessCollectors adds the Go runtime and process collectors.
	ProcessCollectors bool
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets:    []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		ProcessCollectors: true,
	}
}

// New creates and registers all collectors.
func New(cfg Config) *Metrics {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	// Tool call metrics
	m.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls by outcome",
		},
		[]string{"tool", "status", "category"},
	)
	m.toolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mcp",
			Name:      "tool_latency_seconds",
			Help:      "Tool call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"tool"},
	)

	// Search metrics
	m.legLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "leg_latency_seconds",
			Help:      "Latency of one search leg in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"leg", "status"},
	)
	m.fusedResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	// Storage metrics
	m.queryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_latency_seconds",
			Help:      "Storage query latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"op"},
	)
	m.queryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_errors_total",
			Help:      "Total number of failed storage queries",
		},
		[]string{"op"},
	)

	// Embedding cache metrics
	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embed",
		Name:      "cache_hits_total",
		Help:      "Query embedding cache hits",
	})
	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embed",
		Name:      "cache_misses_total",
		Help:      "Query embedding cache misses",
	})

	m.registry.MustRegister(
		m.toolCalls, m.toolLatency,
		m.legLatency, m.fusedResults,
		m.queryLatency, m.queryErrors,
		m.cacheHits, m.cacheMisses,
	)
	if cfg.ProcessCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveToolCall records one MCP tool invocation. Failed calls are labeled
// with the error category so lookups misses and outages can be told apart.
func (m *Metrics) ObserveToolCall(tool string, d time.Duration, err error) {
	status, category := StatusOK, ""
	if err != nil {
		status = StatusError
		category = string(slerrors.GetCategory(err))
	}
	m.toolCalls.WithLabelValues(tool, status, category).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveSearchLeg records the latency of one search leg.
func (m *Metrics) ObserveSearchLeg(leg string, d time.Duration, err error) {
	m.legLatency.WithLabelValues(leg, statusOf(err)).Observe(d.Seconds())
}

// ObserveFusedResults records the size of a search response.
func (m *Metrics) ObserveFusedResults(n int) {
	m.fusedResults.Observe(float64(n))
}

// ObserveQuery records one storage query.
func (m *Metrics) ObserveQuery(op string, d time.Duration, err error) {
	m.queryLatency.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.queryErrors.WithLabelValues(op).Inc()
	}
}

// ObserveEmbeddingCache records one embedding cache lookup.
func (m *Metrics) ObserveEmbeddingCache(hit bool) {
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
