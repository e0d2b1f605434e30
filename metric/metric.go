// Package metric provides Prometheus instrumentation for the authority
// resource layer: resolution outcomes and latencies, repository call counts,
// and traversal/reference-query size observations.
package metric

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/authoritystore/errors"
)

// Outcome label values recorded against resolution operations.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeNotFound  = "not_found"
	OutcomeAmbiguous = "ambiguous"
	OutcomeFatal     = "fatal"
	OutcomeError     = "error"
)

// Metrics holds the core resource layer metrics.
type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	RepositoryCalls    *prometheus.CounterVec
	HierarchyNodes     prometheus.Histogram
	ReferencingDocs    prometheus.Histogram
}

// NewMetrics creates the core metrics set, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authoritystore_resolutions_total",
			Help: "Specifier resolutions by operation and outcome",
		}, []string{"operation", "outcome"}),
		ResolutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authoritystore_resolution_duration_seconds",
			Help:    "Specifier resolution latency by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		RepositoryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authoritystore_repository_calls_total",
			Help: "Repository calls by method and outcome",
		}, []string{"method", "outcome"}),
		HierarchyNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authoritystore_hierarchy_nodes",
			Help:    "Nodes visited per hierarchy traversal",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ReferencingDocs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authoritystore_referencing_documents",
			Help:    "Matches per referencing-objects query",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// Outcome maps a resolution error onto the outcome label. Only a genuine
// multiple-match is labeled ambiguous; other fatal-class errors (cycles,
// depth bounds, config faults) get their own label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.IsInvalid(err):
		return OutcomeInvalid
	case errors.IsNotFound(err):
		return OutcomeNotFound
	case stderrors.Is(err, errors.ErrAmbiguousMatch):
		return OutcomeAmbiguous
	case errors.IsFatal(err):
		return OutcomeFatal
	default:
		return OutcomeError
	}
}

// ObserveResolution records one resolution call: its outcome counter and its
// latency. Safe to call on a nil receiver so components can run unmetered.
func (m *Metrics) ObserveResolution(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	m.ResolutionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveRepositoryCall records one repository call outcome. Nil-safe.
func (m *Metrics) ObserveRepositoryCall(method string, err error) {
	if m == nil {
		return
	}
	m.RepositoryCalls.WithLabelValues(method, Outcome(err)).Inc()
}

// Registry bundles the core metrics with a private Prometheus registry.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates a registry with the core metrics and Go runtime
// collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
	}

	r.prometheusRegistry.MustRegister(
		r.Metrics.ResolutionsTotal,
		r.Metrics.ResolutionDuration,
		r.Metrics.RepositoryCalls,
		r.Metrics.HierarchyNodes,
		r.Metrics.ReferencingDocs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Handler returns an HTTP handler exposing the registry in the Prometheus
// text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}
