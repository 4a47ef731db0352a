package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voltpack/corepm/binlink"
	"github.com/voltpack/corepm/materialize"
)

const metricsNamespace = "corepm"

// Metrics holds the run counters a Pipeline publishes for an embedding
// CLI to scrape. Unlike the teacher's own utils.PrometheusObserveDuration,
// which registers into prometheus's global default registry, each
// Pipeline owns its own *prometheus.Registry so concurrent Pipelines
// (as in tests) don't collide registering the same metric names twice.
type Metrics struct {
	registry *prometheus.Registry

	cached  prometheus.Counter
	fetched prometheus.Counter

	cloned prometheus.Counter
	linked prometheus.Counter
	copied prometheus.Counter

	shimsCreated prometheus.Counter
	shimsFailed  prometheus.Counter
}

// NewMetrics constructs a Metrics with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "packages_cached_total",
			Help: "Packages whose digest was already present in the store.",
		}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "packages_fetched_total",
			Help: "Packages fetched and extracted into the store.",
		}),
		cloned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "materialize_cloned_total",
			Help: "Packages placed via directory clone.",
		}),
		linked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "materialize_linked_total",
			Help: "Files placed via hardlink.",
		}),
		copied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "materialize_copied_total",
			Help: "Files placed via byte copy.",
		}),
		shimsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "bin_shims_created_total",
			Help: "Executable shims created.",
		}),
		shimsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "bin_shims_failed_total",
			Help: "Executable shims that failed to link.",
		}),
	}

	m.registry.MustRegister(
		m.cached, m.fetched,
		m.cloned, m.linked, m.copied,
		m.shimsCreated, m.shimsFailed,
	)
	return m
}

// Registry returns the Prometheus registry an embedding CLI scrapes.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observe folds a completed run's final Stats into the Prometheus
// counters. It's called once at the end of Run rather than at every
// individual increment site, since the per-package cached/fetched
// counters are already incremented live in ensureExtracted and
// double-counting them here would be wrong; only the stages that don't
// have a live call site (materialize, binlink) are folded in after the
// fact from their final Stats().
func (m *Metrics) observe(mat materialize.Stats, bin binlink.Stats) {
	m.cloned.Add(float64(mat.Cloned))
	m.linked.Add(float64(mat.Linked))
	m.copied.Add(float64(mat.Copied))
	m.shimsCreated.Add(float64(bin.Created))
	m.shimsFailed.Add(float64(bin.Failed))
}
