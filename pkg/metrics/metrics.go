// Package metrics holds the Prometheus instrumentation for the sync layer.
//
// Collection is opt-in: until Init is called every Record* helper is a no-op
// with zero overhead, mirroring how the daemon only pays for metrics when
// the metrics server is enabled in config.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bind settlement paths. Exactly one of the two wins each BindRemote call.
const (
	PathRequest = "request"
	PathPush    = "push"
)

// Bootstrap kinds and outcomes.
const (
	KindLocal  = "local"
	KindRemote = "remote"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type instruments struct {
	bootstrapRuns     *prometheus.CounterVec
	bindFetches       *prometheus.CounterVec
	lookupInferErrors prometheus.Counter
	initTimeouts      prometheus.Counter
}

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	inst     *instruments
)

// Init creates the metrics registry and all instruments. Calling Init twice
// is a no-op.
func Init() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	inst = &instruments{
		bootstrapRuns: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "appsync_bootstrap_runs_total",
				Help: "Bootstrap executions by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		bindFetches: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "appsync_bind_fetch_total",
				Help: "Remote bind settlements by winning path (request or push)",
			},
			[]string{"path"},
		),
		lookupInferErrors: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "appsync_lookup_inference_failures_total",
				Help: "Lookup indexing calls that found no primary-key candidate",
			},
		),
		initTimeouts: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "appsync_init_timeouts_total",
				Help: "Advisory initialization timeouts signalled",
			},
		),
	}
}

// IsEnabled reports whether Init has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// Registry returns the Prometheus registry, or nil when disabled.
func Registry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns an HTTP handler serving the metrics endpoint.
// Returns http.NotFoundHandler when metrics are disabled.
func Handler() http.Handler {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func get() *instruments {
	mu.RLock()
	defer mu.RUnlock()
	return inst
}

// BootstrapRun records a bootstrap execution.
func BootstrapRun(kind, outcome string) {
	if i := get(); i != nil {
		i.bootstrapRuns.WithLabelValues(kind, outcome).Inc()
	}
}

// BindFetch records which path settled a remote bind.
func BindFetch(path string) {
	if i := get(); i != nil {
		i.bindFetches.WithLabelValues(path).Inc()
	}
}

// LookupInferenceFailure records a failed primary-key inference.
func LookupInferenceFailure() {
	if i := get(); i != nil {
		i.lookupInferErrors.Inc()
	}
}

// InitTimeout records an advisory initialization timeout.
func InitTimeout() {
	if i := get(); i != nil {
		i.initTimeouts.Inc()
	}
}
