package middleware

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/livedom/internal/errors"
	"github.com/vango-dev/livedom/pkg/mount"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "livedom").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	// Default: 100µs to ~1.6s, doubling.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "livedom",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the render pass collectors.
type Metrics struct {
	passesTotal   *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	passErrors    *prometheus.CounterVec
	nodesTotal    *prometheus.CounterVec
	mutations     prometheus.Counter
	moves         prometheus.Counter
	pendingRemove prometheus.Gauge
}

// globalMetrics is the singleton created by the first call to Prometheus.
var (
	globalMetrics   *Metrics
	globalMetricsMu sync.Mutex
)

// NewMetrics registers a fresh set of collectors. Registering twice on the
// same registry panics; use Prometheus for the process-wide set.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of render passes by kind and status",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Render pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		passErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_errors_total",
			Help:        "Total number of failed render passes by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "code"}),

		nodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_total",
			Help:        "Nodes handled by render passes, by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		mutations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dom_mutations_total",
			Help:        "Total number of mutating calls into the DOM provider",
			ConstLabels: config.ConstLabels,
		}),

		moves: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dom_moves_total",
			Help:        "Total number of attached DOM nodes moved by placement",
			ConstLabels: config.ConstLabels,
		}),

		pendingRemove: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pending_removals",
			Help:        "Component instances awaiting a deferred removal",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Handle implements mount.Middleware.
func (m *Metrics) Handle(p *mount.Pass, next func() error) error {
	kind := p.Kind.String()
	start := time.Now()

	err := next()

	m.passDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
		m.passErrors.WithLabelValues(kind, errorCode(err)).Inc()
	}
	m.passesTotal.WithLabelValues(kind, status).Inc()

	s := p.Stats()
	m.nodesTotal.WithLabelValues("created").Add(float64(s.Created))
	m.nodesTotal.WithLabelValues("updated").Add(float64(s.Updated))
	m.nodesTotal.WithLabelValues("replaced").Add(float64(s.Replaced))
	m.nodesTotal.WithLabelValues("destroyed").Add(float64(s.Destroyed))
	m.nodesTotal.WithLabelValues("deferred").Add(float64(s.Deferred))
	m.nodesTotal.WithLabelValues("settled").Add(float64(s.Settled))
	m.mutations.Add(float64(s.Mutations))
	m.moves.Add(float64(s.Moved))
	m.pendingRemove.Set(float64(p.Pending()))

	return err
}

// Prometheus returns middleware that records render pass metrics in the
// process-wide collector set, creating it on first use.
//
// Metrics collected:
//   - livedom_passes_total: Counter of passes by kind and status
//   - livedom_pass_duration_seconds: Histogram of pass duration by kind
//   - livedom_pass_errors_total: Counter of failed passes by kind and code
//   - livedom_nodes_total: Counter of nodes created, updated, replaced,
//     destroyed, deferred and settled
//   - livedom_dom_mutations_total: Counter of DOM provider mutations
//   - livedom_dom_moves_total: Counter of placement moves
//   - livedom_pending_removals: Gauge of instances awaiting removal
//
// Example:
//
//	r := mount.New(doc, mount.WithMiddleware(middleware.Prometheus()))
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) mount.Middleware {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = NewMetrics(opts...)
	}
	return globalMetrics
}

// errorCode returns a low-cardinality label for err.
func errorCode(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal"
}
