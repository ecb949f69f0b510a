package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/mount"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// =============================================================================
// Test Helpers
// =============================================================================

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

// newRenderer returns a renderer over a fresh document wrapped in mws.
func newRenderer(t *testing.T, mws ...mount.Middleware) (*mount.Renderer, *memdom.Document) {
	t.Helper()
	doc := memdom.New()
	r := mount.New(doc, mount.WithMiddleware(mws...))
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, doc
}

// recordingTracer remembers the spans it starts.
type recordingTracer struct {
	noop.Tracer
	spans []trace.SpanConfig
	names []string
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.names = append(r.names, name)
	r.spans = append(r.spans, trace.NewSpanStartConfig(opts...))
	span := &recordedSpan{name: name}
	return trace.ContextWithSpan(ctx, span), span
}

// recordedSpan is a no-op span with its own identity.
type recordedSpan struct {
	noop.Span
	name string
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer { return p.tracer }

func hasAttr(attrs []attribute.KeyValue, key, value string) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key && kv.Value.Emit() == value {
			return true
		}
	}
	return false
}

// =============================================================================
// Prometheus Tests
// =============================================================================

func TestMetricsConfig(t *testing.T) {
	config := defaultMetricsConfig()
	if config.Namespace != "livedom" {
		t.Errorf("Namespace = %q, want livedom", config.Namespace)
	}
	if config.Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should default to prometheus.DefaultRegisterer")
	}
	if len(config.Buckets) == 0 {
		t.Error("Buckets should not be empty")
	}

	reg := prometheus.NewRegistry()
	for _, opt := range []MetricsOption{
		WithNamespace("app"),
		WithSubsystem("ui"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{1, 2}),
		WithRegistry(reg),
	} {
		opt(&config)
	}
	if config.Namespace != "app" || config.Subsystem != "ui" {
		t.Errorf("Namespace/Subsystem = %q/%q", config.Namespace, config.Subsystem)
	}
	if config.ConstLabels["env"] != "test" || len(config.Buckets) != 2 || config.Registry != reg {
		t.Errorf("options not applied: %+v", config)
	}
}

func TestPrometheusMiddleware_RecordsPasses(t *testing.T) {
	t.Run("success counts the pass and its nodes", func(t *testing.T) {
		m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
		r, doc := newRenderer(t, m)

		if _, err := r.Mount(context.Background(), doc.Body(), vdom.Ul(vdom.Li("a"), vdom.Li("b"))); err != nil {
			t.Fatalf("Mount() error = %v", err)
		}

		if got := metricCounterValue(t, m.passesTotal.WithLabelValues("mount", "success")); got != 1 {
			t.Errorf("passes_total(mount,success) = %v, want 1", got)
		}
		if got := metricCounterValue(t, m.nodesTotal.WithLabelValues("created")); got != 5 {
			t.Errorf("nodes_total(created) = %v, want 5", got)
		}
		if got := metricCounterValue(t, m.mutations); got == 0 {
			t.Error("expected dom_mutations_total > 0")
		}
		if got := metricHistogramCount(t, m.passDuration.WithLabelValues("mount")); got != 1 {
			t.Errorf("pass_duration_seconds(mount) count = %d, want 1", got)
		}
	})

	t.Run("error is labeled with its code", func(t *testing.T) {
		m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
		r, doc := newRenderer(t, m)

		_, err := r.Mount(context.Background(), doc.Body(), vdom.Ul(vdom.Li(vdom.Key(1)), vdom.Li(vdom.Key(1))))
		if err == nil {
			t.Fatal("expected duplicate keys to fail")
		}
		if got := metricCounterValue(t, m.passesTotal.WithLabelValues("mount", "error")); got != 1 {
			t.Errorf("passes_total(mount,error) = %v, want 1", got)
		}
		if got := metricCounterValue(t, m.passErrors.WithLabelValues("mount", errorCode(err))); got != 1 {
			t.Errorf("pass_errors_total(mount,%s) = %v, want 1", errorCode(err), got)
		}
	})
}

func TestPrometheusMiddleware_PendingGauge(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	r, doc := newRenderer(t, m)
	ctx := context.Background()

	done := vdom.NewDeferred()
	fading := vdom.MustDefine(vdom.Hooks{
		Draw:   func(vdom.Instance, []*vdom.VNode) any { return vdom.P("bye") },
		Remove: func(vdom.Instance) any { return done },
	})

	show := true
	root, err := r.Mount(ctx, doc.Body(), func() any { return vdom.If(show, vdom.Comp(fading)) })
	if err != nil {
		t.Fatal(err)
	}
	show = false
	if err := root.Redraw(ctx); err != nil {
		t.Fatal(err)
	}
	if got := metricGaugeValue(t, m.pendingRemove); got != 1 {
		t.Errorf("pending_removals = %v, want 1", got)
	}

	done.Resolve()
	if err := r.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if got := metricGaugeValue(t, m.pendingRemove); got != 0 {
		t.Errorf("pending_removals after settle = %v, want 0", got)
	}
	if got := metricCounterValue(t, m.nodesTotal.WithLabelValues("settled")); got != 1 {
		t.Errorf("nodes_total(settled) = %v, want 1", got)
	}
}

func TestPrometheusSingleton(t *testing.T) {
	resetGlobalMetricsForTest()
	defer resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	a := Prometheus(WithRegistry(reg))
	b := Prometheus(WithRegistry(reg))
	if a != b {
		t.Error("Prometheus() should return the process-wide collector set")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "internal"},
		{"unmounted", mount.ErrUnmounted, "E041"},
		{"structural", vdom.Validate(vdom.Ul(vdom.Li(vdom.Key(1)), vdom.Li())), "E001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorCode(tt.err); got != tt.want {
				t.Errorf("errorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// OpenTelemetry Tests
// =============================================================================

func TestOpenTelemetryConfig(t *testing.T) {
	config := defaultOTelConfig()
	if config.TracerName != defaultTracerName {
		t.Errorf("TracerName = %q, want %q", config.TracerName, defaultTracerName)
	}
	if !config.IncludeStats {
		t.Error("IncludeStats should default to true")
	}

	WithTracerName("custom")(&config)
	WithIncludeStats(false)(&config)
	if config.TracerName != "custom" || config.IncludeStats {
		t.Errorf("options not applied: %+v", config)
	}
}

func TestOpenTelemetryMiddleware_SpanPerPass(t *testing.T) {
	tracer := &recordingTracer{}
	mw := OpenTelemetry(
		WithTracerProvider(recordingProvider{tracer: tracer}),
		WithAttributeExtractor(func(*mount.Pass) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	var (
		inner    context.Context
		passSpan trace.Span
	)
	inspect := mount.MiddlewareFunc(func(p *mount.Pass, next func() error) error {
		passSpan = SpanFromPass(p)
		if passSpan == nil {
			t.Error("expected SpanFromPass to return a span inside the traced pass")
		}
		inner = TraceContext(p)
		return next()
	})
	r, doc := newRenderer(t, mw, inspect)
	ctx := context.Background()

	root, err := r.Mount(ctx, doc.Body(), vdom.P("x"))
	if err != nil {
		t.Fatal(err)
	}
	if err := root.Unmount(ctx); err != nil {
		t.Fatal(err)
	}

	if len(tracer.names) != 2 || tracer.names[0] != "livedom.mount" || tracer.names[1] != "livedom.unmount" {
		t.Fatalf("spans = %v, want [livedom.mount livedom.unmount]", tracer.names)
	}
	attrs := tracer.spans[0].Attributes()
	if !hasAttr(attrs, "livedom.pass_kind", "mount") || !hasAttr(attrs, "test.attr", "ok") {
		t.Errorf("span attributes = %v", attrs)
	}
	if tracer.spans[0].SpanKind() != trace.SpanKindInternal {
		t.Errorf("span kind = %v, want internal", tracer.spans[0].SpanKind())
	}
	if inner == nil || passSpan == nil || trace.SpanFromContext(inner) != passSpan {
		t.Error("expected TraceContext to carry the pass span")
	}
	if span, ok := passSpan.(*recordedSpan); !ok || span.name != "livedom.unmount" {
		t.Errorf("last pass span = %v, want the unmount span", passSpan)
	}
}

func TestOpenTelemetryMiddleware_ErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	fail := mount.MiddlewareFunc(func(*mount.Pass, func() error) error { return wantErr })
	r, doc := newRenderer(t, OpenTelemetry(), fail)

	_, err := r.Mount(context.Background(), doc.Body(), vdom.P())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Mount() error = %v, want %v", err, wantErr)
	}
}

func TestOpenTelemetryMiddleware_FilterSkipsTracing(t *testing.T) {
	tracer := &recordingTracer{}
	mw := OpenTelemetry(
		WithTracerProvider(recordingProvider{tracer: tracer}),
		WithPassFilter(func(p *mount.Pass) bool { return p.Kind != mount.PassFlush }),
	)
	inspect := mount.MiddlewareFunc(func(p *mount.Pass, next func() error) error {
		if p.Kind == mount.PassFlush && SpanFromPass(p) != nil {
			t.Error("expected no span when the filter skips tracing")
		}
		return next()
	})
	r, _ := newRenderer(t, mw, inspect)

	if err := r.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tracer.names) != 0 {
		t.Errorf("spans = %v, want none", tracer.names)
	}
}
