package middleware

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/livedom/pkg/mount"
)

// Default tracer name.
const defaultTracerName = "livedom"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "livedom").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// IncludeStats records the pass's node and mutation counts as span
	// attributes. Enabled by default.
	IncludeStats bool

	// Filter determines which passes to trace.
	// Return true to trace the pass, false to skip.
	// If nil, all passes are traced.
	Filter func(p *mount.Pass) bool

	// AttributeExtractor extracts custom attributes from the pass.
	AttributeExtractor func(p *mount.Pass) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeStats enables/disables pass statistics on spans.
func WithIncludeStats(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeStats = include
	}
}

// WithPassFilter sets a filter function for passes.
func WithPassFilter(filter func(p *mount.Pass) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(p *mount.Pass) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:   defaultTracerName,
		IncludeStats: true,
	}
}

// OpenTelemetry creates middleware that traces every render pass.
//
// The middleware:
//   - Creates a span per pass named after its kind ("livedom.mount", ...)
//   - Replaces the pass context with the span context for inner middleware
//   - Records errors and sets span status
//   - Records the pass statistics as span attributes
//
// Example:
//
//	r := mount.New(doc, mount.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("my-app")),
//	))
//
// Without WithTracerProvider the global provider is used; configure it in
// main() with otel.SetTracerProvider.
func OpenTelemetry(opts ...OTelOption) mount.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return mount.MiddlewareFunc(func(p *mount.Pass, next func() error) error {
		if config.Filter != nil && !config.Filter(p) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("livedom.pass_kind", p.Kind.String()),
		}
		if p.Kind == mount.PassFrame {
			attrs = append(attrs, attribute.Int64("livedom.frame", int64(p.Frame)))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(p)...)
		}

		spanCtx, span := config.tracer.Start(
			p.Context(),
			fmt.Sprintf("livedom.%s", p.Kind),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(time.Now()),
		)
		defer span.End()

		p.SetContext(context.WithValue(spanCtx, spanContextKey{}, spanCtx))

		err := next()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		if config.IncludeStats {
			s := p.Stats()
			span.SetAttributes(
				attribute.Int("livedom.created", s.Created),
				attribute.Int("livedom.updated", s.Updated),
				attribute.Int("livedom.destroyed", s.Destroyed),
				attribute.Int("livedom.moved", s.Moved),
				attribute.Int("livedom.mutations", s.Mutations),
				attribute.Int("livedom.pending", p.Pending()),
			)
		}
		return err
	})
}

// spanContextKey marks a pass context set by the OpenTelemetry middleware.
type spanContextKey struct{}

// SpanFromPass returns the span of the running pass, or nil when the pass
// is not traced.
//
// Example:
//
//	mount.MiddlewareFunc(func(p *mount.Pass, next func() error) error {
//	    if span := middleware.SpanFromPass(p); span != nil {
//	        span.AddEvent("before draw")
//	    }
//	    return next()
//	})
func SpanFromPass(p *mount.Pass) trace.Span {
	if spanCtx, ok := p.Context().Value(spanContextKey{}).(context.Context); ok {
		return trace.SpanFromContext(spanCtx)
	}
	return nil
}

// TraceContext returns the pass context carrying the trace, for
// propagation to work started inside the pass.
func TraceContext(p *mount.Pass) context.Context {
	if spanCtx, ok := p.Context().Value(spanContextKey{}).(context.Context); ok {
		return spanCtx
	}
	return p.Context()
}
