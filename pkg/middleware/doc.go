// Package middleware provides render pass middleware for mount.Renderer.
//
// This package includes:
//
//   - OpenTelemetry tracing of render passes
//   - Prometheus metrics for passes, node churn and DOM mutations
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware opens one span per render pass. Spans carry
// the pass kind, the frame number for frame passes, and the pass
// statistics.
//
//	r := mount.New(doc, mount.WithMiddleware(
//	    middleware.OpenTelemetry(),
//	))
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithPassFilter(func(p *mount.Pass) bool {
//	        return p.Kind != mount.PassFrame
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware collects:
//
//   - livedom_passes_total: Render passes by kind and status
//   - livedom_pass_duration_seconds: Pass duration histogram
//   - livedom_nodes_total: Nodes created, updated, replaced and destroyed
//   - livedom_dom_mutations_total: Mutating calls into the DOM provider
//   - livedom_pending_removals: Instances held by a deferred removal
//
// Add it to the renderer:
//
//	r := mount.New(doc, mount.WithMiddleware(
//	    middleware.Prometheus(),
//	))
//
// Then expose the metrics:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Context Propagation
//
// The tracing middleware replaces the pass context, so middleware further
// in reads the span through SpanFromPass or TraceContext.
package middleware
