// Package mount binds node descriptions to DOM containers.
//
// A Renderer owns one reconcile.Engine and the roots mounted through it:
//
//	r := mount.New(doc, mount.WithScheduler(ticker))
//	root, err := r.Mount(ctx, container, vdom.Div(vdom.Text("hello")))
//
// Passing a nil (or empty) description unmounts the container and runs full
// teardown. Mounting inside or around a container that is already mounted
// fails with a structural error (E003); the Registry that detects it can be
// shared between renderers and reset between tests.
//
// # Frames
//
// Deferred work runs once per scheduler frame: settled removals are applied,
// invalidated roots and component instances are redrawn once each in the
// order they were invalidated, and Tick hooks run with the frame number.
// Ticker drives frames from a time.Ticker on the goroutine that calls Run;
// ManualScheduler advances only when Step is called.
//
// # Middleware
//
// Every render pass (mount, redraw, unmount, flush, frame) runs through the
// renderer's middleware chain. pkg/middleware provides Prometheus and
// OpenTelemetry implementations.
package mount
