package mount

import (
	"context"

	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/reconcile"
)

// PassKind identifies what triggered a render pass.
type PassKind uint8

const (
	PassMount PassKind = iota + 1
	PassRedraw
	PassUnmount
	PassFlush
	PassFrame
)

// String returns the string representation of the PassKind.
func (k PassKind) String() string {
	switch k {
	case PassMount:
		return "mount"
	case PassRedraw:
		return "redraw"
	case PassUnmount:
		return "unmount"
	case PassFlush:
		return "flush"
	case PassFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Pass describes one render pass to middleware.
type Pass struct {
	Kind PassKind

	// Container is the mount container, or nil for flush and frame passes
	// that may touch every root.
	Container dom.Node

	// Frame is the scheduler frame number of a PassFrame.
	Frame uint64

	ctx    context.Context
	engine *reconcile.Engine
	start  reconcile.Stats
}

// Context returns the pass context.
func (p *Pass) Context() context.Context { return p.ctx }

// SetContext replaces the pass context seen by inner middleware, e.g. with
// one carrying a trace span.
func (p *Pass) SetContext(ctx context.Context) {
	if ctx != nil {
		p.ctx = ctx
	}
}

// Stats returns the engine counters accumulated by this pass so far.
func (p *Pass) Stats() reconcile.Stats {
	return p.engine.Stats().Sub(p.start)
}

// Pending returns the number of instances currently awaiting removal.
func (p *Pass) Pending() int { return p.engine.Pending() }

// Middleware wraps render passes.
type Middleware interface {
	Handle(p *Pass, next func() error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(p *Pass, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(p *Pass, next func() error) error {
	return f(p, next)
}

// chain wraps fn in mws; the first middleware is the outermost.
func chain(p *Pass, mws []Middleware, fn func() error) func() error {
	next := fn
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func() error { return mw.Handle(p, inner) }
	}
	return next
}
