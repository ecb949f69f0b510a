package mount

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/reconcile"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// Renderer mounts descriptions into the containers of one document.
//
// A Renderer is not safe for concurrent use: call it from the goroutine
// that runs the scheduler's frames (Ticker.Dispatch or Ticker.Call get
// work onto it).
type Renderer struct {
	doc      dom.Provider
	engine   *reconcile.Engine
	registry *Registry
	sched    Scheduler
	logger   *slog.Logger
	mws      []Middleware

	roots       []*Root
	dirty       []*Root
	cancelFrame func()
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithScheduler sets the frame source. The default is a ManualScheduler.
func WithScheduler(s Scheduler) Option {
	return func(r *Renderer) {
		if s != nil {
			r.sched = s
		}
	}
}

// WithRegistry shares a container registry between renderers.
func WithRegistry(g *Registry) Option {
	return func(r *Renderer) {
		if g != nil {
			r.registry = g
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMiddleware appends render pass middleware.
func WithMiddleware(mws ...Middleware) Option {
	return func(r *Renderer) {
		r.mws = append(r.mws, mws...)
	}
}

// New creates a renderer for doc.
func New(doc dom.Provider, opts ...Option) *Renderer {
	r := &Renderer{
		doc:    doc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sched == nil {
		r.sched = NewManualScheduler()
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	r.engine = reconcile.New(doc,
		reconcile.WithLogger(r.logger),
		reconcile.WithFrameRequester(r.sched.RequestFrame),
	)
	r.cancelFrame = r.sched.OnFrame(r.onFrame)
	return r
}

// Engine returns the underlying engine.
func (r *Renderer) Engine() *reconcile.Engine { return r.engine }

// Registry returns the container registry.
func (r *Renderer) Registry() *Registry { return r.registry }

// Scheduler returns the frame source.
func (r *Renderer) Scheduler() Scheduler { return r.sched }

// Roots returns the mounted roots in mount order.
func (r *Renderer) Roots() []*Root {
	return append([]*Root(nil), r.roots...)
}

// Mount renders desc into container, creating the root on first use and
// reconciling against the previous description afterwards. A nil or empty
// desc unmounts the container and returns a nil Root.
//
// desc is anything vdom.Normalize accepts, or a func() any or
// func() *vdom.VNode that is called again on every redraw.
func (r *Renderer) Mount(ctx context.Context, container dom.Node, desc any) (*Root, error) {
	root := r.registry.Lookup(container)
	if root != nil && root.r != r {
		root = nil
	}
	if isEmpty(desc) {
		if root == nil {
			return nil, nil
		}
		return nil, root.Unmount(ctx)
	}
	if root == nil {
		root = &Root{r: r, container: container}
		if err := r.registry.claim(r.doc, container, root); err != nil {
			return nil, err
		}
		root.node = r.engine.NewRoot(container)
		r.roots = append(r.roots, root)
	}
	root.desc = desc
	return root, root.render(ctx, PassMount)
}

// Flush applies settled removals and redraws everything invalidated,
// without waiting for a frame and without running Tick hooks.
func (r *Renderer) Flush(ctx context.Context) error {
	p := &Pass{Kind: PassFlush}
	return r.run(ctx, p, r.drain)
}

// Close unmounts every root and stops listening for frames.
func (r *Renderer) Close(ctx context.Context) error {
	var errs []error
	for _, root := range r.Roots() {
		if err := root.Unmount(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.cancelFrame != nil {
		r.cancelFrame()
		r.cancelFrame = nil
	}
	return stderrors.Join(errs...)
}

func (r *Renderer) onFrame(frame uint64) {
	p := &Pass{Kind: PassFrame, Frame: frame}
	err := r.run(context.Background(), p, func() error {
		return stderrors.Join(r.drain(), r.engine.Tick(frame))
	})
	if err != nil {
		r.logger.Error("frame failed", "frame", frame, "error", err)
	}
}

// drain applies settled removals, then redraws invalidated roots and
// component instances once each.
func (r *Renderer) drain() error {
	var errs []error
	if _, err := r.engine.Settle(); err != nil {
		errs = append(errs, err)
	}
	batch := r.dirty
	r.dirty = nil
	for _, root := range batch {
		root.dirty = false
	}
	for _, root := range batch {
		if !root.Mounted() {
			continue
		}
		if err := root.renderNow(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.engine.RedrawDirty(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

// run runs fn as a render pass through the middleware chain.
func (r *Renderer) run(ctx context.Context, p *Pass, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx = ctx
	p.engine = r.engine
	p.start = r.engine.Stats()

	start := time.Now()
	err := chain(p, r.mws, fn)()

	s := p.Stats()
	r.logger.Debug("render pass",
		"kind", p.Kind,
		"duration", time.Since(start),
		"created", s.Created,
		"updated", s.Updated,
		"destroyed", s.Destroyed,
		"mutations", s.Mutations,
		"pending", r.engine.Pending(),
		"error", err)
	return err
}

func (r *Renderer) invalidate(root *Root) {
	if root.dirty || !root.Mounted() {
		return
	}
	root.dirty = true
	r.dirty = append(r.dirty, root)
	r.sched.RequestFrame()
}

func (r *Renderer) forget(root *Root) {
	r.registry.release(root.container, root)
	r.roots = remove(r.roots, root)
	r.dirty = remove(r.dirty, root)
}

func remove(list []*Root, root *Root) []*Root {
	for i, x := range list {
		if x == root {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// isEmpty reports whether desc describes nothing at all.
func isEmpty(desc any) bool {
	switch d := desc.(type) {
	case nil:
		return true
	case *vdom.VNode:
		return d == nil
	case []*vdom.VNode:
		return len(d) == 0
	case []any:
		return len(d) == 0
	}
	return false
}
