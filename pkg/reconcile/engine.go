package reconcile

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// Engine reconciles node descriptions against a DOM provider.
//
// An Engine is not safe for concurrent use. All methods must be called from
// the goroutine that renders, except that removal completions may settle on
// any goroutine: they are queued and applied by Settle.
type Engine struct {
	doc    *countingProvider
	logger *slog.Logger

	requestFrame func()

	// busy is set for the duration of a render pass, including hook calls.
	busy bool

	// drawn holds instances whose Drawn hook runs after the current pass
	// attaches their DOM.
	drawn []*instance

	ticks   []*instance
	dirty   []*instance
	pending int

	settleMu sync.Mutex
	settled  []settlement

	stats Stats
}

// Stats are cumulative engine counters.
type Stats struct {
	Created   int // nodes materialized
	Updated   int // nodes reconciled in place
	Replaced  int // slots whose node was destroyed and recreated
	Destroyed int // nodes torn down
	Moved     int // attached DOM nodes moved by a placement pass
	Deferred  int // removals that entered PendingRemoval
	Settled   int // pending removals completed
	Mutations int // calls into the DOM provider that change the document
}

// Sub returns the difference s - o.
func (s Stats) Sub(o Stats) Stats {
	return Stats{
		Created:   s.Created - o.Created,
		Updated:   s.Updated - o.Updated,
		Replaced:  s.Replaced - o.Replaced,
		Destroyed: s.Destroyed - o.Destroyed,
		Moved:     s.Moved - o.Moved,
		Deferred:  s.Deferred - o.Deferred,
		Settled:   s.Settled - o.Settled,
		Mutations: s.Mutations - o.Mutations,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFrameRequester sets the function called when the engine has work for
// the next frame: a dirty instance or a settled removal. It may be called
// from any goroutine.
func WithFrameRequester(fn func()) Option {
	return func(e *Engine) {
		e.requestFrame = fn
	}
}

// New creates an engine rendering into doc.
func New(doc dom.Provider, opts ...Option) *Engine {
	e := &Engine{
		logger:       slog.Default(),
		requestFrame: func() {},
	}
	e.doc = &countingProvider{Provider: doc, n: &e.stats.Mutations}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Provider returns the DOM provider the engine renders into.
func (e *Engine) Provider() dom.Provider { return e.doc.Provider }

// Stats returns the cumulative counters.
func (e *Engine) Stats() Stats { return e.stats }

// Pending returns the number of component instances in PendingRemoval.
func (e *Engine) Pending() int { return e.pending }

// Busy reports whether a render pass is running. Redraw requests made while
// busy are deferred to the next frame.
func (e *Engine) Busy() bool { return e.busy }

// NewRoot returns the mount root node for container. Its children are the
// baseline of the next Render.
func (e *Engine) NewRoot(container dom.Node) *vdom.VNode {
	root := &vdom.VNode{Kind: vdom.KindRoot}
	live := root.Realize()
	live.DOM = container
	live.NS = e.namespaceOf(container)
	return root
}

// Render reconciles children into root's container. children must already
// be normalized.
func (e *Engine) Render(root *vdom.VNode, children []*vdom.VNode) error {
	if root == nil || root.Kind != vdom.KindRoot || root.Live() == nil {
		return ErrNotMounted
	}
	return e.pass(func() error {
		live := root.Live()
		result, err := e.updateChildren(root, live.DOM, children, root.Children, live.NS)
		if err != nil {
			return err
		}
		root.Children = result
		return e.place(live.DOM, root, result, nil)
	})
}

// Unmount tears down everything rendered into root synchronously. Pending
// removals are cancelled and destroyed; remove hooks do not run.
func (e *Engine) Unmount(root *vdom.VNode) error {
	if root == nil || root.Live() == nil {
		return nil
	}
	return e.pass(func() error {
		live := root.Live()
		for _, c := range root.Children {
			e.destroy(c, true)
		}
		for _, o := range live.Orphans {
			e.destroy(o, true)
		}
		root.Children = nil
		live.Orphans = nil
		return nil
	})
}

// pass runs fn as one render pass: redraws requested inside are deferred,
// and Drawn hooks queued by fn run once it returns.
func (e *Engine) pass(fn func() error) error {
	if e.busy {
		return ErrReentrant
	}
	e.busy = true
	defer func() { e.busy = false }()

	err := fn()
	drawn := e.drawn
	e.drawn = nil
	if err != nil {
		return err
	}
	for _, inst := range drawn {
		if inst.destroyed {
			continue
		}
		if h := inst.def.Hooks().Drawn; h != nil {
			h(inst)
		}
	}
	return nil
}

// namespaceOf returns the namespace children of container are created in.
func (e *Engine) namespaceOf(container dom.Node) dom.Namespace {
	switch e.doc.TagName(container) {
	case "svg":
		return dom.NamespaceSVG
	case "math":
		return dom.NamespaceMathML
	}
	return dom.NamespaceHTML
}
