package vdom

import (
	"sync"

	"github.com/vango-dev/livedom/internal/errors"
)

// Hooks are the lifecycle functions of a component. Draw is required.
//
// The engine calls them in a fixed order: Init once before the first Draw,
// Draw on creation and on every update, Drawn after the DOM for that draw is
// attached, Remove once when the instance is dropped, Destroy once at the
// end. Tick runs once per scheduler frame while the instance is alive.
type Hooks struct {
	// Name labels the component in errors and logs.
	Name string

	Init func(c Instance)

	// Draw returns the component's children: a node, a string, a slice of
	// those, or nil. prev holds the children of the previous draw (nil on
	// the first draw).
	Draw func(c Instance, prev []*VNode) any

	Drawn func(c Instance)

	// Remove may return nil to be removed immediately, or a Completion,
	// <-chan error or <-chan struct{} to keep the instance on screen until
	// that signal settles.
	Remove func(c Instance) any

	Destroy func(c Instance)

	Tick func(c Instance, frame uint64)
}

// Definition is an immutable component definition shared by all of its
// instances. Create one with Define.
type Definition struct {
	hooks Hooks
}

// Define validates hooks and returns a Definition.
func Define(hooks Hooks) (*Definition, error) {
	if hooks.Draw == nil {
		err := errors.New("E002")
		if hooks.Name != "" {
			err = err.WithPath(hooks.Name)
		}
		return nil, err
	}
	return &Definition{hooks: hooks}, nil
}

// MustDefine is like Define but panics on error. It is meant for
// package-level component definitions.
func MustDefine(hooks Hooks) *Definition {
	def, err := Define(hooks)
	if err != nil {
		panic(err)
	}
	return def
}

// Name returns the component name, which may be empty.
func (d *Definition) Name() string { return d.hooks.Name }

// Hooks returns a copy of the lifecycle functions.
func (d *Definition) Hooks() Hooks { return d.hooks }

// Instance is the handle a component's hooks receive.
type Instance interface {
	// Attrs returns the props of the component description currently
	// rendered by this instance.
	Attrs() Props

	// Children returns the children passed to the component description.
	Children() []*VNode

	// Store returns a scratch map private to this instance. It survives
	// redraws and is dropped on destroy.
	Store() map[string]any

	// Redraw reconciles this instance's subtree synchronously. Called from
	// inside a hook it is downgraded to Invalidate.
	Redraw() error

	// Invalidate marks the instance dirty; it is redrawn on the next frame.
	Invalidate()
}

// Completion is an awaitable signal that gates deferred removal.
type Completion interface {
	// OnSettle registers fn to run once when the signal settles. err is
	// non-nil if it failed. The returned func cancels the registration.
	OnSettle(fn func(err error)) (cancel func())
}

// Deferred is a Completion settled by hand.
type Deferred struct {
	mu      sync.Mutex
	settled bool
	err     error
	next    int
	waiters map[int]func(error)
}

var _ Completion = (*Deferred)(nil)

// NewDeferred returns an unsettled Deferred.
func NewDeferred() *Deferred {
	return &Deferred{waiters: make(map[int]func(error))}
}

// OnSettle implements Completion. If d has already settled, fn runs
// immediately.
func (d *Deferred) OnSettle(fn func(err error)) (cancel func()) {
	d.mu.Lock()
	if d.settled {
		err := d.err
		d.mu.Unlock()
		fn(err)
		return func() {}
	}
	id := d.next
	d.next++
	d.waiters[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.waiters, id)
		d.mu.Unlock()
	}
}

// Resolve settles d successfully. Later calls are no-ops.
func (d *Deferred) Resolve() { d.settle(nil) }

// Reject settles d with err. Later calls are no-ops.
func (d *Deferred) Reject(err error) { d.settle(err) }

// Settled reports whether d has settled.
func (d *Deferred) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

func (d *Deferred) settle(err error) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = true
	d.err = err
	waiters := make([]func(error), 0, len(d.waiters))
	for i := 0; i < d.next; i++ {
		if fn, ok := d.waiters[i]; ok {
			waiters = append(waiters, fn)
		}
	}
	d.waiters = nil
	d.mu.Unlock()
	for _, fn := range waiters {
		fn(err)
	}
}

// FromChan adapts a channel that delivers one error (or is closed) into a
// Completion. The channel is read only while a registration is live.
func FromChan(ch <-chan error) Completion {
	return &chanCompletion{d: NewDeferred(), recv: func(stop <-chan struct{}) (error, bool) {
		select {
		case err := <-ch:
			return err, true
		case <-stop:
			return nil, false
		}
	}}
}

// FromDone adapts a done channel into a Completion. Closing or sending on
// ch settles it successfully.
func FromDone(ch <-chan struct{}) Completion {
	return &chanCompletion{d: NewDeferred(), recv: func(stop <-chan struct{}) (error, bool) {
		select {
		case <-ch:
			return nil, true
		case <-stop:
			return nil, false
		}
	}}
}

// chanCompletion runs a reader goroutine while it has registrations. The
// reader exits when the last one is cancelled and restarts on the next
// OnSettle.
type chanCompletion struct {
	d    *Deferred
	recv func(stop <-chan struct{}) (error, bool)

	mu   sync.Mutex
	live int
	stop chan struct{}
}

func (c *chanCompletion) OnSettle(fn func(err error)) (cancel func()) {
	unregister := c.d.OnSettle(fn)
	c.mu.Lock()
	if c.d.Settled() {
		c.mu.Unlock()
		return unregister
	}
	c.live++
	if c.stop == nil {
		c.stop = make(chan struct{})
		go c.read(c.stop)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			unregister()
			c.mu.Lock()
			c.live--
			if c.live == 0 && c.stop != nil {
				close(c.stop)
				c.stop = nil
			}
			c.mu.Unlock()
		})
	}
}

func (c *chanCompletion) read(stop <-chan struct{}) {
	if err, ok := c.recv(stop); ok {
		c.d.settle(err)
	}
}

// AsCompletion classifies the result of a Remove hook. It returns a nil
// Completion for immediate removal and a structural error for values that
// cannot be awaited.
func AsCompletion(v any) (Completion, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case Completion:
		if c == nil {
			return nil, nil
		}
		return c, nil
	case <-chan error:
		if c == nil {
			return nil, nil
		}
		return FromChan(c), nil
	case chan error:
		if c == nil {
			return nil, nil
		}
		return FromChan(c), nil
	case <-chan struct{}:
		if c == nil {
			return nil, nil
		}
		return FromDone(c), nil
	case chan struct{}:
		if c == nil {
			return nil, nil
		}
		return FromDone(c), nil
	}
	return nil, errors.New("E004").WithReason("got %T", v)
}

// Comp creates a component description. args are handled like element
// arguments: Attr, []Attr, Props and EventHandler become props, everything
// else is passed as children.
func Comp(def *Definition, args ...any) *VNode {
	node := build(KindComponent, "", args)
	node.Comp = def
	if def == nil && node.err == nil {
		node.err = errors.New("E002").WithReason("nil definition")
	}
	return node
}
