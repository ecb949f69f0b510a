package reconcile

import (
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// instance is the live state of one component.
type instance struct {
	e     *Engine
	def   *vdom.Definition
	node  *vdom.VNode // description currently rendered
	store map[string]any

	dirty     bool
	destroyed bool
}

var _ vdom.Instance = (*instance)(nil)

func (c *instance) Attrs() vdom.Props       { return c.node.Props }
func (c *instance) Children() []*vdom.VNode { return c.node.Children }

func (c *instance) Store() map[string]any {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	return c.store
}

func (c *instance) Redraw() error { return c.e.redrawInstance(c) }

func (c *instance) Invalidate() { c.e.invalidate(c) }

// renderComponent draws v and reconciles the output against the previous
// draw. New DOM is left detached for the caller to place.
func (e *Engine) renderComponent(v *vdom.VNode, live *vdom.Live, pdom dom.Node) error {
	c := live.Instance.(*instance)
	prev := live.Rendered
	out, err := vdom.Normalize(c.def.Hooks().Draw(c, prev))
	if err != nil {
		return atPath(err, v)
	}
	result, err := e.updateChildren(v, pdom, out, prev, live.NS)
	if err != nil {
		return err
	}
	live.Rendered = result
	setDOMs(live, e.flatten(result))
	e.drawn = append(e.drawn, c)
	return nil
}

// redrawInstance reconciles c's subtree in place. Inside a render pass it
// only marks c dirty.
func (e *Engine) redrawInstance(c *instance) error {
	if e.busy {
		e.invalidate(c)
		return nil
	}
	v := c.node
	live := v.Live()
	if c.destroyed || live == nil || live.State != vdom.StateLive {
		return nil
	}
	return e.pass(func() error {
		pdom := e.parentDOM(v)
		next := e.anchorAfter(v)
		if err := e.renderComponent(v, live, pdom); err != nil {
			return err
		}
		e.refreshAncestors(live.Parent)
		return e.place(pdom, v, live.Rendered, next)
	})
}

func (e *Engine) invalidate(c *instance) {
	if c.destroyed || c.dirty {
		return
	}
	c.dirty = true
	e.dirty = append(e.dirty, c)
	e.requestFrame()
}

// Dirty reports whether any instance awaits a deferred redraw.
func (e *Engine) Dirty() bool { return len(e.dirty) > 0 }

// RedrawDirty redraws every invalidated instance once, in the order they
// were invalidated. Instances invalidated meanwhile wait for the next call.
func (e *Engine) RedrawDirty() error {
	batch := e.dirty
	e.dirty = nil
	for _, c := range batch {
		c.dirty = false
	}
	var errs []error
	for _, c := range batch {
		if err := e.redrawInstance(c); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}
