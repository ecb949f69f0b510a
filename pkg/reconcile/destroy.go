package reconcile

import (
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// destroy tears v down synchronously: continuations are cancelled, Destroy
// hooks run, and realization state is released. With detach set, v's
// top-level DOM is also taken out of its parent; descendants of a detached
// element go with it.
func (e *Engine) destroy(v *vdom.VNode, detach bool) {
	live := v.Live()
	if live == nil {
		return
	}
	switch v.Kind {
	case vdom.KindComponent:
		if live.Cancel != nil {
			live.Cancel()
			live.Cancel = nil
		}
		if live.State == vdom.StatePendingRemoval {
			e.pending--
		}
		live.State = vdom.StateRemoved
		if c, ok := live.Instance.(*instance); ok && !c.destroyed {
			c.destroyed = true
			if h := c.def.Hooks().Destroy; h != nil {
				h(c)
			}
			e.untick(c)
		}
		for _, r := range live.Rendered {
			e.destroy(r, detach)
		}
		for _, o := range live.Orphans {
			e.destroy(o, detach)
		}
	case vdom.KindElement:
		for _, c := range v.Children {
			e.destroy(c, false)
		}
		for _, o := range live.Orphans {
			e.destroy(o, false)
		}
		if detach {
			e.detach(live.DOM)
		}
	case vdom.KindText:
		if detach {
			e.detach(live.DOM)
		}
	case vdom.KindRaw:
		if detach {
			for _, d := range live.DOMs {
				e.detach(d)
			}
		}
	}
	e.stats.Destroyed++

	live.Events = nil
	live.Rendered = nil
	live.Orphans = nil
	live.Parent = nil
	v.Release()
}

func (e *Engine) detach(d dom.Node) {
	if d == nil {
		return
	}
	if p := e.doc.ParentNode(d); p != nil {
		e.doc.RemoveChild(p, d)
	}
}
