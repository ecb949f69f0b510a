package reconcile

import (
	"github.com/vango-dev/livedom/internal/errors"
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// create materializes v as a detached subtree. parent is the enclosing node
// and pdom the DOM element v's nodes will be placed in; the caller places
// them. Drawn hooks are queued until the pass attaches the DOM.
func (e *Engine) create(parent *vdom.VNode, pdom dom.Node, v *vdom.VNode, ns dom.Namespace) error {
	if err := v.Err(); err != nil {
		return err
	}
	switch v.Kind {
	case vdom.KindElement:
		return e.createElement(parent, v, ns)
	case vdom.KindText:
		live := v.Realize()
		live.Parent = parent
		live.NS = ns
		live.DOM = e.doc.CreateTextNode(v.Text)
	case vdom.KindComponent:
		return e.createComponent(parent, pdom, v, ns)
	case vdom.KindRaw:
		nodes, err := e.doc.ParseFragment(pdom, v.Text)
		if err != nil {
			return err
		}
		live := v.Realize()
		live.Parent = parent
		live.NS = ns
		setDOMs(live, nodes)
	default:
		return errors.New("E040").WithReason("kind %s", v.Kind).WithPath(v.Label())
	}
	e.stats.Created++
	return nil
}

func (e *Engine) createElement(parent, v *vdom.VNode, inherited dom.Namespace) error {
	ns, err := resolveNamespace(v, inherited)
	if err != nil {
		return atPath(err, v)
	}
	el, err := e.doc.CreateElement(ns, v.Tag, isName(v))
	if err != nil {
		return err
	}
	live := v.Realize()
	live.Parent = parent
	live.NS = ns
	live.DOM = el
	if err := e.updateAttrs(v, live, nil); err != nil {
		return atPath(err, v)
	}
	children, err := e.updateChildren(v, el, v.Children, nil, childNamespace(v.Tag, ns))
	if err != nil {
		return err
	}
	v.Children = children
	e.stats.Created++
	return e.place(el, v, children, nil)
}

func (e *Engine) createComponent(parent *vdom.VNode, pdom dom.Node, v *vdom.VNode, ns dom.Namespace) error {
	if v.Comp == nil {
		return errors.New("E002").WithReason("nil definition").WithPath(v.Label())
	}
	live := v.Realize()
	live.Parent = parent
	live.NS = ns
	c := &instance{e: e, def: v.Comp, node: v}
	live.Instance = c

	hooks := v.Comp.Hooks()
	if hooks.Init != nil {
		hooks.Init(c)
	}
	if err := e.renderComponent(v, live, pdom); err != nil {
		return err
	}
	if hooks.Tick != nil {
		e.ticks = append(e.ticks, c)
	}
	e.stats.Created++
	return nil
}

// isName returns the customized built-in name an element is created with.
func isName(v *vdom.VNode) string {
	s, _ := v.Props["is"].(string)
	return s
}
