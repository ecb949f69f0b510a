package reconcile

import (
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// updateChild reconciles one slot: o is the node that held it on the last
// pass (nil if none) and n the node that holds it now. n ends up realized;
// o is either reused by n, removed, or kept pending as an orphan of parent.
func (e *Engine) updateChild(parent *vdom.VNode, pdom dom.Node, n, o *vdom.VNode, ns dom.Namespace) error {
	if err := n.Err(); err != nil {
		return err
	}
	if o == nil || !o.Realized() {
		return e.create(parent, pdom, n, ns)
	}
	if isPending(o) {
		if o == n {
			// A pending node handed back in: it keeps its slot and its
			// last drawn state.
			o.Live().Parent = parent
			return nil
		}
		e.orphan(parent, o)
		return e.create(parent, pdom, n, ns)
	}
	if !e.sameNode(n, o, ns) {
		if err := e.create(parent, pdom, n, ns); err != nil {
			return err
		}
		e.stats.Replaced++
		return e.removeInto(parent, o)
	}

	oldProps, oldChildren := o.Props, o.Children
	live := n.Adopt(o)
	if o != n {
		o.Release()
	}
	live.Parent = parent
	for _, orphan := range live.Orphans {
		orphan.Live().Parent = n
	}
	e.stats.Updated++

	switch n.Kind {
	case vdom.KindElement:
		if err := e.updateAttrs(n, live, oldProps); err != nil {
			return atPath(err, n)
		}
		children, err := e.updateChildren(n, live.DOM, n.Children, oldChildren, childNamespace(n.Tag, live.NS))
		if err != nil {
			return err
		}
		n.Children = children
		return e.place(live.DOM, n, children, nil)
	case vdom.KindComponent:
		live.Instance.(*instance).node = n
		return e.renderComponent(n, live, pdom)
	}
	// Text and raw nodes with unchanged content are reused as they are.
	return nil
}

// sameNode reports whether o's DOM can be reused for n.
func (e *Engine) sameNode(n, o *vdom.VNode, ns dom.Namespace) bool {
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case vdom.KindElement:
		if n.Tag != o.Tag || isName(n) != isName(o) {
			return false
		}
		want, err := resolveNamespace(n, ns)
		return err == nil && want == o.Live().NS
	case vdom.KindText, vdom.KindRaw:
		return n.Text == o.Text
	case vdom.KindComponent:
		return n.Comp == o.Comp
	}
	return false
}

// updateChildren reconciles the child list of parent. It returns the list
// that becomes the baseline of the next pass: list itself, plus pending
// removals that keep their slot in an unkeyed list. New DOM is left
// detached; DOM placement is done by the caller.
func (e *Engine) updateChildren(parent *vdom.VNode, pdom dom.Node, list, old []*vdom.VNode, ns dom.Namespace) ([]*vdom.VNode, error) {
	if len(list) == 0 && len(old) == 0 {
		return nil, nil
	}
	if isKeyed(list) && isKeyed(old) {
		return e.updateKeyed(parent, pdom, list, old, ns)
	}
	return e.updateUnkeyed(parent, pdom, list, old, ns)
}

// updateUnkeyed matches children by position.
func (e *Engine) updateUnkeyed(parent *vdom.VNode, pdom dom.Node, list, old []*vdom.VNode, ns dom.Namespace) ([]*vdom.VNode, error) {
	size := len(list)
	if len(old) > size {
		size = len(old)
	}
	result := make([]*vdom.VNode, size)
	reused := make(map[*vdom.Live]bool, len(old))

	// Past the end of the new list: remove, keeping deferred removals in
	// their slot.
	for i := len(list); i < len(old); i++ {
		o := old[i]
		if o == nil || o.Live() == nil {
			continue
		}
		deferred, err := e.remove(o)
		if err != nil {
			return nil, err
		}
		if deferred {
			o.Live().Parent = parent
			result[i] = o
			reused[o.Live()] = true
		}
	}

	for i, n := range list {
		var o *vdom.VNode
		if i < len(old) {
			o = old[i]
		}
		if n == nil {
			if o == nil || o.Live() == nil {
				continue
			}
			deferred, err := e.remove(o)
			if err != nil {
				return nil, err
			}
			if deferred {
				o.Live().Parent = parent
				result[i] = o
				reused[o.Live()] = true
			}
			continue
		}
		if o != nil && reused[o.Live()] {
			o = nil
		}
		if err := e.updateChild(parent, pdom, n, o, ns); err != nil {
			return nil, err
		}
		if live := n.Live(); live != nil {
			reused[live] = true
		}
		result[i] = n
	}
	return trimNil(result), nil
}

func isKeyed(list []*vdom.VNode) bool {
	for _, c := range list {
		if c != nil {
			return c.Keyed()
		}
	}
	return false
}

func isPending(v *vdom.VNode) bool {
	live := v.Live()
	return v.Kind == vdom.KindComponent && live != nil && live.State == vdom.StatePendingRemoval
}

func trimNil(list []*vdom.VNode) []*vdom.VNode {
	for len(list) > 0 && list[len(list)-1] == nil {
		list = list[:len(list)-1]
	}
	if len(list) == 0 {
		return nil
	}
	return list
}
