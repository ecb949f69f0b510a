package reconcile

import (
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// updateKeyed matches children by key. Old children whose key is gone are
// removed before the walk; a deferred removal leaves the list and waits as
// an orphan of parent. Matching is by key equality only: a match is reused
// however far it moved. Unkeyed nodes in a keyed list (text, raw) are
// paired in order with the old unkeyed nodes and reused when equal.
func (e *Engine) updateKeyed(parent *vdom.VNode, pdom dom.Node, list, old []*vdom.VNode, ns dom.Namespace) ([]*vdom.VNode, error) {
	want := make(map[string]bool, len(list))
	handed := make(map[*vdom.VNode]bool)
	for _, n := range list {
		switch {
		case n == nil:
		case isPending(n):
			handed[n] = true
		case n.Keyed():
			want[n.Key] = true
		}
	}

	index := make(map[string]*vdom.VNode, len(old))
	var loose []*vdom.VNode
	for _, o := range old {
		if o == nil || o.Live() == nil {
			continue
		}
		switch {
		case isPending(o):
			if !handed[o] {
				e.orphan(parent, o)
			}
		case o.Keyed() && want[o.Key]:
			index[o.Key] = o
		case !o.Keyed():
			loose = append(loose, o)
		default:
			if err := e.removeInto(parent, o); err != nil {
				return nil, err
			}
		}
	}

	result := make([]*vdom.VNode, len(list))
	for i, n := range list {
		if n == nil {
			continue
		}
		var o *vdom.VNode
		if handed[n] {
			o = n
		} else if n.Keyed() {
			o = index[n.Key]
			delete(index, n.Key)
		} else if len(loose) > 0 {
			o, loose = loose[0], loose[1:]
		}
		if err := e.updateChild(parent, pdom, n, o, ns); err != nil {
			return nil, err
		}
		result[i] = n
	}
	for _, o := range loose {
		if err := e.removeInto(parent, o); err != nil {
			return nil, err
		}
	}
	return trimNil(result), nil
}
