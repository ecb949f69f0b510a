package reconcile

import (
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// place puts the top-level DOM of list into pdom, in order, ending right
// before next (nil means at the end). Nodes already in position are left
// alone, so an unchanged list costs no DOM writes. DOM of pending removals
// that lost their slot is skipped over and stays where it is.
func (e *Engine) place(pdom dom.Node, owner *vdom.VNode, list []*vdom.VNode, next dom.Node) error {
	nodes := e.flatten(list)
	if len(nodes) == 0 {
		return nil
	}
	skip := e.pendingDOMs(owner, list)
	for i := len(nodes) - 1; i >= 0; i-- {
		d := nodes[i]
		parent := e.doc.ParentNode(d)
		if parent != pdom || nextSibling(e.doc, d, skip) != next {
			if err := e.doc.InsertBefore(pdom, d, next); err != nil {
				return err
			}
			if parent != nil {
				e.stats.Moved++
			}
		}
		next = d
	}
	return nil
}

// flatten returns the top-level DOM nodes of list in document order.
// Components are transparent: they contribute the DOM of what they drew.
func (e *Engine) flatten(list []*vdom.VNode) []dom.Node {
	var out []dom.Node
	for _, v := range list {
		live := v.Live()
		if live == nil {
			continue
		}
		switch v.Kind {
		case vdom.KindComponent, vdom.KindRaw:
			out = append(out, live.DOMs...)
		default:
			if live.DOM != nil {
				out = append(out, live.DOM)
			}
		}
	}
	return out
}

func setDOMs(live *vdom.Live, nodes []dom.Node) {
	live.DOMs = nodes
	if len(nodes) > 0 {
		live.DOM = nodes[0]
	} else {
		live.DOM = nil
	}
}

// pendingDOMs collects the DOM of pending orphans that share pdom with list:
// orphans of owner and of its component ancestors up to the enclosing
// element, plus orphans held by components in list.
func (e *Engine) pendingDOMs(owner *vdom.VNode, list []*vdom.VNode) map[dom.Node]bool {
	var skip map[dom.Node]bool
	add := func(orphans []*vdom.VNode) {
		for _, d := range e.flatten(orphans) {
			if skip == nil {
				skip = make(map[dom.Node]bool)
			}
			skip[d] = true
		}
	}
	for v := owner; v != nil && v.Live() != nil; v = v.Live().Parent {
		add(v.Live().Orphans)
		if v.Kind != vdom.KindComponent {
			break
		}
	}
	var walk func([]*vdom.VNode)
	walk = func(list []*vdom.VNode) {
		for _, v := range list {
			if v == nil || v.Kind != vdom.KindComponent || v.Live() == nil {
				continue
			}
			add(v.Live().Orphans)
			walk(v.Live().Rendered)
		}
	}
	walk(list)
	return skip
}

// nextSibling returns the sibling after d, passing over nodes in skip.
func nextSibling(doc dom.Provider, d dom.Node, skip map[dom.Node]bool) dom.Node {
	s := doc.NextSibling(d)
	for s != nil && skip[s] {
		s = doc.NextSibling(s)
	}
	return s
}

// parentDOM returns the DOM element v's top-level nodes live in.
func (e *Engine) parentDOM(v *vdom.VNode) dom.Node {
	for p := v.Live().Parent; p != nil && p.Live() != nil; p = p.Live().Parent {
		if p.Kind == vdom.KindElement || p.Kind == vdom.KindRoot {
			return p.Live().DOM
		}
	}
	return nil
}

// anchorAfter returns the DOM node that must follow v's output, or nil when
// v's output ends its parent element.
func (e *Engine) anchorAfter(v *vdom.VNode) dom.Node {
	live := v.Live()
	if n := len(live.DOMs); n > 0 {
		return nextSibling(e.doc, live.DOMs[n-1], e.pendingDOMs(v, live.Rendered))
	}
	p := live.Parent
	if p == nil || p.Live() == nil {
		return nil
	}
	siblings := p.Children
	if p.Kind == vdom.KindComponent {
		siblings = p.Live().Rendered
	}
	found := false
	for _, s := range siblings {
		if found {
			if doms := e.flatten([]*vdom.VNode{s}); len(doms) > 0 {
				return doms[0]
			}
		}
		if s == v {
			found = true
		}
	}
	if p.Kind == vdom.KindComponent {
		return e.anchorAfter(p)
	}
	return nil
}

// refreshAncestors recomputes the top-level DOM of v and every component
// above it up to the enclosing element.
func (e *Engine) refreshAncestors(v *vdom.VNode) {
	for p := v; p != nil && p.Kind == vdom.KindComponent && p.Live() != nil; p = p.Live().Parent {
		live := p.Live()
		setDOMs(live, e.flatten(live.Rendered))
	}
}
