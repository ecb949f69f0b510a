package mount

import (
	"context"

	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// Root is a container bound to a description.
type Root struct {
	r         *Renderer
	container dom.Node
	node      *vdom.VNode
	desc      any

	dirty  bool
	closed bool
}

// Container returns the DOM container.
func (root *Root) Container() dom.Node { return root.container }

// Node returns the engine's root node; its Children are the nodes rendered
// on the last pass.
func (root *Root) Node() *vdom.VNode { return root.node }

// Mounted reports whether the root is still mounted.
func (root *Root) Mounted() bool { return !root.closed }

// Redraw re-renders the description now. Inside a render pass (from a
// hook) the redraw is deferred to the next frame instead.
func (root *Root) Redraw(ctx context.Context) error {
	if root.closed {
		return ErrUnmounted
	}
	if root.r.engine.Busy() {
		root.Invalidate()
		return nil
	}
	return root.render(ctx, PassRedraw)
}

// Invalidate schedules a redraw for the next frame. Repeated calls before
// that frame coalesce.
func (root *Root) Invalidate() {
	root.r.invalidate(root)
}

// Unmount tears down everything rendered into the container and releases
// it. Unmounting twice is a no-op.
func (root *Root) Unmount(ctx context.Context) error {
	if root.closed {
		return nil
	}
	p := &Pass{Kind: PassUnmount, Container: root.container}
	err := root.r.run(ctx, p, func() error {
		return root.r.engine.Unmount(root.node)
	})
	root.closed = true
	root.r.forget(root)
	return err
}

func (root *Root) render(ctx context.Context, kind PassKind) error {
	p := &Pass{Kind: kind, Container: root.container}
	return root.r.run(ctx, p, root.renderNow)
}

// renderNow reconciles the current description inside the running pass.
func (root *Root) renderNow() error {
	nodes, err := describe(root.desc)
	if err != nil {
		return err
	}
	return root.r.engine.Render(root.node, nodes)
}

// describe evaluates view funcs and normalizes the result.
func describe(desc any) ([]*vdom.VNode, error) {
	switch view := desc.(type) {
	case func() any:
		desc = view()
	case func() *vdom.VNode:
		desc = view()
	}
	return vdom.Normalize(desc)
}
