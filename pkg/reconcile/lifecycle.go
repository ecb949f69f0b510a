package reconcile

import (
	"github.com/vango-dev/livedom/pkg/vdom"
)

// settlement is a removal continuation that fired, waiting for Settle.
type settlement struct {
	v   *vdom.VNode
	err error
}

// remove takes v out of the tree. A component whose Remove hook returns a
// completion enters PendingRemoval and keeps its DOM until the completion
// settles; remove then reports deferred. Everything else is destroyed now.
func (e *Engine) remove(v *vdom.VNode) (deferred bool, err error) {
	live := v.Live()
	if live == nil {
		return false, nil
	}
	if v.Kind == vdom.KindComponent {
		if live.State == vdom.StatePendingRemoval {
			return true, nil
		}
		c := live.Instance.(*instance)
		if h := c.def.Hooks().Remove; h != nil {
			comp, err := vdom.AsCompletion(h(c))
			if err != nil {
				e.destroy(v, true)
				return false, atPath(err, v)
			}
			if comp != nil {
				live.State = vdom.StatePendingRemoval
				e.pending++
				e.stats.Deferred++
				live.Cancel = comp.OnSettle(func(err error) { e.enqueue(v, err) })
				return true, nil
			}
		}
	}
	e.destroy(v, true)
	return false, nil
}

// removeInto removes o, keeping it as an orphan of parent if the removal is
// deferred.
func (e *Engine) removeInto(parent, o *vdom.VNode) error {
	deferred, err := e.remove(o)
	if deferred {
		e.orphan(parent, o)
	}
	return err
}

// orphan parks a pending node on parent until it settles.
func (e *Engine) orphan(parent, o *vdom.VNode) {
	live := parent.Live()
	for _, x := range live.Orphans {
		if x == o {
			return
		}
	}
	live.Orphans = append(live.Orphans, o)
	o.Live().Parent = parent
}

// enqueue is the settle continuation. It may run on any goroutine.
func (e *Engine) enqueue(v *vdom.VNode, err error) {
	e.settleMu.Lock()
	e.settled = append(e.settled, settlement{v: v, err: err})
	e.settleMu.Unlock()
	e.requestFrame()
}

// Settled reports whether completions have fired since the last Settle.
func (e *Engine) Settled() bool {
	e.settleMu.Lock()
	defer e.settleMu.Unlock()
	return len(e.settled) > 0
}

// Settle finishes the removals whose completions have fired and returns how
// many it finished. A rejected completion finishes the removal the same way
// as a resolved one. Inside a render pass Settle does nothing; the queue is
// drained on the next call.
func (e *Engine) Settle() (int, error) {
	if e.busy {
		return 0, nil
	}
	e.settleMu.Lock()
	batch := e.settled
	e.settled = nil
	e.settleMu.Unlock()
	if len(batch) == 0 {
		return 0, nil
	}

	n := 0
	err := e.pass(func() error {
		for _, s := range batch {
			live := s.v.Live()
			if live == nil || live.State != vdom.StatePendingRemoval {
				continue
			}
			if s.err != nil {
				e.logger.Debug("removal completion rejected",
					"node", s.v.Path(),
					"error", s.err)
			}
			parent := live.Parent
			live.Cancel = nil
			e.unlink(parent, s.v)
			e.destroy(s.v, true)
			e.stats.Settled++
			n++
			e.refreshAncestors(parent)
		}
		return nil
	})
	return n, err
}

// unlink drops v from parent's orphans or frees the slot it held.
func (e *Engine) unlink(parent, v *vdom.VNode) {
	if parent == nil || parent.Live() == nil {
		return
	}
	live := parent.Live()
	for i, o := range live.Orphans {
		if o == v {
			live.Orphans = append(live.Orphans[:i:i], live.Orphans[i+1:]...)
			return
		}
	}
	if parent.Kind == vdom.KindComponent {
		live.Rendered = freeSlot(live.Rendered, v)
	} else {
		parent.Children = freeSlot(parent.Children, v)
	}
}

func freeSlot(list []*vdom.VNode, v *vdom.VNode) []*vdom.VNode {
	for i, c := range list {
		if c == v {
			list[i] = nil
			return trimNil(list)
		}
	}
	return list
}

// Tick calls the Tick hook of every live instance that has one.
func (e *Engine) Tick(frame uint64) error {
	if len(e.ticks) == 0 {
		return nil
	}
	return e.pass(func() error {
		ticks := append([]*instance(nil), e.ticks...)
		for _, c := range ticks {
			if c.destroyed {
				continue
			}
			c.def.Hooks().Tick(c, frame)
		}
		return nil
	})
}

func (e *Engine) untick(c *instance) {
	for i, t := range e.ticks {
		if t == c {
			e.ticks = append(e.ticks[:i:i], e.ticks[i+1:]...)
			return
		}
	}
}
