package mount

import (
	"sync"

	"github.com/vango-dev/livedom/internal/errors"
	"github.com/vango-dev/livedom/pkg/dom"
)

// Registry tracks mounted containers. Renderers sharing a Registry refuse
// to mount overlapping containers.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	roots map[dom.Node]*Root
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{roots: make(map[dom.Node]*Root)}
}

// Lookup returns the root mounted on container, or nil.
func (g *Registry) Lookup(container dom.Node) *Root {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roots[container]
}

// Len returns the number of mounted containers.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.roots)
}

// Reset forgets every container without tearing anything down.
func (g *Registry) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots = make(map[dom.Node]*Root)
}

// claim registers root on container. It fails with E003 when container is
// inside or around a container that is already mounted.
func (g *Registry) claim(doc dom.Provider, container dom.Node, root *Root) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for owned, other := range g.roots {
		if other.r != nil && other.r.doc != doc {
			// Containers of another document cannot overlap this one.
			continue
		}
		switch {
		case owned == container:
			return errors.New("E003").WithReason("container already mounted")
		case contains(doc, owned, container):
			return errors.New("E003").WithReason("container is inside a mounted container")
		case contains(doc, container, owned):
			return errors.New("E003").WithReason("container holds a mounted container")
		}
	}
	g.roots[container] = root
	return nil
}

func (g *Registry) release(container dom.Node, root *Root) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.roots[container] == root {
		delete(g.roots, container)
	}
}

// contains reports whether n is a strict descendant of ancestor.
func contains(doc dom.Provider, ancestor, n dom.Node) bool {
	for p := doc.ParentNode(n); p != nil; p = doc.ParentNode(p) {
		if p == ancestor {
			return true
		}
	}
	return false
}
