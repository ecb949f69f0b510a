package reconcile

import (
	"github.com/vango-dev/livedom/internal/errors"
	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// tagNamespaces maps tags that switch namespace on their own.
var tagNamespaces = map[string]dom.Namespace{
	"svg":  dom.NamespaceSVG,
	"math": dom.NamespaceMathML,
}

// resolveNamespace returns the namespace element v is created in: an
// explicit xmlns or ns prop wins, then the tag table, then inherited.
func resolveNamespace(v *vdom.VNode, inherited dom.Namespace) (dom.Namespace, error) {
	for _, name := range [...]string{"xmlns", "ns"} {
		raw, ok := v.Props[name]
		if !ok || raw == nil {
			continue
		}
		s, isString := raw.(string)
		if !isString {
			return 0, errors.New("E005").WithReason("%s must be a string, got %T", name, raw)
		}
		ns, known := dom.ParseNamespace(s)
		if !known {
			return 0, errors.New("E005").WithReason("unknown namespace %q", s)
		}
		return ns, nil
	}
	if ns, ok := tagNamespaces[v.Tag]; ok {
		return ns, nil
	}
	return inherited, nil
}

// childNamespace returns the namespace children of an element inherit.
// Content of foreignObject is HTML again.
func childNamespace(tag string, ns dom.Namespace) dom.Namespace {
	if ns == dom.NamespaceSVG && tag == "foreignObject" {
		return dom.NamespaceHTML
	}
	return ns
}
