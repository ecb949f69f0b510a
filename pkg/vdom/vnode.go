package vdom

import (
	"strconv"
	"strings"

	"github.com/vango-dev/livedom/pkg/dom"
)

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota + 1 // <div>, <button>, etc.
	KindText                       // Plain text node
	KindComponent                  // Component instance
	KindRaw                        // Raw HTML fragment
	KindRoot                       // Mount root bound to a container
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComponent:
		return "Component"
	case KindRaw:
		return "Raw"
	case KindRoot:
		return "Root"
	default:
		return "Unknown"
	}
}

// VNode describes one piece of UI for one render pass.
//
// The description fields (Kind through Key) are set by constructors and must
// not be modified once the node has been handed to the engine. The engine
// attaches realization state through Live.
type VNode struct {
	Kind     VKind       // Node type
	Tag      string      // Element tag name (e.g., "div")
	Text     string      // Text content (KindText) or markup (KindRaw)
	Comp     *Definition // For KindComponent
	Props    Props       // Attributes and event handlers
	Children []*VNode    // Normalized children; nil entries are placeholders
	Key      string      // Reconciliation key, copied from Props["key"]

	err  error
	live *Live
}

// Props holds attributes and event handlers.
type Props map[string]any

// RemovalState tracks a component through deferred teardown.
type RemovalState uint8

const (
	StateLive RemovalState = iota
	StatePendingRemoval
	StateRemoved
)

// String returns the string representation of the RemovalState.
func (s RemovalState) String() string {
	switch s {
	case StateLive:
		return "Live"
	case StatePendingRemoval:
		return "PendingRemoval"
	case StateRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// Live is the realization state the engine attaches to a rendered VNode.
// It is owned by the engine; application code may read it but must not
// write it.
type Live struct {
	// DOM is the primary DOM node. For components and raw fragments it is
	// the first of DOMs, or nil when they rendered nothing.
	DOM dom.Node

	// DOMs lists the top-level DOM nodes of a component or raw fragment.
	DOMs []dom.Node

	// Parent is the enclosing node. It is a navigation link only; ownership
	// flows from parent to child through Children.
	Parent *VNode

	// Rendered holds the normalized output of a component's last draw. It is
	// the baseline the next draw is diffed against.
	Rendered []*VNode

	// Events holds the handler properties currently assigned on DOM.
	Events map[string]any

	// Style holds the style declarations currently applied on DOM.
	Style map[string]string

	// NS is the namespace the node was created in.
	NS dom.Namespace

	// State is the removal state of a component.
	State RemovalState

	// Orphans are pending-removal children that no longer have a slot in
	// Children (dropped from a keyed list) but still await teardown.
	Orphans []*VNode

	// Instance is the component instance; its concrete type belongs to the
	// engine.
	Instance Instance

	// Cancel deregisters the pending removal continuation, if any.
	Cancel func()
}

// Live returns the realization state, or nil if the node was never rendered.
func (v *VNode) Live() *Live {
	if v == nil {
		return nil
	}
	return v.live
}

// Realize attaches fresh realization state and returns it.
func (v *VNode) Realize() *Live {
	v.live = &Live{}
	return v.live
}

// Adopt moves the realization state of old onto v. The engine calls it when
// it reuses the DOM of old for v.
func (v *VNode) Adopt(old *VNode) *Live {
	v.live = old.live
	return v.live
}

// Release detaches realization state from v.
func (v *VNode) Release() {
	v.live = nil
}

// Realized reports whether v has live state with at least an owned DOM
// handle (or, for components and fragments, a live record at all).
func (v *VNode) Realized() bool {
	if v == nil || v.live == nil {
		return false
	}
	switch v.Kind {
	case KindComponent, KindRaw:
		return true
	default:
		return v.live.DOM != nil
	}
}

// Err returns the structural error found while building v, if any.
// The engine reports it when it first reaches v.
func (v *VNode) Err() error {
	if v == nil {
		return nil
	}
	return v.err
}

// Keyed reports whether v carries a reconciliation key.
func (v *VNode) Keyed() bool {
	if v == nil {
		return false
	}
	if v.Key != "" {
		return true
	}
	k := v.Props["key"]
	return k != nil && k != ""
}

// IsInteractive returns true if this node has event handlers.
func (v *VNode) IsInteractive() bool {
	if v == nil || v.Kind != KindElement {
		return false
	}
	for key, val := range v.Props {
		if isEventName(key) && val != nil {
			return true
		}
	}
	return false
}

// Label returns a short description of v used in error paths and logs.
func (v *VNode) Label() string {
	if v == nil {
		return "nil"
	}
	switch v.Kind {
	case KindElement:
		label := v.Tag
		if id, ok := v.Props["id"].(string); ok && id != "" {
			label += "#" + id
		}
		if v.Key != "" {
			label += "[key=" + strconv.Quote(v.Key) + "]"
		}
		return label
	case KindText:
		return "#text"
	case KindComponent:
		name := "component"
		if v.Comp != nil && v.Comp.Name() != "" {
			name = v.Comp.Name()
		}
		if v.Key != "" {
			name += "[key=" + strconv.Quote(v.Key) + "]"
		}
		return name
	case KindRaw:
		return "#raw"
	case KindRoot:
		return "#root"
	default:
		return "#unknown"
	}
}

// Path returns the labels from the outermost realized ancestor down to v,
// joined with " > ".
func (v *VNode) Path() string {
	var parts []string
	for n := v; n != nil; {
		parts = append(parts, n.Label())
		if n.live == nil {
			break
		}
		n = n.live.Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// EventHandler represents an event handler.
type EventHandler struct {
	Event   string // "onclick", "oninput", etc.
	Handler any    // Function to call
}

// isEventName reports whether an attribute name is an on* handler name.
func isEventName(key string) bool {
	return len(key) > 2 && strings.EqualFold(key[:2], "on")
}

// keyString converts a key prop value to its string form.
func keyString(v any) (string, bool) {
	switch k := v.(type) {
	case string:
		return k, true
	case int:
		return strconv.Itoa(k), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	}
	return "", false
}
