package vdom

import (
	"strconv"

	"github.com/vango-dev/livedom/internal/errors"
)

// Normalize flattens raw children into one sequence.
//
// Nested []any and []*VNode slices are unwrapped to any depth. nil and
// booleans become nil placeholders so conditional expressions resolve to
// nothing while keeping their slot. Strings and numbers become text nodes.
// The result is checked for the keying rule: either every non-nil element
// and component child carries a key or none does. Keys must be unique.
func Normalize(raw ...any) ([]*VNode, error) {
	out := make([]*VNode, 0, len(raw))
	var err error
	out, err = flatten(out, raw)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(out []*VNode, raw []any) ([]*VNode, error) {
	for _, item := range raw {
		switch v := item.(type) {
		case nil:
			out = append(out, nil)
		case bool:
			out = append(out, nil)
		case *VNode:
			out = append(out, v)
		case []*VNode:
			out = append(out, v...)
		case []any:
			var err error
			if out, err = flatten(out, v); err != nil {
				return nil, err
			}
		case []string:
			for _, s := range v {
				out = append(out, Text(s))
			}
		case string:
			out = append(out, Text(v))
		default:
			s, ok := formatNumber(item)
			if !ok {
				return nil, errors.New("E007").WithReason("got %T", item)
			}
			out = append(out, Text(s))
		}
	}
	return out, nil
}

func checkKeys(children []*VNode) error {
	keyed, unkeyed := 0, 0
	var seen map[string]struct{}
	for i, c := range children {
		if c == nil || (c.Kind != KindElement && c.Kind != KindComponent) {
			continue
		}
		if !c.Keyed() {
			unkeyed++
		} else {
			keyed++
			if seen == nil {
				seen = make(map[string]struct{})
			}
			if _, dup := seen[c.Key]; dup {
				return errors.New("E006").WithReason("key %q", c.Key).WithPath(c.Label())
			}
			seen[c.Key] = struct{}{}
		}
		if keyed > 0 && unkeyed > 0 {
			return errors.New("E001").WithReason("child %d (%s)", i, c.Label())
		}
	}
	return nil
}

// formatNumber stringifies integer and floating point kinds.
func formatNumber(v any) (string, bool) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), true
	case int8:
		return strconv.FormatInt(int64(n), 10), true
	case int16:
		return strconv.FormatInt(int64(n), 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	}
	return "", false
}

// build assembles an element or component description from builder
// arguments. Attr, []Attr, Props and EventHandler values become props;
// everything else is collected as children and normalized. A structural
// problem is recorded on the node and reported by the engine.
func build(kind VKind, tag string, args []any) *VNode {
	node := &VNode{Kind: kind, Tag: tag}
	var raw []any
	for _, arg := range args {
		switch v := arg.(type) {
		case Attr:
			node.setProp(v.Key, v.Value)
		case []Attr:
			for _, a := range v {
				node.setProp(a.Key, a.Value)
			}
		case Props:
			for k, val := range v {
				node.setProp(k, val)
			}
		case EventHandler:
			node.setProp(v.Event, v.Handler)
		default:
			raw = append(raw, arg)
		}
	}
	children, err := Normalize(raw...)
	if err != nil {
		node.fail(err)
	} else {
		node.Children = children
	}
	return node
}

func (v *VNode) setProp(key string, value any) {
	if key == "" {
		return
	}
	if v.Props == nil {
		v.Props = make(Props)
	}
	v.Props[key] = value
	if key != "key" {
		return
	}
	if value == nil {
		v.Key = ""
		return
	}
	s, ok := keyString(value)
	if !ok {
		v.fail(errors.New("E005").WithReason("key must be a string or integer, got %T", value))
		return
	}
	v.Key = s
}

// fail records the first structural error found while building v.
func (v *VNode) fail(err error) {
	if v.err != nil {
		return
	}
	if e, ok := err.(*errors.Error); ok && e.Path == "" {
		err = e.WithPath(v.Label())
	}
	v.err = err
}
