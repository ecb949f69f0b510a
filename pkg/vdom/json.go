package vdom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/vango-dev/livedom/internal/errors"
)

// ParseJSON decodes a JSON description into a normalized child list.
//
// The document is an object or an array of them:
//
//	{"tag": "ul", "attrs": {"class": ["list"]}, "children": [
//	    {"tag": "li", "attrs": {"key": 1}, "children": ["one"]},
//	    {"text": "plain"},
//	    {"html": "<b>raw</b>"}
//	]}
//
// Inside children, strings, numbers, booleans and null follow Normalize.
// Attribute values may be strings, numbers, booleans, null, arrays of
// strings (class lists) or objects of strings (style maps).
func ParseJSON(data []byte) ([]*VNode, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("vdom: decode description: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("vdom: decode description: trailing data")
	}
	raw, err := fromJSON(doc, "$")
	if err != nil {
		return nil, err
	}
	nodes, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := firstErr(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// fromJSON converts a decoded JSON value into a builder argument.
func fromJSON(v any, path string) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		return jsonNumber(x), nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			c, err := fromJSON(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		n, err := nodeFromJSON(x, path)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, errors.New("E007").WithReason("got %T", v).WithPath(path)
}

func nodeFromJSON(obj map[string]any, path string) (*VNode, error) {
	if s, ok := obj["text"]; ok {
		return Text(scalarString(s)), nil
	}
	if s, ok := obj["html"]; ok {
		return Raw(scalarString(s)), nil
	}
	tag, _ := obj["tag"].(string)
	if tag == "" {
		return nil, errors.New("E007").WithReason("object without tag, text or html").WithPath(path)
	}
	path += "." + tag
	args := make([]any, 0, 2)
	if attrs, ok := obj["attrs"].(map[string]any); ok {
		props, err := propsFromJSON(attrs, path)
		if err != nil {
			return nil, err
		}
		args = append(args, props)
	}
	if key, ok := obj["key"]; ok {
		args = append(args, Key(keyFromJSON(key)))
	}
	if children, ok := obj["children"]; ok {
		c, err := fromJSON(children, path)
		if err != nil {
			return nil, err
		}
		args = append(args, c)
	}
	return El(tag, args...), nil
}

func propsFromJSON(attrs map[string]any, path string) (Props, error) {
	props := make(Props, len(attrs))
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch v := attrs[name].(type) {
		case nil, bool, string:
			props[name] = v
		case json.Number:
			if name == "key" {
				props[name] = keyFromJSON(v)
			} else {
				props[name] = jsonNumber(v)
			}
		case []any:
			list := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, errors.New("E005").WithReason("class list %q holds %T", name, item).WithPath(path)
				}
				list = append(list, s)
			}
			props[name] = list
		case map[string]any:
			styles := make(Styles, len(v))
			for prop, val := range v {
				styles[prop] = scalarString(val)
			}
			props[name] = styles
		default:
			return nil, errors.New("E005").WithReason("attribute %q has type %T", name, v).WithPath(path)
		}
	}
	return props, nil
}

func jsonNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func keyFromJSON(v any) any {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		return n.String()
	}
	return v
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// firstErr returns the first structural error recorded on a node in the
// forest, depth first.
func firstErr(nodes []*VNode) error {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.err != nil {
			return n.err
		}
		if err := firstErr(n.Children); err != nil {
			return err
		}
	}
	return nil
}
