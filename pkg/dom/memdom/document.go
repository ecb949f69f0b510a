package memdom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/livedom/pkg/dom"
)

// Common errors.
var (
	ErrInvalidTag       = errors.New("memdom: invalid tag name")
	ErrInvalidAttribute = errors.New("memdom: invalid attribute name")
	ErrNotChild         = errors.New("memdom: reference node is not a child of parent")
	ErrHierarchy        = errors.New("memdom: node cannot be inserted into its own subtree")
	ErrNotElement       = errors.New("memdom: node is not an element")
)

// Document is an in-memory DOM built on golang.org/x/net/html nodes.
// Handles returned to the engine are *html.Node values.
//
// A Document is not safe for concurrent use.
type Document struct {
	root *html.Node
	body *html.Node

	props  map[*html.Node]map[string]any
	styles map[*html.Node]*styleDecl

	log       []Mutation
	nolog     bool
	observers map[int]func(Mutation)
	nextObs   int
}

var _ dom.Provider = (*Document)(nil)

// New creates a document containing an empty <html><head></head><body></body></html>.
func New() *Document {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := newElement("html", "")
	head := newElement("head", "")
	body := newElement("body", "")
	root.AppendChild(htmlEl)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	return &Document{
		root:      root,
		body:      body,
		props:     make(map[*html.Node]map[string]any),
		styles:    make(map[*html.Node]*styleDecl),
		observers: make(map[int]func(Mutation)),
	}
}

// Body returns the document's <body> element.
func (d *Document) Body() *html.Node { return d.body }

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

func newElement(tag, ns string) *html.Node {
	return &html.Node{
		Type:      html.ElementNode,
		Data:      tag,
		DataAtom:  atom.Lookup([]byte(tag)),
		Namespace: ns,
	}
}

// node converts an engine handle back to *html.Node.
func node(n dom.Node) *html.Node {
	if n == nil {
		return nil
	}
	hn, ok := n.(*html.Node)
	if !ok {
		panic(fmt.Sprintf("memdom: foreign node handle %T", n))
	}
	return hn
}

// handle converts a possibly nil *html.Node to a handle without producing a
// typed nil interface.
func handle(n *html.Node) dom.Node {
	if n == nil {
		return nil
	}
	return n
}

// CreateElement implements dom.Provider.
func (d *Document) CreateElement(ns dom.Namespace, tag, is string) (dom.Node, error) {
	if !validName(tag) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	short := ""
	if ns != dom.NamespaceHTML {
		short = ns.String()
	}
	el := newElement(tag, short)
	if is != "" {
		el.Attr = append(el.Attr, html.Attribute{Key: "is", Val: is})
	}
	d.record(Mutation{Op: OpCreateElement, Target: el, Name: tag, Value: short})
	return el, nil
}

// CreateTextNode implements dom.Provider.
func (d *Document) CreateTextNode(text string) dom.Node {
	n := &html.Node{Type: html.TextNode, Data: text}
	d.record(Mutation{Op: OpCreateText, Target: n, Value: text})
	return n
}

// ParseFragment implements dom.Provider.
func (d *Document) ParseFragment(context dom.Node, markup string) ([]dom.Node, error) {
	ctx := node(context)
	if ctx == nil || ctx.Type != html.ElementNode {
		return nil, ErrNotElement
	}
	// The parser insists DataAtom agrees with Data, so hand it a clean copy.
	holder := newElement(ctx.Data, ctx.Namespace)
	nodes, err := html.ParseFragment(strings.NewReader(markup), holder)
	if err != nil {
		return nil, fmt.Errorf("memdom: parse fragment: %w", err)
	}
	out := make([]dom.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	d.record(Mutation{Op: OpParse, Target: ctx, Value: markup})
	return out, nil
}

// SetAttribute implements dom.Provider.
func (d *Document) SetAttribute(el dom.Node, name, value string) error {
	n := node(el)
	if n.Type != html.ElementNode {
		return ErrNotElement
	}
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidAttribute, name)
	}
	setAttr(n, name, value)
	d.record(Mutation{Op: OpSetAttr, Target: n, Name: name, Value: value})
	return nil
}

// RemoveAttribute implements dom.Provider.
func (d *Document) RemoveAttribute(el dom.Node, name string) {
	n := node(el)
	if !removeAttr(n, name) {
		return
	}
	d.record(Mutation{Op: OpRemoveAttr, Target: n, Name: name})
}

// SetProperty implements dom.Provider.
func (d *Document) SetProperty(el dom.Node, name string, value any) {
	if value == nil {
		d.RemoveProperty(el, name)
		return
	}
	n := node(el)
	props := d.props[n]
	if props == nil {
		props = make(map[string]any)
		d.props[n] = props
	}
	props[name] = value
	d.record(Mutation{Op: OpSetProp, Target: n, Name: name, Data: value})
}

// RemoveProperty implements dom.Provider.
func (d *Document) RemoveProperty(el dom.Node, name string) {
	n := node(el)
	props := d.props[n]
	if _, ok := props[name]; !ok {
		return
	}
	delete(props, name)
	if len(props) == 0 {
		delete(d.props, n)
	}
	d.record(Mutation{Op: OpRemoveProp, Target: n, Name: name})
}

// SetStyle implements dom.Provider. The declaration is reflected into the
// element's style attribute the way a browser reflects CSSStyleDeclaration.
func (d *Document) SetStyle(el dom.Node, prop, value string) {
	n := node(el)
	decl := d.styles[n]
	if decl == nil {
		decl = &styleDecl{}
		d.styles[n] = decl
	}
	decl.set(prop, value)
	setAttr(n, "style", decl.String())
	d.record(Mutation{Op: OpSetStyle, Target: n, Name: prop, Value: value})
}

// RemoveStyle implements dom.Provider.
func (d *Document) RemoveStyle(el dom.Node, prop string) {
	n := node(el)
	decl := d.styles[n]
	if decl == nil || !decl.remove(prop) {
		return
	}
	if decl.len() == 0 {
		delete(d.styles, n)
		removeAttr(n, "style")
	} else {
		setAttr(n, "style", decl.String())
	}
	d.record(Mutation{Op: OpRemoveStyle, Target: n, Name: prop})
}

// InsertBefore implements dom.Provider.
func (d *Document) InsertBefore(parent, child, ref dom.Node) error {
	p, c, r := node(parent), node(child), node(ref)
	if r != nil && r.Parent != p {
		return ErrNotChild
	}
	for a := p; a != nil; a = a.Parent {
		if a == c {
			return ErrHierarchy
		}
	}
	if c == r {
		return nil
	}
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	p.InsertBefore(c, r)
	d.record(Mutation{Op: OpInsert, Target: p, Node: c, Ref: r})
	return nil
}

// RemoveChild implements dom.Provider. Removing a node that is not a child
// of parent is a no-op.
func (d *Document) RemoveChild(parent, child dom.Node) {
	p, c := node(parent), node(child)
	if c == nil || c.Parent != p {
		return
	}
	p.RemoveChild(c)
	d.record(Mutation{Op: OpRemove, Target: p, Node: c})
}

// ParentNode implements dom.Provider.
func (d *Document) ParentNode(n dom.Node) dom.Node { return handle(node(n).Parent) }

// FirstChild implements dom.Provider.
func (d *Document) FirstChild(n dom.Node) dom.Node { return handle(node(n).FirstChild) }

// NextSibling implements dom.Provider.
func (d *Document) NextSibling(n dom.Node) dom.Node { return handle(node(n).NextSibling) }

// TagName implements dom.Provider.
func (d *Document) TagName(n dom.Node) string {
	hn := node(n)
	if hn == nil || hn.Type != html.ElementNode {
		return ""
	}
	return hn.Data
}

// Property returns the live property name of el, or nil.
func (d *Document) Property(el *html.Node, name string) any {
	return d.props[el][name]
}

// Properties returns a copy of every live property set on el.
func (d *Document) Properties(el *html.Node) map[string]any {
	props := d.props[el]
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// Style returns one style declaration of el.
func (d *Document) Style(el *html.Node, prop string) string {
	if decl := d.styles[el]; decl != nil {
		return decl.get(prop)
	}
	return ""
}

// StyleProps returns the style properties declared on el in declaration
// order.
func (d *Document) StyleProps(el *html.Node) []string {
	decl := d.styles[el]
	if decl == nil {
		return nil
	}
	return append([]string(nil), decl.keys...)
}

// Dispatch delivers an event to el's on<event> property handler and reports
// whether a handler ran. value is exposed to the handler as Event.Value.
func (d *Document) Dispatch(el *html.Node, event, value string) bool {
	h := d.props[el]["on"+event]
	return dom.CallHandler(h, &dom.Event{Type: event, Target: el, Value: value})
}

// Forget drops property and style state for every node in the subtree of n.
// Detached subtrees keep their state until forgotten, matching a browser
// where a removed node can be re-inserted.
func (d *Document) Forget(n *html.Node) {
	walk(n, func(c *html.Node) {
		delete(d.props, c)
		delete(d.styles, c)
	})
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// validName is a conservative check for element and attribute names.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r <= ' ', r == '<', r == '>', r == '"', r == '\'', r == '/', r == '=', r == 0x7f:
			return false
		}
	}
	return true
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) bool {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// styleDecl keeps style declarations in first-set order.
type styleDecl struct {
	keys   []string
	values map[string]string
}

func (s *styleDecl) set(prop, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[prop]; !ok {
		s.keys = append(s.keys, prop)
	}
	s.values[prop] = value
}

func (s *styleDecl) get(prop string) string { return s.values[prop] }

func (s *styleDecl) remove(prop string) bool {
	if _, ok := s.values[prop]; !ok {
		return false
	}
	delete(s.values, prop)
	for i, k := range s.keys {
		if k == prop {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

func (s *styleDecl) len() int { return len(s.keys) }

func (s *styleDecl) String() string {
	parts := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		parts = append(parts, k+": "+s.values[k])
	}
	return strings.Join(parts, "; ")
}
