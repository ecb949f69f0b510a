package remote

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/protocol"
)

// RootID is the node id of the document body. Clients map it to the
// element they render into.
const RootID protocol.NodeID = 1

// Provider is a dom.Provider that applies every call to a memdom document
// and records it as a protocol patch addressed by node id.
//
// Containers must be the body or nodes created through the Provider; the
// client knows no other ids. Like the document it wraps, a Provider is not
// safe for concurrent use.
type Provider struct {
	doc   *memdom.Document
	ids   map[*html.Node]protocol.NodeID
	nodes map[protocol.NodeID]*html.Node
	next  protocol.NodeID

	batch []protocol.Patch
	seq   uint64
}

var _ dom.Provider = (*Provider)(nil)

// NewProvider wraps doc.
func NewProvider(doc *memdom.Document) *Provider {
	p := &Provider{
		doc:   doc,
		ids:   make(map[*html.Node]protocol.NodeID),
		nodes: make(map[protocol.NodeID]*html.Node),
		next:  RootID,
	}
	p.id(doc.Body())
	return p
}

// Document returns the wrapped document.
func (p *Provider) Document() *memdom.Document { return p.doc }

// ID returns the id of n, or 0 if n has none.
func (p *Provider) ID(n *html.Node) protocol.NodeID { return p.ids[n] }

// Node returns the node with the given id, or nil.
func (p *Provider) Node(id protocol.NodeID) *html.Node { return p.nodes[id] }

// Pending returns the number of patches recorded since the last Flush.
func (p *Provider) Pending() int { return len(p.batch) }

// Seq returns the sequence number of the last flushed batch.
func (p *Provider) Seq() uint64 { return p.seq }

// Flush returns the patches recorded since the last Flush as the next
// numbered batch, or nil if there are none.
func (p *Provider) Flush() *protocol.PatchesFrame {
	if len(p.batch) == 0 {
		return nil
	}
	p.seq++
	pf := &protocol.PatchesFrame{Seq: p.seq, Patches: p.batch}
	p.batch = nil
	return pf
}

// Snapshot describes the current body content as patches that rebuild it
// on a client with an empty root. Its Seq is the last flushed batch, so
// the next Flush continues where it ends. Unflushed patches are not
// included in any way; flush first.
func (p *Provider) Snapshot() *protocol.PatchesFrame {
	var out []protocol.Patch
	body := p.doc.Body()
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		out = p.describe(out, body, c)
	}
	return &protocol.PatchesFrame{Seq: p.seq, Patches: out}
}

// describe appends the patches that create n and insert it into parent.
func (p *Provider) describe(out []protocol.Patch, parent, n *html.Node) []protocol.Patch {
	id := p.id(n)
	switch n.Type {
	case html.TextNode:
		out = append(out, protocol.Patch{Op: protocol.PatchCreateText, Node: id, Value: n.Data})
	case html.ElementNode:
		is, _ := memdom.Attr(n, "is")
		out = append(out, protocol.Patch{
			Op:    protocol.PatchCreateElement,
			Node:  id,
			NS:    namespaceURI(n.Namespace),
			Tag:   n.Data,
			Value: is,
		})
		for _, a := range n.Attr {
			if a.Key == "is" && a.Namespace == "" {
				continue
			}
			if a.Key == "style" && a.Namespace == "" {
				if decl := p.doc.StyleProps(n); len(decl) > 0 {
					for _, prop := range decl {
						out = append(out, protocol.Patch{Op: protocol.PatchSetStyle, Node: id, Key: prop, Value: p.doc.Style(n, prop)})
					}
					continue
				}
			}
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			out = append(out, protocol.Patch{Op: protocol.PatchSetAttr, Node: id, Key: key, Value: a.Val})
		}
		props := p.doc.Properties(n)
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, propPatch(id, name, props[name]))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			out = p.describe(out, n, c)
		}
	default:
		// Comments and other markup from raw content are reparsed in
		// place on the client.
		var b strings.Builder
		_ = html.Render(&b, n)
		return append(out, protocol.Patch{
			Op:    protocol.PatchFragment,
			Node:  p.id(parent),
			Value: b.String(),
			Nodes: []protocol.NodeID{id},
		}, protocol.Patch{Op: protocol.PatchInsert, Node: id, Parent: p.id(parent)})
	}
	return append(out, protocol.Patch{Op: protocol.PatchInsert, Node: id, Parent: p.id(parent)})
}

// Dispatch delivers a client event to the handler of the addressed node.
// It reports whether a handler ran; events for unknown or removed nodes
// are dropped.
func (p *Provider) Dispatch(ev *protocol.Event) bool {
	n := p.nodes[ev.Node]
	if n == nil {
		return false
	}
	return p.doc.Dispatch(n, ev.Type, ev.Value)
}

// id returns the id of n, assigning the next free one if needed.
func (p *Provider) id(n *html.Node) protocol.NodeID {
	if n == nil {
		return 0
	}
	if id, ok := p.ids[n]; ok {
		return id
	}
	id := p.next
	p.next++
	p.ids[n] = id
	p.nodes[id] = n
	return id
}

// forget drops the ids of n's subtree.
func (p *Provider) forget(n *html.Node) {
	if id, ok := p.ids[n]; ok {
		delete(p.ids, n)
		delete(p.nodes, id)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.forget(c)
	}
}

func (p *Provider) emit(patch protocol.Patch) {
	p.batch = append(p.batch, patch)
}

// CreateElement implements dom.Provider.
func (p *Provider) CreateElement(ns dom.Namespace, tag, is string) (dom.Node, error) {
	el, err := p.doc.CreateElement(ns, tag, is)
	if err != nil {
		return nil, err
	}
	uri := ""
	if ns != dom.NamespaceHTML {
		uri = ns.URI()
	}
	p.emit(protocol.Patch{Op: protocol.PatchCreateElement, Node: p.id(asNode(el)), NS: uri, Tag: tag, Value: is})
	return el, nil
}

// CreateTextNode implements dom.Provider.
func (p *Provider) CreateTextNode(text string) dom.Node {
	n := p.doc.CreateTextNode(text)
	p.emit(protocol.Patch{Op: protocol.PatchCreateText, Node: p.id(asNode(n)), Value: text})
	return n
}

// ParseFragment implements dom.Provider. The client parses the same markup
// in the same context, so only the top-level nodes get ids.
func (p *Provider) ParseFragment(context dom.Node, markup string) ([]dom.Node, error) {
	nodes, err := p.doc.ParseFragment(context, markup)
	if err != nil {
		return nil, err
	}
	ids := make([]protocol.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = p.id(asNode(n))
	}
	p.emit(protocol.Patch{Op: protocol.PatchFragment, Node: p.id(asNode(context)), Value: markup, Nodes: ids})
	return nodes, nil
}

// SetAttribute implements dom.Provider.
func (p *Provider) SetAttribute(el dom.Node, name, value string) error {
	if err := p.doc.SetAttribute(el, name, value); err != nil {
		return err
	}
	p.emit(protocol.Patch{Op: protocol.PatchSetAttr, Node: p.id(asNode(el)), Key: name, Value: value})
	return nil
}

// RemoveAttribute implements dom.Provider.
func (p *Provider) RemoveAttribute(el dom.Node, name string) {
	n := asNode(el)
	if _, ok := memdom.Attr(n, name); !ok {
		return
	}
	p.doc.RemoveAttribute(el, name)
	p.emit(protocol.Patch{Op: protocol.PatchRemoveAttr, Node: p.id(n), Key: name})
}

// SetProperty implements dom.Provider. Handlers travel as SetHandler
// patches naming the event; other values travel as JSON.
func (p *Provider) SetProperty(el dom.Node, name string, value any) {
	if value == nil {
		p.RemoveProperty(el, name)
		return
	}
	p.doc.SetProperty(el, name, value)
	p.emit(propPatch(p.id(asNode(el)), name, value))
}

// RemoveProperty implements dom.Provider.
func (p *Provider) RemoveProperty(el dom.Node, name string) {
	n := asNode(el)
	old := p.doc.Property(n, name)
	if old == nil {
		return
	}
	p.doc.RemoveProperty(el, name)
	if isHandler(name, old) {
		p.emit(protocol.Patch{Op: protocol.PatchRemoveHandler, Node: p.id(n), Key: name[2:]})
		return
	}
	p.emit(protocol.Patch{Op: protocol.PatchRemoveProp, Node: p.id(n), Key: name})
}

// SetStyle implements dom.Provider.
func (p *Provider) SetStyle(el dom.Node, prop, value string) {
	p.doc.SetStyle(el, prop, value)
	p.emit(protocol.Patch{Op: protocol.PatchSetStyle, Node: p.id(asNode(el)), Key: prop, Value: value})
}

// RemoveStyle implements dom.Provider.
func (p *Provider) RemoveStyle(el dom.Node, prop string) {
	n := asNode(el)
	if p.doc.Style(n, prop) == "" {
		return
	}
	p.doc.RemoveStyle(el, prop)
	p.emit(protocol.Patch{Op: protocol.PatchRemoveStyle, Node: p.id(n), Key: prop})
}

// InsertBefore implements dom.Provider.
func (p *Provider) InsertBefore(parent, child, ref dom.Node) error {
	if err := p.doc.InsertBefore(parent, child, ref); err != nil {
		return err
	}
	c := asNode(child)
	if c == asNode(ref) {
		return nil
	}
	p.emit(protocol.Patch{
		Op:     protocol.PatchInsert,
		Node:   p.id(c),
		Parent: p.id(asNode(parent)),
		Ref:    p.id(asNode(ref)),
	})
	return nil
}

// RemoveChild implements dom.Provider. The removed subtree loses its ids.
func (p *Provider) RemoveChild(parent, child dom.Node) {
	pn, c := asNode(parent), asNode(child)
	if c == nil || c.Parent != pn {
		return
	}
	p.doc.RemoveChild(parent, child)
	p.emit(protocol.Patch{Op: protocol.PatchRemove, Node: p.id(c), Parent: p.id(pn)})
	p.forget(c)
}

// ParentNode implements dom.Provider.
func (p *Provider) ParentNode(n dom.Node) dom.Node { return p.doc.ParentNode(n) }

// FirstChild implements dom.Provider.
func (p *Provider) FirstChild(n dom.Node) dom.Node { return p.doc.FirstChild(n) }

// NextSibling implements dom.Provider.
func (p *Provider) NextSibling(n dom.Node) dom.Node { return p.doc.NextSibling(n) }

// TagName implements dom.Provider.
func (p *Provider) TagName(n dom.Node) string { return p.doc.TagName(n) }

func asNode(n dom.Node) *html.Node {
	hn, _ := n.(*html.Node)
	return hn
}

// namespaceURI maps the parser's short namespace name to the patch form.
func namespaceURI(short string) string {
	if short == "" {
		return ""
	}
	ns, ok := dom.ParseNamespace(short)
	if !ok || ns == dom.NamespaceHTML {
		return ""
	}
	return ns.URI()
}

func isHandler(name string, v any) bool {
	if !strings.HasPrefix(name, "on") || len(name) <= 2 {
		return false
	}
	if _, ok := v.(dom.EventHandler); ok {
		return true
	}
	return strings.HasPrefix(fmt.Sprintf("%T", v), "func(")
}

func propPatch(id protocol.NodeID, name string, value any) protocol.Patch {
	if isHandler(name, value) {
		return protocol.Patch{Op: protocol.PatchSetHandler, Node: id, Key: name[2:]}
	}
	data, err := json.Marshal(value)
	if err != nil {
		data = []byte(strconv.Quote(fmt.Sprint(value)))
	}
	return protocol.Patch{Op: protocol.PatchSetProp, Node: id, Key: name, Value: string(data)}
}
