package memdom

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/vango-dev/livedom/pkg/dom"
)

func el(t *testing.T, d *Document, tag string) *html.Node {
	t.Helper()
	n, err := d.CreateElement(dom.NamespaceHTML, tag, "")
	if err != nil {
		t.Fatalf("CreateElement(%q) error = %v", tag, err)
	}
	return n.(*html.Node)
}

func TestNew(t *testing.T) {
	d := New()
	if got := OuterHTML(d.Root()); got != "<html><head></head><body></body></html>" {
		t.Errorf("New() = %q", got)
	}
	if d.Body().Data != "body" {
		t.Errorf("Body() = %v", d.Body().Data)
	}
}

func TestCreateElement(t *testing.T) {
	d := New()

	svg, err := d.CreateElement(dom.NamespaceSVG, "circle", "")
	if err != nil {
		t.Fatal(err)
	}
	if n := svg.(*html.Node); n.Namespace != "svg" || NamespaceURI(n) != dom.SVGNamespaceURI {
		t.Errorf("svg namespace = %q", n.Namespace)
	}

	custom, _ := d.CreateElement(dom.NamespaceHTML, "button", "fancy-button")
	if v, ok := Attr(custom.(*html.Node), "is"); !ok || v != "fancy-button" {
		t.Errorf("is = %q, %v", v, ok)
	}

	for _, tag := range []string{"", "a b", "<p>", "x/y"} {
		if _, err := d.CreateElement(dom.NamespaceHTML, tag, ""); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("CreateElement(%q) error = %v, want ErrInvalidTag", tag, err)
		}
	}
}

func TestAttributes(t *testing.T) {
	d := New()
	p := el(t, d, "p")

	if err := d.SetAttribute(p, "id", "a"); err != nil {
		t.Fatal(err)
	}
	_ = d.SetAttribute(p, "id", "b")
	if v, _ := Attr(p, "id"); v != "b" || len(p.Attr) != 1 {
		t.Errorf("attrs = %v", p.Attr)
	}
	if err := d.SetAttribute(p, "bad name", "x"); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("invalid name error = %v", err)
	}
	text := d.CreateTextNode("t")
	if err := d.SetAttribute(text, "id", "x"); !errors.Is(err, ErrNotElement) {
		t.Errorf("text node error = %v", err)
	}

	d.ResetMutations()
	d.RemoveAttribute(p, "id")
	d.RemoveAttribute(p, "id")
	if _, ok := Attr(p, "id"); ok {
		t.Error("id still present")
	}
	if n := d.CountMutations(OpRemoveAttr); n != 1 {
		t.Errorf("RemoveAttr recorded %d times, want 1", n)
	}
}

func TestProperties(t *testing.T) {
	d := New()
	in := el(t, d, "input")

	d.SetProperty(in, "value", "hi")
	d.SetProperty(in, "checked", true)
	if d.Property(in, "value") != "hi" {
		t.Errorf("value = %v", d.Property(in, "value"))
	}
	props := d.Properties(in)
	props["value"] = "changed"
	if d.Property(in, "value") != "hi" {
		t.Error("Properties() returned the live map")
	}
	if _, ok := Attr(in, "value"); ok {
		t.Error("property reflected into an attribute")
	}

	d.SetProperty(in, "value", nil)
	d.RemoveProperty(in, "checked")
	if d.Properties(in) != nil {
		t.Errorf("Properties() = %v after removal", d.Properties(in))
	}
}

func TestStyles(t *testing.T) {
	d := New()
	div := el(t, d, "div")

	d.SetStyle(div, "color", "red")
	d.SetStyle(div, "margin", "0")
	d.SetStyle(div, "color", "blue")
	if v, _ := Attr(div, "style"); v != "color: blue; margin: 0" {
		t.Errorf("style = %q", v)
	}
	if d.Style(div, "margin") != "0" {
		t.Errorf("Style(margin) = %q", d.Style(div, "margin"))
	}
	keys := d.StyleProps(div)
	if len(keys) != 2 || keys[0] != "color" || keys[1] != "margin" {
		t.Errorf("StyleProps() = %v", keys)
	}
	keys[0] = "mutated"
	if d.StyleProps(div)[0] != "color" {
		t.Error("StyleProps() returned the live slice")
	}

	d.RemoveStyle(div, "color")
	if v, _ := Attr(div, "style"); v != "margin: 0" {
		t.Errorf("style after remove = %q", v)
	}
	d.RemoveStyle(div, "margin")
	if _, ok := Attr(div, "style"); ok || d.StyleProps(div) != nil {
		t.Error("style attribute kept after the last declaration")
	}
}

func TestInsertBefore(t *testing.T) {
	d := New()
	ul := el(t, d, "ul")
	a, b, c := el(t, d, "li"), el(t, d, "li"), el(t, d, "li")
	_ = d.SetAttribute(a, "id", "a")
	_ = d.SetAttribute(b, "id", "b")
	_ = d.SetAttribute(c, "id", "c")

	_ = d.InsertBefore(d.Body(), ul, nil)
	_ = d.InsertBefore(ul, a, nil)
	_ = d.InsertBefore(ul, c, nil)
	_ = d.InsertBefore(ul, b, c)
	if got := InnerHTML(ul); got != `<li id="a"></li><li id="b"></li><li id="c"></li>` {
		t.Errorf("order = %s", got)
	}

	// Moving an attached node detaches it first.
	_ = d.InsertBefore(ul, c, a)
	if got := Children(ul); len(got) != 3 || got[0] != c {
		t.Errorf("after move = %s", InnerHTML(ul))
	}

	other := el(t, d, "ol")
	if err := d.InsertBefore(ul, a, other); !errors.Is(err, ErrNotChild) {
		t.Errorf("foreign ref error = %v", err)
	}
	if err := d.InsertBefore(a, ul, nil); !errors.Is(err, ErrHierarchy) {
		t.Errorf("cycle error = %v", err)
	}

	d.RemoveChild(ul, b)
	d.RemoveChild(ul, b)
	d.RemoveChild(other, a)
	if len(ElementChildren(ul)) != 2 || b.Parent != nil {
		t.Errorf("after remove = %s", InnerHTML(ul))
	}
	if d.ParentNode(b) != nil || d.FirstChild(ul) != dom.Node(c) || d.NextSibling(a) != nil {
		t.Error("navigation returned wrong nodes")
	}
}

func TestParseFragment(t *testing.T) {
	d := New()
	tr := el(t, d, "tr")
	nodes, err := d.ParseFragment(tr, "<td>1</td><td>2</td>")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || d.TagName(nodes[0]) != "td" {
		t.Errorf("ParseFragment() = %d nodes", len(nodes))
	}
	for _, n := range nodes {
		_ = d.InsertBefore(tr, n, nil)
	}
	if got := InnerHTML(tr); got != "<td>1</td><td>2</td>" {
		t.Errorf("tr = %s", got)
	}

	if _, err := d.ParseFragment(d.CreateTextNode("x"), "<b></b>"); !errors.Is(err, ErrNotElement) {
		t.Errorf("text context error = %v", err)
	}
}

func TestDispatchAndForget(t *testing.T) {
	d := New()
	btn := el(t, d, "button")
	span := el(t, d, "span")
	_ = d.InsertBefore(btn, span, nil)

	var got *dom.Event
	d.SetProperty(btn, "onclick", func(ev *dom.Event) { got = ev })
	d.SetStyle(span, "color", "red")

	if !d.Dispatch(btn, "click", "v") {
		t.Fatal("Dispatch() found no handler")
	}
	if got == nil || got.Type != "click" || got.Value != "v" || got.Target != dom.Node(btn) {
		t.Errorf("event = %+v", got)
	}
	if d.Dispatch(btn, "input", "") {
		t.Error("Dispatch() ran a handler for an unbound event")
	}

	d.Forget(btn)
	if d.Dispatch(btn, "click", "") || d.Style(span, "color") != "" {
		t.Error("Forget() kept state")
	}
}

func TestMutationLog(t *testing.T) {
	d := New()
	var seen []string
	cancel := d.Observe(func(m Mutation) { seen = append(seen, m.String()) })

	p := el(t, d, "p")
	_ = d.SetAttribute(p, "id", "x")
	_ = d.InsertBefore(d.Body(), p, nil)
	d.SetProperty(p, "hidden", true)
	cancel()
	d.RemoveChild(d.Body(), p)

	want := []string{
		"create <p>",
		`set <p#x>[id="x"]`,
		"append <p#x> to <body>",
		"set <p#x>.hidden = true",
	}
	if strings.Join(seen, "\n") != strings.Join(want, "\n") {
		t.Errorf("observed =\n%s\nwant\n%s", strings.Join(seen, "\n"), strings.Join(want, "\n"))
	}
	if n := d.CountMutations(); n != 5 {
		t.Errorf("CountMutations() = %d, want 5", n)
	}
	if n := d.CountMutations(OpInsert, OpRemove); n != 2 {
		t.Errorf("CountMutations(Insert, Remove) = %d, want 2", n)
	}
	if m := d.Mutations(); m[len(m)-1].Op != OpRemove {
		t.Errorf("last mutation = %v", m[len(m)-1].Op)
	}

	d.ResetMutations()
	if d.CountMutations() != 0 {
		t.Error("ResetMutations() kept entries")
	}

	calls := 0
	d.Observe(func(Mutation) { calls++ })
	d.SetLogging(false)
	d.CreateTextNode("quiet")
	if d.CountMutations() != 0 || calls != 1 {
		t.Errorf("with logging off: log = %d, observer calls = %d", d.CountMutations(), calls)
	}
}

func TestSerializeHelpers(t *testing.T) {
	d := New()
	nodes, _ := d.ParseFragment(d.Body(), `<div id="a"><p>one <b>two</b></p><!-- c --><span id="s">3</span></div>`)
	_ = d.InsertBefore(d.Body(), nodes[0], nil)

	if got := TextContent(d.Body()); got != "one two3" {
		t.Errorf("TextContent() = %q", got)
	}
	if n := Find(d.Body(), ByID("s")); n == nil || n.Data != "span" {
		t.Errorf("Find(ByID) = %v", n)
	}
	if n := Find(d.Body(), ByTag("b")); Describe(n) != "<b>" {
		t.Errorf("Find(ByTag) = %s", Describe(n))
	}
	div := Find(d.Body(), ByID("a"))
	if len(Children(div)) != 3 || len(ElementChildren(div)) != 2 {
		t.Errorf("children = %d, elements = %d", len(Children(div)), len(ElementChildren(div)))
	}
	if Describe(Children(div)[1]) != "#comment" || Describe(nil) != "<nil>" {
		t.Error("Describe()")
	}
	if OuterHTML(nil) != "" || InnerHTML(nil) != "" || NamespaceURI(nil) != "" {
		t.Error("nil helpers")
	}
}
