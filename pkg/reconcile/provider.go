package reconcile

import "github.com/vango-dev/livedom/pkg/dom"

// countingProvider counts the calls that change the document.
type countingProvider struct {
	dom.Provider
	n *int
}

func (p *countingProvider) CreateElement(ns dom.Namespace, tag, is string) (dom.Node, error) {
	*p.n++
	return p.Provider.CreateElement(ns, tag, is)
}

func (p *countingProvider) CreateTextNode(text string) dom.Node {
	*p.n++
	return p.Provider.CreateTextNode(text)
}

func (p *countingProvider) ParseFragment(context dom.Node, markup string) ([]dom.Node, error) {
	*p.n++
	return p.Provider.ParseFragment(context, markup)
}

func (p *countingProvider) SetAttribute(el dom.Node, name, value string) error {
	*p.n++
	return p.Provider.SetAttribute(el, name, value)
}

func (p *countingProvider) RemoveAttribute(el dom.Node, name string) {
	*p.n++
	p.Provider.RemoveAttribute(el, name)
}

func (p *countingProvider) SetProperty(el dom.Node, name string, value any) {
	*p.n++
	p.Provider.SetProperty(el, name, value)
}

func (p *countingProvider) RemoveProperty(el dom.Node, name string) {
	*p.n++
	p.Provider.RemoveProperty(el, name)
}

func (p *countingProvider) SetStyle(el dom.Node, prop, value string) {
	*p.n++
	p.Provider.SetStyle(el, prop, value)
}

func (p *countingProvider) RemoveStyle(el dom.Node, prop string) {
	*p.n++
	p.Provider.RemoveStyle(el, prop)
}

func (p *countingProvider) InsertBefore(parent, child, ref dom.Node) error {
	*p.n++
	return p.Provider.InsertBefore(parent, child, ref)
}

func (p *countingProvider) RemoveChild(parent, child dom.Node) {
	*p.n++
	p.Provider.RemoveChild(parent, child)
}
