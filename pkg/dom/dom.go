package dom

// Node is an opaque handle to a node owned by a Provider.
// Handles must be comparable; the engine uses them as map keys.
type Node any

// Provider is the document backend the reconciler renders into.
//
// Mutating methods that can fail in a real document (an invalid tag name, an
// invalid attribute name) return an error; the engine propagates it unchanged
// to the render or mount call that triggered it.
type Provider interface {
	// CreateElement creates a detached element in the given namespace.
	// is names a customized built-in element and is usually empty.
	CreateElement(ns Namespace, tag, is string) (Node, error)

	// CreateTextNode creates a detached text node.
	CreateTextNode(text string) Node

	// ParseFragment parses markup as the content of context, which supplies
	// both the tag (so <tr>, <option> and friends parse correctly) and the
	// namespace. It returns the detached top-level nodes in document order.
	ParseFragment(context Node, markup string) ([]Node, error)

	SetAttribute(el Node, name, value string) error
	RemoveAttribute(el Node, name string)

	// SetProperty assigns a live property such as value, checked, or an
	// on* event handler. A nil value clears it.
	SetProperty(el Node, name string, value any)
	RemoveProperty(el Node, name string)

	SetStyle(el Node, prop, value string)
	RemoveStyle(el Node, prop string)

	// InsertBefore inserts child into parent before ref. A nil ref appends.
	// Inserting a node that is already attached moves it.
	InsertBefore(parent, child, ref Node) error
	RemoveChild(parent, child Node)

	ParentNode(n Node) Node
	FirstChild(n Node) Node
	NextSibling(n Node) Node

	// TagName returns the lower-case local name of an element, or "" for
	// other node types.
	TagName(n Node) string
}
