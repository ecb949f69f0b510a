package dom

import "strings"

// Namespace is one of the XML namespaces an element can be created in.
type Namespace uint8

const (
	NamespaceHTML Namespace = iota
	NamespaceSVG
	NamespaceMathML
)

// Namespace URIs.
const (
	HTMLNamespaceURI   = "http://www.w3.org/1999/xhtml"
	SVGNamespaceURI    = "http://www.w3.org/2000/svg"
	MathMLNamespaceURI = "http://www.w3.org/1998/Math/MathML"
)

// String returns the short name used by HTML parsers ("", "svg", "math").
func (ns Namespace) String() string {
	switch ns {
	case NamespaceSVG:
		return "svg"
	case NamespaceMathML:
		return "math"
	default:
		return "html"
	}
}

// URI returns the namespace URI.
func (ns Namespace) URI() string {
	switch ns {
	case NamespaceSVG:
		return SVGNamespaceURI
	case NamespaceMathML:
		return MathMLNamespaceURI
	default:
		return HTMLNamespaceURI
	}
}

// ParseNamespace accepts a namespace URI or a short name ("html", "svg",
// "math", "mathml"). ok is false for anything else.
func ParseNamespace(s string) (ns Namespace, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case HTMLNamespaceURI, "html", "xhtml":
		return NamespaceHTML, true
	case SVGNamespaceURI, "svg":
		return NamespaceSVG, true
	case strings.ToLower(MathMLNamespaceURI), "math", "mathml":
		return NamespaceMathML, true
	}
	return NamespaceHTML, false
}
