package dom

import "testing"

func TestParseNamespace(t *testing.T) {
	tests := []struct {
		in     string
		want   Namespace
		wantOK bool
	}{
		{"svg", NamespaceSVG, true},
		{SVGNamespaceURI, NamespaceSVG, true},
		{"math", NamespaceMathML, true},
		{MathMLNamespaceURI, NamespaceMathML, true},
		{" HTML ", NamespaceHTML, true},
		{HTMLNamespaceURI, NamespaceHTML, true},
		{"urn:other", NamespaceHTML, false},
	}
	for _, tt := range tests {
		got, ok := ParseNamespace(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseNamespace(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNamespaceURIRoundTrip(t *testing.T) {
	for _, ns := range []Namespace{NamespaceHTML, NamespaceSVG, NamespaceMathML} {
		got, ok := ParseNamespace(ns.URI())
		if !ok || got != ns {
			t.Errorf("ParseNamespace(%v.URI()) = %v, %v", ns, got, ok)
		}
	}
}
