// Package memdom is an in-memory document implementing dom.Provider.
//
// The tree is made of golang.org/x/net/html nodes, so raw HTML fragments are
// parsed by a spec-compliant HTML5 parser (including foreign SVG and MathML
// content) and the tree serializes with html.Render. Live properties, event
// handlers and style declarations are kept beside the tree, the way a browser
// keeps them on the node object rather than in markup.
//
// Every mutating call is appended to a mutation log, which tests use to
// assert that a render touched exactly what it should, and observers can
// subscribe to stream mutations elsewhere.
package memdom
