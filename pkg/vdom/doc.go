// Package vdom provides the node descriptions rendered by livedom.
//
// A VNode describes one piece of UI for one render pass: an element, a text
// node, a component or a raw HTML fragment. Descriptions are cheap and
// disposable; the reconciler attaches realization state to them through
// Live and carries it over to the next pass.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1("Title"),
//	    P(Text("Content")),
//	    OnClick(handler),
//	)
//
// Children pass through Normalize: nested slices are flattened, nil and
// booleans become placeholders and strings become text nodes, so
// conditional expressions can be written inline.
//
// # Components
//
// A component is a Definition built from Hooks. Draw is mandatory; the
// other hooks are optional:
//
//	var Counter = vdom.MustDefine(vdom.Hooks{
//	    Name: "Counter",
//	    Draw: func(c vdom.Instance, _ []*vdom.VNode) any {
//	        return vdom.Span(c.Attrs()["count"])
//	    },
//	})
//
//	vdom.Comp(Counter, vdom.Props{"count": 3})
//
// # Keys
//
// Within one child list either every element and component child carries a
// Key or none does. Keyed lists are matched by key, unkeyed lists by
// position.
//
// # Attributes
//
// Classify puts every attribute value into one of a closed set of
// categories (string, bool, handler, class list, style map, absent). Any
// other shape is a structural error.
package vdom
