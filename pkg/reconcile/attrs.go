package reconcile

import (
	"sort"

	"github.com/vango-dev/livedom/pkg/dom"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// reservedAttrs are structural markers, never written to the DOM.
var reservedAttrs = map[string]bool{
	"key":   true,
	"is":    true,
	"ns":    true,
	"xmlns": true,
}

// formControls take value, checked and selected as live properties.
var formControls = map[string]bool{
	"input":    true,
	"select":   true,
	"textarea": true,
	"option":   true,
}

var formProps = map[string]bool{
	"value":    true,
	"checked":  true,
	"selected": true,
}

func isFormProp(tag, name string) bool {
	return formProps[name] && formControls[tag]
}

// listener is the handler property installed once per element and event.
// It looks the current handler up at dispatch time, so swapping handlers
// between renders needs no DOM write.
type listener struct {
	live *vdom.Live
	name string
}

var _ dom.EventHandler = (*listener)(nil)

// HandleEvent implements dom.EventHandler.
func (l *listener) HandleEvent(ev *dom.Event) {
	dom.CallHandler(l.live.Events[l.name], ev)
}

// updateAttrs brings the DOM attributes of element v from old to v.Props.
// Every value is classified before the first write. Attributes dropped by
// the new props are cleared first; an input's type is set before the rest.
func (e *Engine) updateAttrs(v *vdom.VNode, live *vdom.Live, old vdom.Props) error {
	kinds := make(map[string]vdom.AttrKind, len(v.Props))
	names := sortedNames(v.Props)
	for _, name := range names {
		if reservedAttrs[name] {
			continue
		}
		k, err := vdom.Classify(name, v.Props[name])
		if err != nil {
			return err
		}
		kinds[name] = k
	}

	for _, name := range sortedNames(old) {
		if reservedAttrs[name] {
			continue
		}
		if k, ok := kinds[name]; ok && k != vdom.AttrAbsent {
			continue
		}
		e.clearAttr(v.Tag, live, name, old[name])
	}

	if v.Tag == "input" {
		if k := kinds["type"]; k != vdom.AttrAbsent {
			if err := e.setAttr(v.Tag, live, "type", k, v.Props["type"], old["type"]); err != nil {
				return err
			}
		}
	}
	for _, name := range names {
		k, ok := kinds[name]
		if !ok || k == vdom.AttrAbsent || (name == "type" && v.Tag == "input") {
			continue
		}
		if err := e.setAttr(v.Tag, live, name, k, v.Props[name], old[name]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) setAttr(tag string, live *vdom.Live, name string, kind vdom.AttrKind, nv, ov any) error {
	el := live.DOM
	if kind != vdom.AttrHandler {
		if _, ok := live.Events[name]; ok {
			delete(live.Events, name)
			e.doc.RemoveProperty(el, name)
		}
	}
	if kind != vdom.AttrStyleMap && len(live.Style) > 0 && name == "style" {
		e.clearStyles(live)
	}

	switch kind {
	case vdom.AttrHandler:
		if live.Events == nil {
			live.Events = make(map[string]any)
		}
		if _, installed := live.Events[name]; !installed {
			if written(name, ov) {
				e.doc.RemoveAttribute(el, name)
			}
			e.doc.SetProperty(el, name, &listener{live: live, name: name})
		}
		live.Events[name] = nv
		return nil

	case vdom.AttrStyleMap:
		e.applyStyles(live, vdom.StyleMap(nv), ov)
		return nil

	case vdom.AttrBool:
		b := nv.(bool)
		ob, wasBool := ov.(bool)
		if wasBool && ob == b {
			return nil
		}
		if isFormProp(tag, name) {
			e.doc.SetProperty(el, name, b)
			return nil
		}
		if b {
			return e.doc.SetAttribute(el, name, name)
		}
		if written(name, ov) {
			e.doc.RemoveAttribute(el, name)
		}
		return nil

	case vdom.AttrString, vdom.AttrClassList:
		s := vdom.FormatAttr(nv)
		if os, ok := stringForm(name, ov); ok && os == s {
			return nil
		}
		if isFormProp(tag, name) {
			e.doc.SetProperty(el, name, s)
			return nil
		}
		return e.doc.SetAttribute(el, name, s)
	}
	return nil
}

// clearAttr removes whatever old value ov left on the element.
func (e *Engine) clearAttr(tag string, live *vdom.Live, name string, ov any) {
	el := live.DOM
	if _, ok := live.Events[name]; ok {
		delete(live.Events, name)
		e.doc.RemoveProperty(el, name)
		return
	}
	if name == "style" && len(live.Style) > 0 {
		e.clearStyles(live)
		return
	}
	if isFormProp(tag, name) {
		if ov != nil {
			e.doc.RemoveProperty(el, name)
		}
		return
	}
	if written(name, ov) {
		e.doc.RemoveAttribute(el, name)
	}
}

// written reports whether an old value left an attribute on the element.
func written(name string, ov any) bool {
	if b, ok := ov.(bool); ok {
		return b
	}
	_, ok := stringForm(name, ov)
	return ok
}

func (e *Engine) applyStyles(live *vdom.Live, styles vdom.Styles, ov any) {
	el := live.DOM
	if _, wasText := ov.(string); wasText {
		e.doc.RemoveAttribute(el, "style")
	}
	for _, prop := range sortedStyleNames(live.Style) {
		if _, keep := styles[prop]; !keep {
			e.doc.RemoveStyle(el, prop)
			delete(live.Style, prop)
		}
	}
	for _, prop := range sortedStyleNames(styles) {
		val := styles[prop]
		if cur, ok := live.Style[prop]; ok && cur == val {
			continue
		}
		if live.Style == nil {
			live.Style = make(map[string]string, len(styles))
		}
		e.doc.SetStyle(el, prop, val)
		live.Style[prop] = val
	}
}

func (e *Engine) clearStyles(live *vdom.Live) {
	for _, prop := range sortedStyleNames(live.Style) {
		e.doc.RemoveStyle(live.DOM, prop)
	}
	live.Style = nil
}

// stringForm returns the attribute text an old value was written as.
func stringForm(name string, ov any) (string, bool) {
	k, err := vdom.Classify(name, ov)
	if err != nil || (k != vdom.AttrString && k != vdom.AttrClassList) {
		return "", false
	}
	return vdom.FormatAttr(ov), true
}

func sortedNames(props vdom.Props) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedStyleNames(styles map[string]string) []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
