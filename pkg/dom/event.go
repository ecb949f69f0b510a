package dom

import "reflect"

// Event is delivered to on* handlers by providers that can dispatch events.
type Event struct {
	// Type is the event name without the "on" prefix ("click", "input").
	Type string

	// Target is the node the event was dispatched on.
	Target Node

	// Value carries the target's value for input-like events.
	Value string
}

// EventHandler is implemented by handler values that are not plain funcs.
type EventHandler interface {
	HandleEvent(ev *Event)
}

// CallHandler invokes h with ev. It accepts func(*Event), func(), an
// EventHandler, or any func taking no arguments or one *Event. It reports
// whether h was callable.
func CallHandler(h any, ev *Event) bool {
	switch fn := h.(type) {
	case nil:
		return false
	case func(*Event):
		if fn == nil {
			return false
		}
		fn(ev)
		return true
	case func():
		if fn == nil {
			return false
		}
		fn()
		return true
	case EventHandler:
		fn.HandleEvent(ev)
		return true
	}

	rv := reflect.ValueOf(h)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return false
	}
	rt := rv.Type()
	switch {
	case rt.NumIn() == 0:
		rv.Call(nil)
		return true
	case rt.NumIn() == 1 && reflect.TypeOf(ev).AssignableTo(rt.In(0)):
		rv.Call([]reflect.Value{reflect.ValueOf(ev)})
		return true
	}
	return false
}
