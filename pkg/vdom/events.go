package vdom

// On attaches handler to the named event. name is the event type without
// the "on" prefix. handler is a func(*dom.Event), a func() or a
// dom.EventHandler.
func On(name string, handler any) EventHandler {
	return EventHandler{Event: "on" + name, Handler: handler}
}

// OnClick handles click events.
func OnClick(handler any) EventHandler { return On("click", handler) }

// OnInput fires on every edit of a form control.
func OnInput(handler any) EventHandler { return On("input", handler) }

// OnChange fires when a form control commits a new value.
func OnChange(handler any) EventHandler { return On("change", handler) }

// OnSubmit handles form submission.
func OnSubmit(handler any) EventHandler { return On("submit", handler) }

// OnKeyDown handles keydown events.
func OnKeyDown(handler any) EventHandler { return On("keydown", handler) }

// OnFocus handles focus events.
func OnFocus(handler any) EventHandler { return On("focus", handler) }

// OnBlur handles blur events.
func OnBlur(handler any) EventHandler { return On("blur", handler) }
