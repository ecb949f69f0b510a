package vdom

import (
	"reflect"
	"strings"

	"github.com/vango-dev/livedom/internal/errors"
	"github.com/vango-dev/livedom/pkg/dom"
)

// AttrKind is the category an attribute value is applied as.
type AttrKind uint8

const (
	AttrAbsent    AttrKind = iota // nil: cleared
	AttrString                    // string and numeric kinds: setAttribute
	AttrBool                      // true: name="name", false: cleared
	AttrHandler                   // func under an on* name: event property
	AttrClassList                 // []string: joined with spaces
	AttrStyleMap                  // Styles: applied declaration by declaration
)

// String returns the string representation of the AttrKind.
func (k AttrKind) String() string {
	switch k {
	case AttrAbsent:
		return "Absent"
	case AttrString:
		return "String"
	case AttrBool:
		return "Bool"
	case AttrHandler:
		return "Handler"
	case AttrClassList:
		return "ClassList"
	case AttrStyleMap:
		return "StyleMap"
	default:
		return "Unknown"
	}
}

// Styles is a style map: CSS property name to value.
type Styles map[string]string

// Classify puts an attribute value into exactly one category. Values of any
// other shape, and functions under names that are not on*, are rejected.
func Classify(name string, value any) (AttrKind, error) {
	switch v := value.(type) {
	case nil:
		return AttrAbsent, nil
	case string:
		return AttrString, nil
	case bool:
		return AttrBool, nil
	case []string:
		if v == nil {
			return AttrAbsent, nil
		}
		return AttrClassList, nil
	case Styles:
		if v == nil {
			return AttrAbsent, nil
		}
		return AttrStyleMap, nil
	case map[string]string:
		if v == nil {
			return AttrAbsent, nil
		}
		return AttrStyleMap, nil
	case dom.EventHandler:
		if !isEventName(name) {
			return 0, unrecognized(name, value)
		}
		return AttrHandler, nil
	}
	if _, ok := formatNumber(value); ok {
		return AttrString, nil
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Func {
		if !isEventName(name) {
			return 0, unrecognized(name, value)
		}
		if rv.IsNil() {
			return AttrAbsent, nil
		}
		return AttrHandler, nil
	}
	return 0, unrecognized(name, value)
}

func unrecognized(name string, value any) error {
	return errors.New("E005").WithReason("attribute %q has type %T", name, value)
}

// FormatAttr returns the attribute text for a value classified as
// AttrString or AttrClassList.
func FormatAttr(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	}
	s, _ := formatNumber(value)
	return s
}

// StyleMap returns value as a style map, or nil.
func StyleMap(value any) Styles {
	switch v := value.(type) {
	case Styles:
		return v
	case map[string]string:
		return Styles(v)
	}
	return nil
}
