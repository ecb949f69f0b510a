package vdom

import "github.com/vango-dev/livedom/internal/errors"

// ErrStructural is matched by errors.Is for every structural error: mixed
// keyed and unkeyed siblings, a component without a draw hook, overlapping
// mounts, a remove hook returning something that cannot be awaited, an
// attribute value of unrecognized shape and duplicate keys.
var ErrStructural = errors.ErrStructural

// IsStructural reports whether err is, or wraps, a structural error.
func IsStructural(err error) bool { return errors.IsStructural(err) }

// Validate returns the first structural error recorded while building any
// node of the forest.
func Validate(nodes ...*VNode) error { return firstErr(nodes) }
