package mount

import "github.com/vango-dev/livedom/internal/errors"

// ErrUnmounted is returned by Redraw on a root that was unmounted.
var ErrUnmounted = errors.New("E041")
