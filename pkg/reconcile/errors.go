package reconcile

import (
	stderrors "errors"

	"github.com/vango-dev/livedom/internal/errors"
)

// Runtime errors returned by the engine. Structural errors are built per
// occurrence so they can carry the offending path.
var (
	// ErrNotMounted is returned for a root that was not created by NewRoot.
	ErrNotMounted = errors.New("E041")

	// ErrReentrant is returned when a render pass starts inside another.
	ErrReentrant = errors.New("E042")
)

// atPath attaches the description path of v to a coded error that has none.
func atPath(err error, v interface{ Path() string }) error {
	if e, ok := err.(*errors.Error); ok && e.Path == "" && e.Category == errors.CategoryStructural {
		return e.WithPath(v.Path())
	}
	return err
}

func joinErrors(errs []error) error {
	return stderrors.Join(errs...)
}
