package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrTornDown is returned by ticks after the session was torn down.
	ErrTornDown = errors.New("session torn down")
	// ErrStaleCallback marks a deferred completion that arrived after teardown.
	ErrStaleCallback = errors.New("stale callback after teardown")
)

// DegenerateViewportError reports a resize to a size that cannot be rendered. The
// viewport was clamped to Clamped instead.
type DegenerateViewportError struct {
	Width, Height int
	Clamped       [2]int
}

func (e *DegenerateViewportError) Error() string {
	return fmt.Sprintf("degenerate viewport %dx%d, clamped to %dx%d",
		e.Width, e.Height, e.Clamped[0], e.Clamped[1])
}
