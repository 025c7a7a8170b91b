package tunebox

import (
	"errors"
	"fmt"
)

var (
	ErrNoTrackSelected = errors.New("no track selected")
	ErrLastTrack       = errors.New("cannot remove the last track")
	ErrTooManyTracks   = errors.New("maximum number of tracks reached")
	ErrTrackNotFound   = errors.New("track not found")
	ErrInvalidNote     = errors.New("invalid note")
	ErrDuplicateNote   = errors.New("duplicate note")
)

// Invariant panics if cond is false. It guards structural invariants of the
// composition; user input is never reported through it.
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic("tunebox: " + fmt.Sprintf(format, args...))
	}
}
