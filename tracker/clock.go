package tracker

import "time"

// Clock is the wall clock of the transport.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the clock used when none is given.
func SystemClock() Clock { return systemClock{} }
