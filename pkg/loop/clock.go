package loop

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source of the coordinator. clockwork.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

// RealClock returns the wall clock.
func RealClock() Clock {
	return clockwork.NewRealClock()
}
