// Package clock provides the production and test implementations of
// application.Clock.
package clock

import (
	"time"

	"p2pcrypto/application"
)

// SystemClock is the production application.Clock, backed by time.Now.
type SystemClock struct{}

// New returns the production clock.
func New() application.Clock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now()
}
