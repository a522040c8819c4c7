// Package application defines the narrow capability interfaces the crypto
// transport core depends on and the host is expected to implement or wire:
// a clock, a logger, and the two outbound transports the core never opens
// itself.
package application

import "time"

// Clock is injected everywhere the core needs the current time, so tests
// can drive handshake timeouts, liveness windows, and congestion ticks
// without sleeping.
type Clock interface {
	Now() time.Time
}
