// Package liveness decides, for a single connection, which transport(s)
// currently look reachable: the direct UDP path, the relay path, or
// both, purely as a function of when each path was last heard from.
package liveness

import (
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/session"
	"p2pcrypto/infrastructure/settings"
)

// OnUDPReceived records that a packet just arrived on the direct UDP
// path.
func OnUDPReceived(c *session.Connection, now time.Time) {
	c.Liveness.LastUDPRecv = now
}

// OnRelayReceived records that a packet just arrived through a relay.
func OnRelayReceived(c *session.Connection, now time.Time) {
	c.Liveness.LastRelayRecv = now
}

// UDPIsAlive reports whether the direct path has produced a packet
// within cfg.UDPAliveWindow.
func UDPIsAlive(c *session.Connection, cfg *settings.Config, now time.Time) bool {
	return !c.Liveness.LastUDPRecv.IsZero() && now.Sub(c.Liveness.LastUDPRecv) <= cfg.UDPAliveWindow
}

// ShouldProbeUDP reports whether enough time has passed since the last
// UDP attempt that another direct-path probe is due. Probing only makes
// sense while the direct path is not already known to be alive.
func ShouldProbeUDP(c *session.Connection, cfg *settings.Config, now time.Time) bool {
	if UDPIsAlive(c, cfg, now) {
		return false
	}
	return c.Liveness.LastUDPAttempt.IsZero() || now.Sub(c.Liveness.LastUDPAttempt) >= cfg.UDPAttemptInterval
}

// RecordUDPAttempt stamps that a direct-path probe was just sent.
func RecordUDPAttempt(c *session.Connection, now time.Time) {
	c.Liveness.LastUDPAttempt = now
}

// SendPath decides, and records on the connection, which transport a
// packet leaving right now should use: UDP alone when the direct path is
// alive, relay alone when a relay is configured and UDP is not alive,
// and PathNone when neither holds. It never returns PathBoth; probing
// the direct path while the relay carries traffic is ShouldProbeUDP's
// job.
func SendPath(c *session.Connection, cfg *settings.Config, now time.Time) domain.SendPath {
	udpAlive := UDPIsAlive(c, cfg, now)
	relayAlive := c.HasRelay

	var path domain.SendPath
	switch {
	case udpAlive:
		path = domain.PathUDP
	case relayAlive:
		path = domain.PathRelay
	default:
		path = domain.PathNone
	}

	c.Liveness.CurrentPath = path
	return path
}
