// Package settings collects every tunable timing and sizing constant the
// crypto transport core needs, in one Config value with the
// EnsureDefaults/Validate pair the rest of the stack uses for
// configuration structs.
package settings

import (
	"fmt"
	"time"
)

// Config holds every numeric knob the core's components read. A zero
// Config is not valid; call EnsureDefaults (or Validate, which requires
// every field already be set) before use.
type Config struct {
	// HandshakeRetryInterval is how long a phase waits before
	// retransmitting its CookieRequest or CryptoHandshake packet.
	HandshakeRetryInterval time.Duration
	// HandshakeMaxAttempts is how many sends of its packet, the first
	// one included, a phase allows before the connection is torn down
	// with ErrHandshakeTimeout.
	HandshakeMaxAttempts int
	// CookieValidityWindow is the maximum age of a cookie a responder
	// will accept in a CryptoHandshake.
	CookieValidityWindow time.Duration

	// UDPAliveWindow is how recently a packet must have arrived on the
	// direct UDP path for that path to be considered live.
	UDPAliveWindow time.Duration
	// UDPAttemptInterval is the minimum spacing between direct-UDP
	// liveness probes sent while the path is not known to be live.
	UDPAttemptInterval time.Duration

	// CongestionTickInterval is how often the congestion controller
	// re-evaluates the send rate. One position in the rolling
	// last-packets-sent/resent windows represents one tick at this
	// interval.
	CongestionTickInterval time.Duration
	// RequestCompareConstant is the constant numerator in the request
	// packet interval formula: RequestCompareConstant / ((recv_len+1) /
	// (recv_rate+1)).
	RequestCompareConstant float64
	// RequestIntervalMin/Max bound how often this side asks its peer to
	// retransmit missing sequence numbers.
	RequestIntervalMin time.Duration
	RequestIntervalMax time.Duration

	// MinSendRate is the floor packet_send_rate never drops below,
	// regardless of how congested the connection looks.
	MinSendRate float64
	// SendQueueClearanceTime is the threshold, in seconds of projected
	// drain time, past which the send queue is considered backed up
	// enough to cut the send rate rather than probe it upward.
	SendQueueClearanceTime float64
	// MinQueueLength is how many entries must be queued in send_array
	// before SendQueueClearanceTime's throttle branch can fire; a short
	// queue taking "too long" to drain isn't actually congestion.
	MinQueueLength uint32
	// CongestionEventTimeout is how long since the last congestion event
	// before the controller resumes probing the send rate upward rather
	// than backing it off.
	CongestionEventTimeout time.Duration
	// DefaultRTT seeds a connection's round-trip estimate before any
	// packet has been confirmed, matching the conservative assumption the
	// congestion controller's delay offset needs to produce sane numbers
	// from the first tick.
	DefaultRTT time.Duration

	// PacketsArrayBits sets the sliding window capacity to 2^Bits entries
	// for both the send and receive Packets-Array.
	PacketsArrayBits uint

	// DispatcherTickInterval is how often the dispatcher's maintenance
	// loop runs: stats, sends, retransmit requests, status updates.
	DispatcherTickInterval time.Duration
}

// EnsureDefaults fills every zero-valued field with the production
// default, matching the conservative constants used throughout this
// protocol family: a few seconds of handshake retry budget, an 8 second
// UDP liveness window with 4 second probes, and a 50ms congestion tick.
func (c *Config) EnsureDefaults() {
	if c.HandshakeRetryInterval == 0 {
		c.HandshakeRetryInterval = 1000 * time.Millisecond
	}
	if c.HandshakeMaxAttempts == 0 {
		c.HandshakeMaxAttempts = 8
	}
	if c.CookieValidityWindow == 0 {
		c.CookieValidityWindow = 15 * time.Second
	}
	if c.UDPAliveWindow == 0 {
		c.UDPAliveWindow = 8 * time.Second
	}
	if c.UDPAttemptInterval == 0 {
		c.UDPAttemptInterval = 4 * time.Second
	}
	if c.CongestionTickInterval == 0 {
		c.CongestionTickInterval = 50 * time.Millisecond
	}
	if c.RequestCompareConstant == 0 {
		c.RequestCompareConstant = 12.5
	}
	if c.RequestIntervalMin == 0 {
		c.RequestIntervalMin = 50 * time.Millisecond
	}
	if c.RequestIntervalMax == 0 {
		c.RequestIntervalMax = 1000 * time.Millisecond
	}
	if c.PacketsArrayBits == 0 {
		c.PacketsArrayBits = 15
	}
	if c.DispatcherTickInterval == 0 {
		c.DispatcherTickInterval = 50 * time.Millisecond
	}
	if c.MinSendRate == 0 {
		c.MinSendRate = 4.0
	}
	if c.SendQueueClearanceTime == 0 {
		c.SendQueueClearanceTime = 2.0
	}
	if c.MinQueueLength == 0 {
		c.MinQueueLength = 64
	}
	if c.CongestionEventTimeout == 0 {
		c.CongestionEventTimeout = 1000 * time.Millisecond
	}
	if c.DefaultRTT == 0 {
		c.DefaultRTT = 1000 * time.Millisecond
	}
}

// Validate rejects out-of-range values. It does not fill defaults; call
// EnsureDefaults first if zero fields should be treated as "use the
// default" rather than an error.
func (c *Config) Validate() error {
	if c.HandshakeRetryInterval <= 0 {
		return fmt.Errorf("settings: HandshakeRetryInterval must be positive, got %v", c.HandshakeRetryInterval)
	}
	if c.HandshakeMaxAttempts <= 0 {
		return fmt.Errorf("settings: HandshakeMaxAttempts must be positive, got %d", c.HandshakeMaxAttempts)
	}
	if c.CookieValidityWindow <= 0 {
		return fmt.Errorf("settings: CookieValidityWindow must be positive, got %v", c.CookieValidityWindow)
	}
	if c.UDPAliveWindow <= 0 {
		return fmt.Errorf("settings: UDPAliveWindow must be positive, got %v", c.UDPAliveWindow)
	}
	if c.UDPAttemptInterval <= 0 || c.UDPAttemptInterval >= c.UDPAliveWindow {
		return fmt.Errorf("settings: UDPAttemptInterval must be positive and less than UDPAliveWindow")
	}
	if c.CongestionTickInterval <= 0 {
		return fmt.Errorf("settings: CongestionTickInterval must be positive, got %v", c.CongestionTickInterval)
	}
	if c.RequestIntervalMin <= 0 || c.RequestIntervalMax < c.RequestIntervalMin {
		return fmt.Errorf("settings: RequestIntervalMin/Max out of order")
	}
	if c.PacketsArrayBits == 0 || c.PacketsArrayBits > 30 {
		return fmt.Errorf("settings: PacketsArrayBits must be in (0, 30], got %d", c.PacketsArrayBits)
	}
	if c.DispatcherTickInterval <= 0 {
		return fmt.Errorf("settings: DispatcherTickInterval must be positive, got %v", c.DispatcherTickInterval)
	}
	if c.MinSendRate <= 0 {
		return fmt.Errorf("settings: MinSendRate must be positive, got %v", c.MinSendRate)
	}
	if c.SendQueueClearanceTime <= 0 {
		return fmt.Errorf("settings: SendQueueClearanceTime must be positive, got %v", c.SendQueueClearanceTime)
	}
	if c.CongestionEventTimeout <= 0 {
		return fmt.Errorf("settings: CongestionEventTimeout must be positive, got %v", c.CongestionEventTimeout)
	}
	if c.DefaultRTT <= 0 {
		return fmt.Errorf("settings: DefaultRTT must be positive, got %v", c.DefaultRTT)
	}
	return nil
}

// Default returns a Config with every field set to its production
// default.
func Default() Config {
	var c Config
	c.EnsureDefaults()
	return c
}
