package domain

import "net/netip"

// EventKind distinguishes the observable events the core reports to its
// host, per the external-interfaces surface.
type EventKind int

const (
	// EventEstablished fires exactly once per connection, when the
	// handshake completes and the session transitions to Established.
	EventEstablished EventKind = iota
	// EventLost fires when a connection is torn down, whether by timeout,
	// explicit removal, or a received kill notice.
	EventLost
	// EventMessage fires once per lossless or lossy payload delivered to
	// the host, in lossless-channel order for lossless kinds.
	EventMessage
	// EventPathChanged fires when the live send path for a connection
	// changes between UDP-direct and relay.
	EventPathChanged
)

// Event is a single notification delivered to the host through
// application.EventSink.
type Event struct {
	Kind     EventKind
	PeerKey  PublicKey
	DataKind DataKind
	Payload  []byte
	Path     SendPath
	Reason   error
}

// SendPath identifies which transport(s) a connection currently considers
// live for outbound packets.
type SendPath int

const (
	PathNone SendPath = iota
	PathUDP
	PathRelay
	PathBoth
)

func (p SendPath) String() string {
	switch p {
	case PathUDP:
		return "udp"
	case PathRelay:
		return "relay"
	case PathBoth:
		return "both"
	default:
		return "none"
	}
}

// RelayAddr identifies a peer reachable through a relay rather than a
// direct UDP address; the relay connection itself is addressed by the
// host, the core only needs a stable identifier to route through it.
type RelayAddr struct {
	RelayID   uint64
	RelayAddr netip.AddrPort
}
