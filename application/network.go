package application

import (
	"net/netip"

	"p2pcrypto/domain"
)

// UDPSender is the capability to emit a raw datagram on the direct UDP
// path. The core never opens a socket itself; the host supplies this.
type UDPSender interface {
	SendUDP(dst netip.AddrPort, packet []byte) error
}

// RelaySender is the capability to emit a packet through a relay
// connection identified by relayID. The host owns the relay's own
// transport (TCP to the relay, framing, etc.).
type RelaySender interface {
	SendRelay(relayID uint64, peerKey domain.PublicKey, packet []byte) error
}

// EventSink receives every domain.Event the core produces: established and
// lost connections, delivered messages, and path changes. Implementations
// must not block; a host wanting backpressure should buffer internally and
// drop or queue per its own policy.
type EventSink interface {
	Emit(e domain.Event)
}
