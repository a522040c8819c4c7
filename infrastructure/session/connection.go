package session

import (
	"net/netip"
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/packetarray"
)

// SentPacket is what the reliable channel keeps per outstanding
// outbound sequence number: the plaintext it must be able to
// retransmit, when it was last put on the wire, and the bookkeeping the
// paced sender and congestion controller need to classify that send.
type SentPacket struct {
	Payload []byte
	SentAt  time.Time
	Resends int
	// Sent is false for an entry still waiting for its first trip onto
	// the wire (queued by SubmitLossless but not yet picked up by the
	// paced sender). Once true, a later send of the same entry counts as
	// a retransmission rather than a first send.
	Sent bool
	// Requested marks an entry a peer's request packet named as missing:
	// the paced sender gives it priority on the next tick regardless of
	// how recently SentAt was touched.
	Requested bool
}

// RecvPacket is what the reliable channel keeps per received-but-not-
// yet-delivered sequence number, so out-of-order arrivals can be held
// until the gap in front of them closes.
type RecvPacket struct {
	Payload []byte
}

// congestionQueueArraySize is how many trailing send_array sizes the
// controller keeps, one per tick: a short window used to measure queue
// growth.
const congestionQueueArraySize = 12

// congestionLastSentArraySize is how many trailing sent/resent packet
// counts the controller keeps. It is twice congestionQueueArraySize so
// the rtt-offset window used when summing delivered packets always has
// room to look back far enough even at a high rtt.
const congestionLastSentArraySize = congestionQueueArraySize * 2

// CongestionState is the rolling data the congestion controller reads
// and updates every tick: see the congestion package for the algorithm.
// Field names and shapes mirror the rolling-window counters a crypto
// connection keeps for its own send-rate estimate, translated from
// fixed-size arrays indexed by a wrapping counter to the same technique
// in Go.
type CongestionState struct {
	StatsCalculationTime time.Time

	// LastSendQueueCounter is the wrapping position into
	// LastSendArraySizes/LastNumPacketsSent/LastNumPacketsResent the next
	// tick will write to.
	LastSendQueueCounter uint32

	LastSendArraySizes    [congestionQueueArraySize]uint32
	LastNumPacketsSent    [congestionLastSentArraySize]uint32
	LastNumPacketsResent  [congestionLastSentArraySize]uint32

	// LastCongestionEvent is when the controller last had to cut the send
	// rate for a backed-up queue. Zero means no congestion event has
	// happened yet, so the controller is free to probe the rate upward.
	LastCongestionEvent time.Time

	PacketRecvRate          float64
	PacketSendRate          float64
	PacketSendRateRequested float64

	// SendBudgetCarry holds the fractional packet left over from the last
	// tick's PacketSendRate*tickInterval budget: at a floor rate of 4
	// packets/sec and a 50ms tick, that budget is 0.2 packets, so a plain
	// per-tick floor would never send anything. Accumulating the
	// remainder instead means the first tick rounds down to 0 but the
	// fifth sends the packet those five ticks' worth of budget paid for.
	SendBudgetCarry float64
}

// LivenessState tracks the two transports a connection may use and when
// each was last heard from, so the dispatcher can decide whether to
// favor the direct UDP path, fall back to relay, or probe both.
type LivenessState struct {
	LastUDPRecv    time.Time
	LastRelayRecv  time.Time
	LastUDPAttempt time.Time
	CurrentPath    domain.SendPath
}

// Connection is the complete per-peer record: identity, addressing,
// phase, the two Packets-Array buffers, and the congestion/liveness
// rolling state. Every field here is either immutable for the life of
// the record (the peer's keys) or owned exclusively by the single
// goroutine that calls the Dispatcher's methods for this connection's
// shard.
type Connection struct {
	PeerRealPK domain.PublicKey
	PeerDHTPK  domain.PublicKey

	UDPAddr netip.AddrPort
	RelayID uint64
	HasRelay bool

	Status Status

	SendArray *packetarray.Array[SentPacket]
	RecvArray *packetarray.Array[RecvPacket]

	// RTT is the lowest observed round-trip time across every confirmed,
	// non-retransmitted packet: an ack that could only have confirmed a
	// first send, never a resend, so the elapsed time it reports is never
	// inflated by a spurious retransmission. It seeds at a conservative
	// default and only ever decreases.
	RTT time.Duration

	// RequestPacketSentAt is when this side last sent a KindRequest
	// packet, gating how often the dispatcher is willing to send another.
	RequestPacketSentAt time.Time

	Congestion CongestionState
	Liveness   LivenessState

	// PacketsReceivedSinceTick, PacketsSentSinceTick, and
	// PacketsResentSinceTick accumulate between dispatcher ticks and are
	// handed to congestion.Tick, which folds them into Congestion's
	// rolling windows; the dispatcher zeroes them again right after.
	PacketsReceivedSinceTick uint32
	PacketsSentSinceTick     uint32
	PacketsResentSinceTick   uint32

	CreatedAt time.Time
}

// NewConnection allocates a fresh record in the CookieRequesting phase.
func NewConnection(peerRealPK, peerDHTPK domain.PublicKey, arrayBits uint, now time.Time) *Connection {
	return &Connection{
		PeerRealPK: peerRealPK,
		PeerDHTPK:  peerDHTPK,
		// LastSent is left zero so the first dispatcher tick's RetryDue
		// check fires immediately rather than waiting a full retry
		// interval before the first CookieRequest goes out.
		Status:    &CookieRequesting{},
		SendArray: packetarray.New[SentPacket](arrayBits),
		RecvArray: packetarray.New[RecvPacket](arrayBits),
		// RTT starts at a conservative default (settings.Config.DefaultRTT
		// in practice) and only ever drops once a real round trip is
		// observed; NewConnection itself stays settings-agnostic, so the
		// dispatcher stamps the real default right after construction.
		RTT:        time.Second,
		Congestion: CongestionState{StatsCalculationTime: now},
		CreatedAt:  now,
	}
}

// IsEstablished reports whether the connection has completed its
// handshake.
func (c *Connection) IsEstablished() bool {
	_, ok := c.Status.(*Established)
	return ok
}

// HasSessionKey reports whether the connection already shares a session
// key with its peer and can send or open CryptoData packets: true in
// both NotConfirmed and Established. A connection still confirms its own
// handshake was received by the peer through an ordinary CryptoData
// round trip, so the reliable channel and congestion controller run
// starting in NotConfirmed, not just once Established.
func (c *Connection) HasSessionKey() bool {
	switch c.Status.(type) {
	case *NotConfirmed, *Established:
		return true
	default:
		return false
	}
}
