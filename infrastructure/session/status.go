// Package session models a single peer connection as a closed set of
// phase-specific structs behind a tagged-union interface, rather than one
// struct with fields that are only meaningful in some phases. Each phase
// carries exactly the state it needs; moving to the next phase replaces
// the Status value wholesale instead of mutating optional fields in
// place, so a connection can never be caught holding, say, a pending
// handshake nonce while Established.
package session

import (
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/cryptography/primitives"
)

// Status is implemented by exactly the four phases a connection can be
// in. The unexported marker method closes the set to this package.
type Status interface {
	isStatus()
}

// CookieRequesting is the initial phase: a CookieRequest has been sent
// (or is about to be) and the connection is waiting for a CookieResponse.
type CookieRequesting struct {
	// EchoID is a random value embedded in the outstanding CookieRequest so
	// its CookieResponse can be matched back to this connection rather than
	// accepted from any response arriving from the right address.
	EchoID   uint64
	Attempts int
	LastSent time.Time
}

func (*CookieRequesting) isStatus() {}

// HandshakeSending holds the ephemeral session key and echoed cookie this
// side is retransmitting inside CryptoHandshake packets, waiting for the
// peer's own CryptoHandshake.
type HandshakeSending struct {
	Cookie      []byte
	SessionPub  domain.PublicKey
	SessionPriv domain.PrivateKey
	// SentNonce seeds the data channel's outgoing nonce counter once this
	// handshake completes; it is exchanged, not re-randomized, so both
	// sides start their respective counters from the same agreed values.
	SentNonce primitives.NonceBase
	Attempts  int
	LastSent  time.Time
}

func (*HandshakeSending) isStatus() {}

// NotConfirmed means both sides have exchanged CryptoHandshake packets
// and the shared key is known, but no CryptoData has been received yet,
// so the peer's receipt of this side's handshake is still unconfirmed.
type NotConfirmed struct {
	SharedKey domain.SharedKey
	// SentNonce and ReceivedNonce are this connection's live outgoing and
	// incoming nonce counters: SentNonce increments on every sealed
	// CryptoData, ReceivedNonce advances to track the highest full nonce
	// accepted from the peer so far.
	SentNonce     primitives.NonceBase
	ReceivedNonce primitives.NonceBase
	Attempts      int
	LastSent      time.Time
}

func (*NotConfirmed) isStatus() {}

// Established is the steady state: the shared key is fixed for the
// lifetime of the connection, while SentNonce and ReceivedNonce keep
// advancing as CryptoData packets flow through the reliable channel and
// congestion controller.
type Established struct {
	SharedKey     domain.SharedKey
	SentNonce     primitives.NonceBase
	ReceivedNonce primitives.NonceBase
}

func (*Established) isStatus() {}
