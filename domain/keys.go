// Package domain holds the types and sentinel values shared by every layer
// of the crypto transport core: keys, wire constants, and the events the
// core reports back to its host.
package domain

import "encoding/hex"

// KeySize is the size in bytes of an X25519 public or private key.
const KeySize = 32

// PublicKey is a Curve25519 public key, used both as a long-term real
// identity and as a per-session ephemeral key.
type PublicKey [KeySize]byte

func (k PublicKey) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether k has never been set.
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// PrivateKey is a Curve25519 scalar.
type PrivateKey [KeySize]byte

// SharedKey is the output of a box.Precompute (X25519 + HSalsa20) between
// a PrivateKey and a peer PublicKey, cached for the lifetime of a session
// so that every Seal/Open after the handshake skips the scalar multiply.
type SharedKey [KeySize]byte
