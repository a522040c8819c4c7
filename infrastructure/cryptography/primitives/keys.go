// Package primitives wraps the NaCl box/secretbox primitives and X25519
// key generation behind the concrete types the rest of the core operates
// on. The cookie package is the only other one that imports
// golang.org/x/crypto directly (for secretbox).
package primitives

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"p2pcrypto/domain"
)

// GenerateKeyPair returns a fresh X25519 key pair, used both for the
// long-term real identity and for each session's ephemeral key.
func GenerateKeyPair() (domain.PublicKey, domain.PrivateKey, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return domain.PublicKey{}, domain.PrivateKey{}, err
	}
	return domain.PublicKey(*pub), domain.PrivateKey(*priv), nil
}

// PublicFromPrivate derives the public half of a private scalar. The
// handshake code does not call it.
func PublicFromPrivate(priv domain.PrivateKey) (domain.PublicKey, error) {
	var pub domain.PublicKey
	out, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return domain.PublicKey{}, err
	}
	copy(pub[:], out)
	return pub, nil
}

// Precompute folds an X25519 shared secret and HSalsa20 into a SharedKey,
// so that every subsequent Seal/Open for a session skips the scalar
// multiply. Established sessions always encrypt through the precomputed
// key, never through Seal/Open directly with priv+peerPub.
func Precompute(peerPub domain.PublicKey, priv domain.PrivateKey) domain.SharedKey {
	var shared [32]byte
	pub := [32]byte(peerPub)
	pk := [32]byte(priv)
	box.Precompute(&shared, &pub, &pk)
	return domain.SharedKey(shared)
}

// RandomBytes fills and returns a slice of n cryptographically random
// bytes, used for nonce bases and cookie echo ids.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
