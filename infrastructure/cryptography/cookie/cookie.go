// Package cookie implements the DoS-resistant cookie exchange that gates
// CryptoHandshake processing: a responder never allocates per-peer state
// until the initiator echoes back a cookie it could only have obtained
// from a prior CookieResponse.
package cookie

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/cryptography/mem"
)

// Size is the length of the cleartext cookie body: peer real key, peer
// DHT key, and an 8-byte issue timestamp.
const Size = domain.KeySize*2 + 8

// nonceSize and overhead mirror golang.org/x/crypto/nacl/secretbox's
// constants; duplicated here as named constants so EncodedSize is legible
// without chasing an import.
const (
	nonceSize = 24
	overhead  = secretbox.Overhead
)

// EncodedSize is the length of an encrypted cookie as it appears on the
// wire inside a CookieResponse or CryptoHandshake packet.
const EncodedSize = nonceSize + Size + overhead

// Cookie is the information a responder commits to, encrypted, and hands
// back to an initiator without holding any server-side state.
type Cookie struct {
	PeerRealPK domain.PublicKey
	PeerDHTPK  domain.PublicKey
	IssueTime  time.Time
}

// Jar mints and verifies cookies using a symmetric key private to this
// process, rotated periodically by the host. It never persists issued
// cookies: validity is proven entirely by successful decryption plus the
// freshness check in Open.
type Jar struct {
	key domain.SharedKey
	now func() time.Time
}

// NewJar returns a Jar seeded with a fresh random key.
func NewJar() (*Jar, error) {
	var key domain.SharedKey
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, err
	}
	return &Jar{key: key, now: time.Now}, nil
}

// NewJarWithKey builds a Jar from a caller-supplied key, for tests that
// need two Jars (initiator-observed, responder-held) to agree, or for a
// host that wants to persist the key across restarts.
func NewJarWithKey(key domain.SharedKey) *Jar {
	return &Jar{key: key, now: time.Now}
}

// Seal encrypts a cookie for realPK/dhtPK, stamped with the jar's current
// time. The returned slice is exactly EncodedSize bytes.
func (j *Jar) Seal(realPK, dhtPK domain.PublicKey) ([]byte, error) {
	plain := make([]byte, Size)
	copy(plain[0:domain.KeySize], realPK[:])
	copy(plain[domain.KeySize:2*domain.KeySize], dhtPK[:])
	binary.BigEndian.PutUint64(plain[2*domain.KeySize:], uint64(j.now().Unix()))

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	out := make([]byte, 0, EncodedSize)
	out = append(out, nonce[:]...)
	key := [32]byte(j.key)
	out = secretbox.Seal(out, plain, &nonce, &key)
	return out, nil
}

// Open decrypts and validates a cookie against maxAge. It never reveals
// whether decryption or freshness failed, matching the handshake's
// uniform-failure error policy: callers only learn ErrInvalidCookie.
func (j *Jar) Open(encoded []byte, maxAge time.Duration) (Cookie, error) {
	if len(encoded) != EncodedSize {
		return Cookie{}, domain.ErrInvalidCookie
	}

	var nonce [nonceSize]byte
	copy(nonce[:], encoded[:nonceSize])
	key := [32]byte(j.key)

	plain, ok := secretbox.Open(nil, encoded[nonceSize:], &nonce, &key)
	if !ok {
		return Cookie{}, domain.ErrInvalidCookie
	}
	defer mem.ZeroBytes(plain)

	if len(plain) != Size {
		return Cookie{}, domain.ErrInvalidCookie
	}

	var c Cookie
	copy(c.PeerRealPK[:], plain[0:domain.KeySize])
	copy(c.PeerDHTPK[:], plain[domain.KeySize:2*domain.KeySize])
	issued := int64(binary.BigEndian.Uint64(plain[2*domain.KeySize:]))
	c.IssueTime = time.Unix(issued, 0)

	age := j.now().Sub(c.IssueTime)
	if age < 0 || age > maxAge {
		return Cookie{}, domain.ErrInvalidCookie
	}

	return c, nil
}

// SetClock overrides the jar's time source; used by tests to exercise the
// cookie validity window deterministically.
func (j *Jar) SetClock(now func() time.Time) {
	j.now = now
}
