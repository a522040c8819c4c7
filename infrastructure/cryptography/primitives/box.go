package primitives

import (
	"golang.org/x/crypto/nacl/secretbox"

	"p2pcrypto/domain"
)

// NonceSize is the size in bytes of a secretbox nonce.
const NonceSize = 24

// Overhead is the authentication tag size secretbox appends to every
// sealed message.
const Overhead = secretbox.Overhead

// Seal authenticates and encrypts plaintext under key using nonce,
// appending the result to out. The caller owns nonce uniqueness; see
// NonceBase in this package for the session's monotonic counter scheme.
func Seal(out []byte, plaintext []byte, nonce [NonceSize]byte, key domain.SharedKey) []byte {
	k := [32]byte(key)
	return secretbox.Seal(out, plaintext, &nonce, &k)
}

// Open verifies and decrypts ciphertext under key using nonce, appending
// the plaintext to out. Returns domain.ErrDecryptFailed on authentication
// failure so callers never need to special-case the secretbox boolean.
func Open(out []byte, ciphertext []byte, nonce [NonceSize]byte, key domain.SharedKey) ([]byte, error) {
	k := [32]byte(key)
	plain, ok := secretbox.Open(out, ciphertext, &nonce, &k)
	if !ok {
		return nil, domain.ErrDecryptFailed
	}
	return plain, nil
}
