package primitives

import (
	"bytes"
	"testing"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	aPub, aPriv, _ := GenerateKeyPair()
	bPub, bPriv, _ := GenerateKeyPair()
	key := Precompute(bPub, aPriv)
	peerKey := Precompute(aPub, bPriv)

	base, err := NewNonceBase()
	if err != nil {
		t.Fatalf("NewNonceBase: %v", err)
	}
	nonce := [NonceSize]byte(base.Increment())

	plaintext := []byte("sliding window handshake payload")
	ciphertext := Seal(nil, plaintext, nonce, key)

	got, err := Open(nil, ciphertext, nonce, peerKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("Open() = %q, want %q", got, plaintext)
	}
}

func TestOpen_RejectsTamperedCiphertext(t *testing.T) {
	_, aPriv, _ := GenerateKeyPair()
	bPub, _, _ := GenerateKeyPair()
	key := Precompute(bPub, aPriv)

	base, _ := NewNonceBase()
	nonce := [NonceSize]byte(base.Increment())
	ciphertext := Seal(nil, []byte("hello"), nonce, key)
	ciphertext[0] ^= 0xFF

	if _, err := Open(nil, ciphertext, nonce, key); err == nil {
		t.Fatal("expected Open to reject tampered ciphertext")
	}
}

func TestOpen_RejectsWrongNonce(t *testing.T) {
	_, aPriv, _ := GenerateKeyPair()
	bPub, _, _ := GenerateKeyPair()
	key := Precompute(bPub, aPriv)

	base, _ := NewNonceBase()
	n1 := base.Increment()
	n2 := n1.Increment()
	ciphertext := Seal(nil, []byte("hello"), [NonceSize]byte(n1), key)

	if _, err := Open(nil, ciphertext, [NonceSize]byte(n2), key); err == nil {
		t.Fatal("expected Open to reject mismatched nonce")
	}
}
