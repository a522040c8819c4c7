package primitives

import "encoding/binary"

// NonceBase is a 24-byte nonce counter, seeded once per direction from
// randomness at handshake time and from then on incremented by exactly
// one for every packet sent in that direction. Only its low 16 bits ever
// travel on the wire (wire.CryptoData's LowNonce field); the receiver
// reconstructs the full 24-byte value from its own running counter and
// the transmitted low bits, the way a TCP sequence number's high bits
// are inferred rather than retransmitted.
type NonceBase [NonceSize]byte

// NewNonceBase returns a fresh random base: generated once per direction
// during the handshake, and also used as a one-off nonce for packets
// sealed outside a session.
func NewNonceBase() (NonceBase, error) {
	var b NonceBase
	raw, err := RandomBytes(NonceSize)
	if err != nil {
		return NonceBase{}, err
	}
	copy(b[:], raw)
	return b, nil
}

// Increment returns b+1, treating b as a big-endian 192-bit counter that
// wraps modulo 2^192. Called once per outgoing packet on a direction's
// nonce counter, immediately before sealing.
func (b NonceBase) Increment() NonceBase {
	out := b
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			break
		}
	}
	return out
}

// Low16 returns the nonce's low 16 bits, the only part ever placed on
// the wire.
func (b NonceBase) Low16() uint16 {
	return binary.BigEndian.Uint16(b[NonceSize-2:])
}

// maxForwardDelta bounds how far a received low 16 bits may plausibly
// advance the local counter in one hop: half the 16-bit space, so every
// observable low value maps to exactly one nearest full counter value.
const maxForwardDelta = 1 << 15 // 32768, i.e. accepted deltas in [-32767, 32767]

// Reconstruct recovers the full 24-byte nonce a peer used to seal a
// packet whose wire form carries only low, given receivedNonce — this
// side's own record of the highest full nonce accepted so far on that
// direction. It chooses, among all 24-byte values sharing low as their
// low 16 bits, the one nearest receivedNonce, then reports delta, the
// signed distance from receivedNonce to that value, and ok, which is
// false only for the one low value exactly opposite receivedNonce in the
// 16-bit ring (a distance of exactly 32768 either way), where "nearest"
// is ambiguous and the
// packet must be rejected rather than guessed at.
func Reconstruct(receivedNonce NonceBase, low uint16) (nonce NonceBase, delta int32, ok bool) {
	base := receivedNonce
	baseLow := base.Low16()
	rawDelta := int32(low) - int32(baseLow)

	// Normalize rawDelta into (-32768, 32768].
	if rawDelta > maxForwardDelta {
		rawDelta -= 1 << 16
	} else if rawDelta <= -maxForwardDelta {
		rawDelta += 1 << 16
	}
	if rawDelta == maxForwardDelta {
		return NonceBase{}, 0, false
	}

	nonce = addSigned(base, rawDelta)
	return nonce, rawDelta, true
}

// addSigned returns b+delta (mod 2^192), propagating carry or borrow
// across the whole 24-byte counter from a 32-bit signed offset applied
// at the low end.
func addSigned(b NonceBase, delta int32) NonceBase {
	out := b
	if delta >= 0 {
		rem := uint32(delta)
		for i := len(out) - 1; i >= 0 && rem > 0; i-- {
			sum := uint32(out[i]) + (rem & 0xff)
			out[i] = byte(sum)
			carry := sum >> 8
			rem >>= 8
			rem += carry
		}
		return out
	}
	rem := uint32(-delta)
	for i := len(out) - 1; i >= 0 && rem > 0; i-- {
		cur := uint32(out[i])
		sub := rem & 0xff
		borrow := uint32(0)
		if cur < sub {
			cur += 256
			borrow = 1
		}
		out[i] = byte(cur - sub)
		rem >>= 8
		rem += borrow
	}
	return out
}
