package primitives

import "testing"

func TestNonceBase_Increment_ChangesOnlyCounterValue(t *testing.T) {
	base, err := NewNonceBase()
	if err != nil {
		t.Fatalf("NewNonceBase: %v", err)
	}

	n1 := base.Increment()
	n2 := n1.Increment()

	if n1 == base {
		t.Fatal("Increment should change the nonce")
	}
	if n2 == n1 {
		t.Fatal("two increments in a row should differ")
	}
	if n1.Low16()+1 != n2.Low16() && n2.Low16() != 0 {
		t.Fatalf("Low16 should advance by one per Increment: n1=%d n2=%d", n1.Low16(), n2.Low16())
	}
}

func TestNonceBase_Increment_Wraps(t *testing.T) {
	var base NonceBase
	for i := range base {
		base[i] = 0xff
	}
	wrapped := base.Increment()
	var zero NonceBase
	if wrapped != zero {
		t.Fatalf("incrementing the all-0xff nonce should wrap to all zero, got %x", wrapped)
	}
}

func TestReconstruct_ExactMatchHasZeroDelta(t *testing.T) {
	base, _ := NewNonceBase()
	nonce, delta, ok := Reconstruct(base, base.Low16())
	if !ok {
		t.Fatal("Reconstruct should succeed for the base's own low bits")
	}
	if delta != 0 {
		t.Fatalf("delta = %d, want 0", delta)
	}
	if nonce != base {
		t.Fatalf("nonce = %x, want %x", nonce, base)
	}
}

func TestReconstruct_ForwardDeltaAdvancesCounter(t *testing.T) {
	base, _ := NewNonceBase()
	next := base.Increment().Increment().Increment()

	nonce, delta, ok := Reconstruct(base, next.Low16())
	if !ok {
		t.Fatal("Reconstruct should succeed for a small forward delta")
	}
	if delta != 3 {
		t.Fatalf("delta = %d, want 3", delta)
	}
	if nonce != next {
		t.Fatalf("nonce = %x, want %x", nonce, next)
	}
}

func TestReconstruct_NegativeDeltaForReorderedPacket(t *testing.T) {
	base, _ := NewNonceBase()
	ahead := base.Increment().Increment()
	behind := base.Increment() // one before ahead, arriving out of order

	nonce, delta, ok := Reconstruct(ahead, behind.Low16())
	if !ok {
		t.Fatal("Reconstruct should succeed for a small backward delta")
	}
	if delta != -1 {
		t.Fatalf("delta = %d, want -1", delta)
	}
	if nonce != behind {
		t.Fatalf("nonce = %x, want %x", nonce, behind)
	}
}

func TestReconstruct_RejectsAmbiguousOppositeDelta(t *testing.T) {
	var base NonceBase
	low := base.Low16() + 32768 // exactly halfway around the 16-bit ring

	if _, _, ok := Reconstruct(base, low); ok {
		t.Fatal("Reconstruct should reject the one low value exactly opposite the base")
	}
}
