package primitives

import "testing"

func TestGenerateKeyPair_ProducesMatchingPublic(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if pub.IsZero() {
		t.Fatal("expected non-zero public key")
	}

	derived, err := PublicFromPrivate(priv)
	if err != nil {
		t.Fatalf("PublicFromPrivate: %v", err)
	}
	if derived != pub {
		t.Fatalf("derived public key does not match generated one")
	}
}

func TestPrecompute_IsSymmetric(t *testing.T) {
	aPub, aPriv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair a: %v", err)
	}
	bPub, bPriv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair b: %v", err)
	}

	sharedA := Precompute(bPub, aPriv)
	sharedB := Precompute(aPub, bPriv)

	if sharedA != sharedB {
		t.Fatalf("precomputed shared keys differ: %x != %x", sharedA, sharedB)
	}
}

func TestRandomBytes_DistinctCalls(t *testing.T) {
	a, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	b, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("two independent RandomBytes calls produced identical output")
	}
}
