package cookie

import (
	"testing"
	"time"

	"p2pcrypto/domain"
)

func TestJar_SealOpen_RoundTrip(t *testing.T) {
	j, err := NewJar()
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}

	realPK := domain.PublicKey{1, 2, 3}
	dhtPK := domain.PublicKey{4, 5, 6}

	encoded, err := j.Seal(realPK, dhtPK)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(encoded) != EncodedSize {
		t.Fatalf("len(encoded) = %d, want %d", len(encoded), EncodedSize)
	}

	c, err := j.Open(encoded, time.Minute)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.PeerRealPK != realPK || c.PeerDHTPK != dhtPK {
		t.Fatalf("Open() = %+v, want real=%v dht=%v", c, realPK, dhtPK)
	}
}

func TestJar_Open_RejectsExpiredCookie(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	now := start
	j, err := NewJar()
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}
	j.SetClock(func() time.Time { return now })

	encoded, err := j.Seal(domain.PublicKey{1}, domain.PublicKey{2})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	now = start.Add(2 * time.Minute)
	if _, err := j.Open(encoded, time.Minute); err != domain.ErrInvalidCookie {
		t.Fatalf("Open() err = %v, want ErrInvalidCookie", err)
	}
}

func TestJar_Open_RejectsForeignKey(t *testing.T) {
	j1, _ := NewJar()
	j2, _ := NewJar()

	encoded, err := j1.Seal(domain.PublicKey{1}, domain.PublicKey{2})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := j2.Open(encoded, time.Minute); err != domain.ErrInvalidCookie {
		t.Fatalf("Open() err = %v, want ErrInvalidCookie", err)
	}
}

func TestJar_Open_RejectsTruncated(t *testing.T) {
	j, _ := NewJar()
	if _, err := j.Open([]byte{1, 2, 3}, time.Minute); err != domain.ErrInvalidCookie {
		t.Fatalf("Open() err = %v, want ErrInvalidCookie", err)
	}
}
