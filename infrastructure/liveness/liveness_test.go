package liveness

import (
	"testing"
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/session"
	"p2pcrypto/infrastructure/settings"
)

func newConn() *session.Connection {
	return session.NewConnection(domain.PublicKey{1}, domain.PublicKey{2}, 4, time.Unix(0, 0))
}

func TestSendPath_NoneWhenNothingHeardAndNoRelay(t *testing.T) {
	c := newConn()
	cfg := settings.Default()
	if got := SendPath(c, &cfg, time.Unix(0, 0)); got != domain.PathNone {
		t.Fatalf("SendPath = %v, want PathNone", got)
	}
}

func TestSendPath_UDPWithinAliveWindow(t *testing.T) {
	c := newConn()
	cfg := settings.Default()
	now := time.Unix(100, 0)
	OnUDPReceived(c, now)

	got := SendPath(c, &cfg, now.Add(cfg.UDPAliveWindow/2))
	if got != domain.PathUDP {
		t.Fatalf("SendPath = %v, want PathUDP", got)
	}
}

func TestSendPath_FallsBackToRelayAfterUDPWindowExpires(t *testing.T) {
	c := newConn()
	c.HasRelay = true
	cfg := settings.Default()
	now := time.Unix(100, 0)
	OnUDPReceived(c, now)

	got := SendPath(c, &cfg, now.Add(cfg.UDPAliveWindow+time.Second))
	if got != domain.PathRelay {
		t.Fatalf("SendPath = %v, want PathRelay once UDP window lapses", got)
	}
}

func TestSendPath_UDPOnlyWhenAliveEvenWithRelayConfigured(t *testing.T) {
	c := newConn()
	c.HasRelay = true
	cfg := settings.Default()
	now := time.Unix(100, 0)
	OnUDPReceived(c, now)

	if got := SendPath(c, &cfg, now); got != domain.PathUDP {
		t.Fatalf("SendPath = %v, want PathUDP while the direct path is alive", got)
	}
}

func TestShouldProbeUDP_RespectsAttemptInterval(t *testing.T) {
	c := newConn()
	cfg := settings.Default()
	now := time.Unix(0, 0)

	if !ShouldProbeUDP(c, &cfg, now) {
		t.Fatal("should probe when nothing has ever been attempted")
	}
	RecordUDPAttempt(c, now)
	if ShouldProbeUDP(c, &cfg, now.Add(cfg.UDPAttemptInterval/2)) {
		t.Fatal("should not probe again before UDPAttemptInterval elapses")
	}
	if !ShouldProbeUDP(c, &cfg, now.Add(cfg.UDPAttemptInterval)) {
		t.Fatal("should probe again once UDPAttemptInterval elapses")
	}
}

func TestShouldProbeUDP_FalseWhenUDPAlive(t *testing.T) {
	c := newConn()
	cfg := settings.Default()
	now := time.Unix(0, 0)
	OnUDPReceived(c, now)
	if ShouldProbeUDP(c, &cfg, now) {
		t.Fatal("should not probe the direct path while it is already alive")
	}
}
