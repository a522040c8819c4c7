package congestion

import (
	"testing"
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/session"
	"p2pcrypto/infrastructure/settings"
)

func newTestConnection(now time.Time) *session.Connection {
	return session.NewConnection(domain.PublicKey{1}, domain.PublicKey{2}, 8, now)
}

func TestCalculateRecvRate_DividesCountByElapsedSeconds(t *testing.T) {
	now := time.Unix(0, 0)
	c := newTestConnection(now)
	c.Congestion.StatsCalculationTime = now

	next := now.Add(50 * time.Millisecond)
	cfg := settings.Default()
	Tick(c, &cfg, next, 300, 0, 0)

	if c.Congestion.PacketRecvRate != 6000.0 {
		t.Fatalf("PacketRecvRate = %v, want 6000.0", c.Congestion.PacketRecvRate)
	}
}

func TestTick_ProbesUpwardWhenQueueIsEmptyAndNoRecentCongestion(t *testing.T) {
	now := time.Unix(0, 0)
	cfg := settings.Default()
	c := newTestConnection(now)
	c.RTT = 0

	// Feed a steady 5 packets/tick for a full window so totalSent settles
	// at a nonzero, non-growing value and the probe branch can engage.
	for i := 0; i < lastSentArraySize+1; i++ {
		now = now.Add(cfg.CongestionTickInterval)
		Tick(c, &cfg, now, 5, 5, 0)
	}

	if c.Congestion.PacketSendRate <= cfg.MinSendRate {
		t.Fatalf("PacketSendRate = %v, want it to have climbed above the floor once delivery looked steady", c.Congestion.PacketSendRate)
	}
}

func TestTick_ThrottlesWhenSendArrayBacksUp(t *testing.T) {
	now := time.Unix(0, 0)
	cfg := settings.Default()
	c := newTestConnection(now)
	c.RTT = 0

	for i := 0; i < lastSentArraySize+1; i++ {
		now = now.Add(cfg.CongestionTickInterval)
		Tick(c, &cfg, now, 5, 5, 0)
	}
	rateBeforeSpike := c.Congestion.PacketSendRate

	// Queue up far more than MinQueueLength entries without matching
	// delivered-packet credit, so send_array_time blows past
	// SendQueueClearanceTime.
	for i := uint32(0); i < cfg.MinQueueLength+10; i++ {
		c.SendArray.PushBack(session.SentPacket{})
	}
	now = now.Add(cfg.CongestionTickInterval)
	Tick(c, &cfg, now, 5, 1, 0)

	if c.Congestion.PacketSendRate >= rateBeforeSpike {
		t.Fatalf("PacketSendRate = %v, want it to have dropped below the pre-spike rate %v once send_array backed up", c.Congestion.PacketSendRate, rateBeforeSpike)
	}
	if c.Congestion.LastCongestionEvent.IsZero() {
		t.Fatal("expected a congestion event to be recorded once the clearance-time throttle fired")
	}
}

func TestTick_NeverDropsBelowMinSendRate(t *testing.T) {
	now := time.Unix(0, 0)
	cfg := settings.Default()
	c := newTestConnection(now)

	for i := 0; i < 50; i++ {
		now = now.Add(cfg.CongestionTickInterval)
		Tick(c, &cfg, now, 0, 0, 0)
	}
	if c.Congestion.PacketSendRate < cfg.MinSendRate {
		t.Fatalf("PacketSendRate = %v, want at least the floor %v", c.Congestion.PacketSendRate, cfg.MinSendRate)
	}
}

func TestTick_RequestedRateNeverBelowSendRate(t *testing.T) {
	now := time.Unix(0, 0)
	cfg := settings.Default()
	c := newTestConnection(now)

	for i := 0; i < 40; i++ {
		now = now.Add(cfg.CongestionTickInterval)
		Tick(c, &cfg, now, 3, 3, 1)
	}
	if c.Congestion.PacketSendRateRequested < c.Congestion.PacketSendRate {
		t.Fatalf("PacketSendRateRequested = %v, want >= PacketSendRate %v", c.Congestion.PacketSendRateRequested, c.Congestion.PacketSendRate)
	}
}

func TestRequestInterval_DecreasesAsQueueGrows(t *testing.T) {
	cfg := settings.Default()
	const recvRate = 500.0

	cases := []struct {
		recvLen  int
		wantMs   int64
	}{
		{80, 58},
		{90, 58},
		{100, 58},
		{110, 56},
		{120, 52},
		{130, 50},
		{140, 50},
		{150, 50},
	}
	for _, tc := range cases {
		got := RequestInterval(&cfg, tc.recvLen, recvRate)
		if got.Milliseconds() != tc.wantMs {
			t.Errorf("RequestInterval(len=%d) = %v, want %dms", tc.recvLen, got, tc.wantMs)
		}
	}
}

func TestRequestInterval_ClampedToConfiguredBounds(t *testing.T) {
	cfg := settings.Default()

	if got := RequestInterval(&cfg, 0, 100000); got != cfg.RequestIntervalMin {
		t.Fatalf("RequestInterval with a tiny queue and fast recv rate = %v, want the floor %v", got, cfg.RequestIntervalMin)
	}
	// An empty queue at 19 pkt/s gives a raw 250ms (under the 260.5ms
	// cap), so a 200ms ceiling is what bounds it.
	cfg.RequestIntervalMax = 200 * time.Millisecond
	if got := RequestInterval(&cfg, 0, 19); got != cfg.RequestIntervalMax {
		t.Fatalf("RequestInterval with an empty queue and slow recv rate = %v, want the ceiling %v", got, cfg.RequestIntervalMax)
	}
}
