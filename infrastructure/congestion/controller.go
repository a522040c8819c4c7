// Package congestion implements the send-rate controller: a pure
// function of a connection's rolling counters and the current time, run
// once per tick by the dispatcher. It carries no state of its own; all
// state lives in session.Connection.Congestion so it can be inspected,
// serialized, or reset without reaching into this package.
package congestion

import (
	"time"

	"p2pcrypto/infrastructure/session"
	"p2pcrypto/infrastructure/settings"
)

const (
	queueArraySize    = 12 // how many trailing send_array sizes are kept, one per tick
	lastSentArraySize = queueArraySize * 2
	// congestionMaxDelay bounds how far back the rtt offset can reach
	// into the last-sent/resent windows.
	congestionMaxDelay = lastSentArraySize - queueArraySize
)

// Tick advances a connection's congestion state by one tick: it folds
// recvCount, sentCount, and resentCount (accumulated by the dispatcher
// since the previous Tick) into the rolling windows, then recomputes
// PacketRecvRate, PacketSendRate, and PacketSendRateRequested.
func Tick(c *session.Connection, cfg *settings.Config, now time.Time, recvCount, sentCount, resentCount uint32) {
	calculateRecvRate(c, now, recvCount)
	calculateSendRate(c, cfg, now, sentCount, resentCount)
	c.Congestion.StatsCalculationTime = now
}

func calculateRecvRate(c *session.Connection, now time.Time, recvCount uint32) {
	dt := now.Sub(c.Congestion.StatsCalculationTime).Seconds()
	if dt <= 0 {
		return
	}
	c.Congestion.PacketRecvRate = float64(recvCount) / dt
}

func calculateSendRate(c *session.Connection, cfg *settings.Config, now time.Time, sentCount, resentCount uint32) {
	cs := &c.Congestion

	pos := cs.LastSendQueueCounter % queueArraySize
	npPos := cs.LastSendQueueCounter % lastSentArraySize
	cs.LastSendQueueCounter = (cs.LastSendQueueCounter + 1) % (queueArraySize * lastSentArraySize)

	sendArrayLen := uint32(c.SendArray.Len())

	prevAtPos := cs.LastSendArraySizes[(pos+1)%queueArraySize]
	cs.LastSendArraySizes[pos] = sendArrayLen
	cs.LastNumPacketsSent[npPos] = sentCount
	cs.LastNumPacketsResent[npPos] = resentCount

	// How much send_array's size changed over the last
	// queueArraySize-tick window: positive means packets are piling up
	// faster than they're being confirmed delivered.
	sum := int64(sendArrayLen) - int64(prevAtPos)

	// Offset the lookback window by roughly one rtt's worth of ticks: a
	// packet sent this tick won't be confirmed for about an rtt, so
	// counting only fully-settled ticks avoids judging the rate on
	// packets that simply haven't had time to be acked yet.
	delay := int((c.RTT.Milliseconds() + cfg.CongestionTickInterval.Milliseconds()/2) / cfg.CongestionTickInterval.Milliseconds())
	if delay > congestionMaxDelay {
		delay = congestionMaxDelay
	}
	if delay < 0 {
		delay = 0
	}

	var totalSent, totalResent uint32
	for i := 0; i < queueArraySize; i++ {
		idx := (npPos + (congestionMaxDelay - delay) + i) % lastSentArraySize
		totalSent += cs.LastNumPacketsSent[idx]
		totalResent += cs.LastNumPacketsResent[idx]
	}

	if sum > 0 {
		// send_array grew: more was sent than was confirmed delivered:
		// exclude the growth from the delivered-packet count.
		if uint32(sum) > totalSent {
			totalSent = 0
		} else {
			totalSent -= uint32(sum)
		}
	} else if negSum := uint32(-sum); totalResent > negSum {
		// send_array shrank but not every resend in the window was what
		// drained it: cap resent at the amount that actually drained.
		totalResent = negSum
	}

	coeff := 1000.0 / (float64(queueArraySize) * float64(cfg.CongestionTickInterval.Milliseconds()))
	minSpeed := float64(totalSent) * coeff
	minSpeedRequested := float64(totalSent+totalResent) * coeff

	sendArrayTime := float64(sendArrayLen) / minSpeed

	var sendRate float64
	switch {
	case sendArrayTime > cfg.SendQueueClearanceTime && sendArrayLen > cfg.MinQueueLength:
		// The queue would take too long to drain at the current delivery
		// rate: cut the rate proportionally and mark this as a
		// congestion event so the controller holds back from probing
		// upward again until cfg.CongestionEventTimeout has passed.
		sendRate = minSpeed / (sendArrayTime / cfg.SendQueueClearanceTime)
		cs.LastCongestionEvent = now
	case cs.LastCongestionEvent.IsZero() || now.Sub(cs.LastCongestionEvent) > cfg.CongestionEventTimeout:
		sendRate = minSpeed * 1.2
	default:
		sendRate = minSpeed * 0.9
	}
	if sendRate < cfg.MinSendRate {
		sendRate = cfg.MinSendRate
	}

	sendRateRequested := minSpeedRequested * 1.2
	if sendRateRequested < sendRate {
		sendRateRequested = sendRate
	}

	cs.PacketSendRate = sendRate
	cs.PacketSendRateRequested = sendRateRequested
}

// RequestInterval returns how long this side should wait before sending
// another KindRequest packet, given its own recv_array occupancy and
// measured receive rate: a fuller queue or a faster incoming stream both
// call for asking sooner.
func RequestInterval(cfg *settings.Config, recvLen int, recvRate float64) time.Duration {
	raw := cfg.RequestCompareConstant / ((float64(recvLen) + 1.0) / (recvRate + 1.0))

	// The cap is expressed in terms of the same 1000ms retransmission
	// interval the handshake phases retry on: at the minimum accepted
	// send rate, that's how long it would take the peer's own handshake
	// retry to resend anyway, so asking any less often than this buys
	// nothing.
	cap := cfg.MinSendRate/recvRate*float64(cfg.HandshakeRetryInterval.Milliseconds()) + float64(cfg.CongestionTickInterval.Milliseconds())
	if raw > cap {
		raw = cap
	}

	ms := time.Duration(round(raw)) * time.Millisecond
	if ms < cfg.RequestIntervalMin {
		ms = cfg.RequestIntervalMin
	}
	if ms > cfg.RequestIntervalMax {
		ms = cfg.RequestIntervalMax
	}
	return ms
}

func round(f float64) int64 {
	if f < 0 {
		return int64(f - 0.5)
	}
	return int64(f + 0.5)
}
