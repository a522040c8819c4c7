package reliability

import (
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/cryptography/wire"
	"p2pcrypto/infrastructure/session"
)

// BuildRequestPacket reports which sequence numbers this side is still
// missing from its RecvArray, relative to RecvArray.Start(), so the peer
// knows what to retransmit. The acknowledgment itself no longer travels
// here: every CryptoData packet already piggybacks RecvArray.Start() in
// its body, so a request is only worth sending when there is an actual
// gap to report. Returns ok=false when nothing is missing.
func BuildRequestPacket(c *session.Connection) ([]byte, bool) {
	base := c.RecvArray.Start()

	var missing []uint32
	highest := base
	c.RecvArray.Iter(func(seq uint32, _ session.RecvPacket) bool {
		if seq > highest {
			highest = seq
		}
		return true
	})
	for seq := base; seq < highest; seq++ {
		if _, ok := c.RecvArray.Get(seq); !ok {
			missing = append(missing, seq-base)
		}
	}
	if len(missing) == 0 {
		return nil, false
	}

	pkt, err := SubmitLossy(c, domain.KindRequest, wire.EncodeRequest(missing))
	if err != nil {
		return nil, false
	}
	return pkt, true
}

// HandleRequestPacket applies a decoded KindRequest payload (as returned
// in Delivered.Payload by HandleCryptoData) to the sender's own
// connection state: every named offset, relative to this side's own
// SendArray.Start(), is marked Requested so DrainSendArray retransmits it
// on the next tick ahead of anything chosen only by age.
func HandleRequestPacket(c *session.Connection, payload []byte, _ time.Time) error {
	offsets, err := wire.DecodeRequest(payload)
	if err != nil {
		return err
	}

	base := c.SendArray.Start()
	for _, off := range offsets {
		seq := base + off
		sp, ok := c.SendArray.Get(seq)
		if !ok {
			continue
		}
		sp.Requested = true
		c.SendArray.Set(seq, sp)
	}
	return nil
}
