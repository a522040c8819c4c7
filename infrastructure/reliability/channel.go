// Package reliability implements the Reliable Data Channel: sealing and
// opening CryptoData packets against a NotConfirmed or Established
// connection, tracking
// which lossless sequence numbers are still outstanding, reassembling
// out-of-order arrivals, and building/handling the request packets that
// drive retransmission.
package reliability

import (
	"sort"
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/cryptography/primitives"
	"p2pcrypto/infrastructure/cryptography/wire"
	"p2pcrypto/infrastructure/session"
)

// Delivered is a single payload handed to the host, in delivery order.
type Delivered struct {
	Kind    domain.DataKind
	Payload []byte
}

// sendState extracts the shared key and a pointer to the live outgoing
// nonce counter usable for sealing a CryptoData packet right now.
// Sending is allowed in both NotConfirmed and Established: the shared
// key is already fixed the moment a CryptoHandshake has been exchanged,
// and a peer only ever learns its own handshake was received by
// successfully opening a CryptoData packet, so NotConfirmed must be able
// to send one.
func sendState(c *session.Connection) (domain.SharedKey, *primitives.NonceBase, bool) {
	switch s := c.Status.(type) {
	case *session.NotConfirmed:
		return s.SharedKey, &s.SentNonce, true
	case *session.Established:
		return s.SharedKey, &s.SentNonce, true
	default:
		return domain.SharedKey{}, nil, false
	}
}

// recvState mirrors sendState for the incoming direction.
func recvState(c *session.Connection) (domain.SharedKey, *primitives.NonceBase, bool) {
	switch s := c.Status.(type) {
	case *session.NotConfirmed:
		return s.SharedKey, &s.ReceivedNonce, true
	case *session.Established:
		return s.SharedKey, &s.ReceivedNonce, true
	default:
		return domain.SharedKey{}, nil, false
	}
}

// sealCryptoData advances the connection's outgoing nonce counter by one
// and seals a CryptoData packet carrying kind/payload, always
// piggybacking this side's RecvArray.Start() as the acknowledgment the
// peer uses to free its own SendArray entries and update its RTT.
// packetNumber identifies the packet within SendArray for a lossless
// send; it is meaningless (left 0) for an untracked lossy send.
func sealCryptoData(c *session.Connection, packetNumber uint32, kind domain.DataKind, payload []byte) ([]byte, error) {
	sharedKey, sentNonce, ok := sendState(c)
	if !ok {
		return nil, domain.ErrNotEstablished
	}
	*sentNonce = sentNonce.Increment()

	body := wire.EncodeCryptoDataBody(wire.CryptoDataBody{
		BufferStart:  c.RecvArray.Start(),
		PacketNumber: packetNumber,
		Kind:         kind,
		Payload:      payload,
	})
	ciphertext := primitives.Seal(nil, body, [primitives.NonceSize]byte(*sentNonce), sharedKey)
	return wire.EncodeCryptoData(wire.CryptoData{LowNonce: sentNonce.Low16(), Ciphertext: ciphertext}), nil
}

// SubmitLossless queues payload under kind for delivery through the
// reliable channel: it assigns the connection's next SendArray sequence
// number but does not seal or send a packet immediately. DrainSendArray,
// called once per dispatcher tick, is what actually puts it on the wire,
// paced by the congestion controller's current send rate. Returns
// domain.ErrWindowFull if the send window has no free slot, and
// domain.ErrNotEstablished if the connection has not exchanged a
// handshake yet.
func SubmitLossless(c *session.Connection, kind domain.DataKind, payload []byte, now time.Time) error {
	if _, _, ok := sendState(c); !ok {
		return domain.ErrNotEstablished
	}

	plain := make([]byte, 1+len(payload))
	plain[0] = byte(kind)
	copy(plain[1:], payload)

	if _, ok := c.SendArray.PushBack(session.SentPacket{Payload: plain, SentAt: now}); !ok {
		return domain.ErrWindowFull
	}
	return nil
}

// SubmitLossy seals payload under kind into a CryptoData wire packet
// without any retransmission tracking or pacing: if it is lost, it is
// gone, but it also never waits for a tick to go out.
func SubmitLossy(c *session.Connection, kind domain.DataKind, payload []byte) ([]byte, error) {
	return sealCryptoData(c, 0, kind, payload)
}

// DrainSendArray seals and returns up to budget outstanding SendArray
// entries, Requested ones first and otherwise whichever have been
// waiting longest (smallest SentAt). An entry is eligible if it has never been sent, if a peer's
// request packet named it (Requested), or if it was sent at least one
// RTT ago without being acknowledged since. sentCount and resentCount
// report how many of the returned packets were first sends versus
// retransmissions, for the congestion controller's next tick.
func DrainSendArray(c *session.Connection, budget int, now time.Time) (packets [][]byte, sentCount, resentCount uint32) {
	if budget <= 0 {
		return nil, 0, 0
	}

	type candidate struct {
		seq uint32
		sp  session.SentPacket
	}
	var candidates []candidate
	c.SendArray.Iter(func(seq uint32, sp session.SentPacket) bool {
		if !sp.Sent || sp.Requested || now.Sub(sp.SentAt) >= c.RTT {
			candidates = append(candidates, candidate{seq, sp})
		}
		return true
	})
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sp.Requested != candidates[j].sp.Requested {
			return candidates[i].sp.Requested
		}
		return candidates[i].sp.SentAt.Before(candidates[j].sp.SentAt)
	})
	if len(candidates) > budget {
		candidates = candidates[:budget]
	}

	for _, cd := range candidates {
		if len(cd.sp.Payload) == 0 {
			continue
		}
		isRetransmit := cd.sp.Sent
		pkt, err := sealCryptoData(c, cd.seq, domain.DataKind(cd.sp.Payload[0]), cd.sp.Payload[1:])
		if err != nil {
			continue
		}

		cd.sp.SentAt = now
		cd.sp.Sent = true
		cd.sp.Requested = false
		if isRetransmit {
			cd.sp.Resends++
		}
		c.SendArray.Set(cd.seq, cd.sp)

		packets = append(packets, pkt)
		if isRetransmit {
			resentCount++
		} else {
			sentCount++
		}
	}
	return packets, sentCount, resentCount
}

// HandleCryptoData opens an inbound CryptoData packet, applies its
// piggybacked acknowledgment to SendArray (freeing confirmed entries and
// updating RTT from any that were never retransmitted), and, for a
// lossless payload, holds it in RecvArray until the sequence numbers in
// front of it have been delivered. It returns every payload now ready
// for delivery, in ascending sequence order; a single call can return
// zero, one, or several Delivered values if an earlier gap just closed.
//
// If the connection is NotConfirmed, successfully opening any packet
// confirms the peer received this side's handshake and advances the
// connection to Established.
func HandleCryptoData(c *session.Connection, encoded []byte, now time.Time) ([]Delivered, error) {
	pkt, err := wire.DecodeCryptoData(encoded)
	if err != nil {
		return nil, err
	}

	sharedKey, receivedNonce, ok := recvState(c)
	if !ok {
		return nil, domain.ErrNotEstablished
	}

	nonce, delta, ok := primitives.Reconstruct(*receivedNonce, pkt.LowNonce)
	if !ok {
		return nil, domain.ErrReplayedNonce
	}

	plain, err := primitives.Open(nil, pkt.Ciphertext, [primitives.NonceSize]byte(nonce), sharedKey)
	if err != nil {
		return nil, err
	}
	body, err := wire.DecodeCryptoDataBody(plain)
	if err != nil {
		return nil, err
	}

	if delta >= 0 {
		*receivedNonce = nonce
	}

	if _, wasNotConfirmed := c.Status.(*session.NotConfirmed); wasNotConfirmed {
		session.TransitionToEstablished(c)
	}

	c.SendArray.DiscardBeforeFunc(body.BufferStart, func(_ uint32, sp session.SentPacket) {
		if sp.Resends == 0 {
			if rtt := now.Sub(sp.SentAt); rtt < c.RTT {
				c.RTT = rtt
			}
		}
	})

	if !body.Kind.IsLossless() {
		// Control kinds (request, kill, online, handshake-complete) and
		// lossy payload kinds bypass the ordered array entirely: they
		// have no ordering relationship with the lossless stream and
		// must not be held up waiting for a gap to close.
		return []Delivered{{Kind: body.Kind, Payload: body.Payload}}, nil
	}

	plainForRecv := make([]byte, 1+len(body.Payload))
	plainForRecv[0] = byte(body.Kind)
	copy(plainForRecv[1:], body.Payload)
	if !c.RecvArray.Insert(body.PacketNumber, session.RecvPacket{Payload: plainForRecv}) {
		return nil, nil // duplicate or stale lossless packet; nothing new to deliver
	}

	var out []Delivered
	for {
		_, rp, ok := c.RecvArray.PopFront()
		if !ok {
			break
		}
		out = append(out, Delivered{Kind: domain.DataKind(rp.Payload[0]), Payload: rp.Payload[1:]})
	}
	return out, nil
}
