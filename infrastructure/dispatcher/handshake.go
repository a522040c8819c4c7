package dispatcher

import (
	"encoding/binary"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/cryptography/cookie"
	"p2pcrypto/infrastructure/cryptography/primitives"
	"p2pcrypto/infrastructure/cryptography/wire"
	"p2pcrypto/infrastructure/session"
)

// echoIDSize is the width of the random identifier carried inside a
// CookieRequest/CookieResponse pair's encrypted body, after the real
// fields, so a response can be matched back to its request.
const echoIDSize = 8

// buildCookieRequest seals a fresh CookieRequest addressed to a
// connection still in CookieRequesting, storing the echo id it picks so
// the matching CookieResponse can be recognized.
func (d *Dispatcher) buildCookieRequest(c *session.Connection) ([]byte, error) {
	cr, ok := c.Status.(*session.CookieRequesting)
	if !ok {
		return nil, domain.ErrNotEstablished
	}

	echo, err := primitives.RandomBytes(echoIDSize)
	if err != nil {
		return nil, err
	}
	cr.EchoID = binary.BigEndian.Uint64(echo)

	plain := make([]byte, domain.KeySize+echoIDSize)
	copy(plain[:domain.KeySize], d.realPub[:])
	copy(plain[domain.KeySize:], echo)

	nonce, err := primitives.NewNonceBase()
	if err != nil {
		return nil, err
	}
	dhtShared := primitives.Precompute(c.PeerDHTPK, d.dhtPriv)
	ciphertext := primitives.Seal(nil, plain, [24]byte(nonce), dhtShared)

	return wire.EncodeCookieRequest(wire.CookieRequest{
		SenderDHTPK: d.dhtPub,
		Nonce:       [24]byte(nonce),
		Ciphertext:  ciphertext,
	}), nil
}

// handleCookieRequest answers a stateless CookieRequest without touching
// the connection table: the responder commits nothing until the
// initiator echoes the minted cookie back inside a CryptoHandshake.
func (d *Dispatcher) handleCookieRequest(buf []byte) ([]byte, error) {
	req, err := wire.DecodeCookieRequest(buf)
	if err != nil {
		return nil, err
	}

	dhtShared := primitives.Precompute(req.SenderDHTPK, d.dhtPriv)
	plain, err := primitives.Open(nil, req.Ciphertext, req.Nonce, dhtShared)
	if err != nil {
		return nil, err
	}
	if len(plain) != domain.KeySize+echoIDSize {
		return nil, domain.ErrMalformedPacket
	}

	var senderRealPK domain.PublicKey
	copy(senderRealPK[:], plain[:domain.KeySize])
	echo := plain[domain.KeySize:]

	sealed, err := d.cookies.Seal(senderRealPK, req.SenderDHTPK)
	if err != nil {
		return nil, err
	}

	respPlain := make([]byte, 0, len(sealed)+echoIDSize)
	respPlain = append(respPlain, sealed...)
	respPlain = append(respPlain, echo...)

	nonce, err := primitives.NewNonceBase()
	if err != nil {
		return nil, err
	}
	ciphertext := primitives.Seal(nil, respPlain, [24]byte(nonce), dhtShared)

	return wire.EncodeCookieResponse(wire.CookieResponse{
		Nonce:      [24]byte(nonce),
		Ciphertext: ciphertext,
	}), nil
}

// handleCookieResponse verifies a CookieResponse against the
// CookieRequesting connection it answers and, once accepted, builds this
// side's CryptoHandshake and advances the connection to HandshakeSending.
func (d *Dispatcher) handleCookieResponse(buf []byte) (*session.Connection, []byte, error) {
	resp, err := wire.DecodeCookieResponse(buf)
	if err != nil {
		return nil, nil, err
	}

	// The sender's DHT key isn't carried on a CookieResponse, so every
	// CookieRequesting connection's precomputed key is tried until one
	// opens it; in practice a host keyed by source address would narrow
	// this to one candidate before calling in, but the core stays address
	// agnostic and relies on this decrypt-to-match property instead.
	for _, c := range d.tblAll() {
		cr, ok := c.Status.(*session.CookieRequesting)
		if !ok {
			continue
		}
		dhtShared := primitives.Precompute(c.PeerDHTPK, d.dhtPriv)
		plain, err := primitives.Open(nil, resp.Ciphertext, resp.Nonce, dhtShared)
		if err != nil {
			continue
		}
		if len(plain) != cookie.EncodedSize+echoIDSize {
			continue
		}
		echo := binary.BigEndian.Uint64(plain[cookie.EncodedSize:])
		if echo != cr.EchoID {
			continue
		}

		sealedCookie := append([]byte(nil), plain[:cookie.EncodedSize]...)
		pkt, err := d.buildCryptoHandshake(c, sealedCookie)
		if err != nil {
			return c, nil, err
		}
		return c, pkt, nil
	}
	return nil, nil, errEchoMismatch
}

// buildCryptoHandshake generates a fresh ephemeral session key and base
// nonce for c, transitions it to HandshakeSending, and seals the
// CryptoHandshake packet echoing cookie back to the peer.
func (d *Dispatcher) buildCryptoHandshake(c *session.Connection, peerIssuedCookie []byte) ([]byte, error) {
	sessionPub, sessionPriv, err := primitives.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	baseNonce, err := primitives.NewNonceBase()
	if err != nil {
		return nil, err
	}
	now := d.clock.Now()
	session.TransitionToHandshakeSending(c, peerIssuedCookie, sessionPub, sessionPriv, baseNonce, now)

	return d.sealHandshakePacket(c)
}

// sealHandshakePacket re-seals the current HandshakeSending state's
// session key and base nonce, used both for the first send and for every
// retransmission (a fresh nonce is drawn each time since the handshake
// packet nonce is single-use, never sequence derived).
func (d *Dispatcher) sealHandshakePacket(c *session.Connection) ([]byte, error) {
	hs, ok := c.Status.(*session.HandshakeSending)
	if !ok {
		return nil, domain.ErrNotEstablished
	}

	plain := make([]byte, domain.KeySize+24)
	copy(plain[:domain.KeySize], hs.SessionPub[:])
	copy(plain[domain.KeySize:], hs.SentNonce[:])

	nonce, err := primitives.NewNonceBase()
	if err != nil {
		return nil, err
	}
	handshakeKey := primitives.Precompute(c.PeerRealPK, d.realPriv)
	ciphertext := primitives.Seal(nil, plain, [24]byte(nonce), handshakeKey)

	return wire.EncodeCryptoHandshake(wire.CryptoHandshake{
		Cookie:     hs.Cookie,
		Nonce:      [24]byte(nonce),
		Ciphertext: ciphertext,
	}), nil
}

// decodeHandshakeBody opens a CryptoHandshake's ciphertext under
// handshakeKey and splits the plaintext into the sender's session public
// key and base nonce.
func decodeHandshakeBody(h wire.CryptoHandshake, handshakeKey domain.SharedKey) (domain.PublicKey, primitives.NonceBase, error) {
	plain, err := primitives.Open(nil, h.Ciphertext, h.Nonce, handshakeKey)
	if err != nil {
		return domain.PublicKey{}, primitives.NonceBase{}, err
	}
	if len(plain) != domain.KeySize+24 {
		return domain.PublicKey{}, primitives.NonceBase{}, domain.ErrMalformedPacket
	}
	var peerSessionPub domain.PublicKey
	copy(peerSessionPub[:], plain[:domain.KeySize])
	var peerBaseNonce primitives.NonceBase
	copy(peerBaseNonce[:], plain[domain.KeySize:])
	return peerSessionPub, peerBaseNonce, nil
}

// handleCryptoHandshakeReply completes an outstanding HandshakeSending
// exchange using a connection already known by UDP address: since this
// side initiated, the cookie it echoed was minted by the peer's jar, not
// this side's, so there is nothing of this side's to validate here — the
// handshake ciphertext's own authentication under the real-key-derived
// shared secret is what proves the reply is genuine.
func (d *Dispatcher) handleCryptoHandshakeReply(c *session.Connection, h wire.CryptoHandshake) error {
	hs, ok := c.Status.(*session.HandshakeSending)
	if !ok {
		return domain.ErrMalformedPacket
	}
	handshakeKey := primitives.Precompute(c.PeerRealPK, d.realPriv)
	peerSessionPub, peerBaseNonce, err := decodeHandshakeBody(h, handshakeKey)
	if err != nil {
		return err
	}
	sharedKey := primitives.Precompute(peerSessionPub, hs.SessionPriv)
	session.TransitionToNotConfirmed(c, sharedKey, hs.SentNonce, peerBaseNonce, d.clock.Now())
	return nil
}

// handleCryptoHandshake validates an inbound CryptoHandshake's echoed
// cookie against this side's own jar and, once accepted, mints a fresh
// session key and replies in kind. It is only ever correct to call this
// for a handshake this side did not itself solicit: the cookie must have
// been minted by this side's jar, which only happens when this side
// previously answered the sender's CookieRequest.
func (d *Dispatcher) handleCryptoHandshake(buf []byte) (*session.Connection, []byte, error) {
	h, err := wire.DecodeCryptoHandshake(buf, cookie.EncodedSize)
	if err != nil {
		return nil, nil, err
	}

	ck, err := d.cookies.Open(h.Cookie, d.cfg.CookieValidityWindow)
	if err != nil {
		return nil, nil, err
	}

	handshakeKey := primitives.Precompute(ck.PeerRealPK, d.realPriv)
	peerSessionPub, peerBaseNonce, err := decodeHandshakeBody(h, handshakeKey)
	if err != nil {
		return nil, nil, err
	}

	now := d.clock.Now()
	c, err := d.tblGetByRealPK(ck.PeerRealPK)
	if err != nil {
		c = session.NewConnection(ck.PeerRealPK, ck.PeerDHTPK, d.cfg.PacketsArrayBits, now)
		c.RTT = d.cfg.DefaultRTT
		if err := d.tblAdd(c); err != nil {
			return nil, nil, err
		}
	} else if c.IsEstablished() && !session.AcceptUnsolicitedHandshake(c, ck.PeerDHTPK) {
		return nil, nil, domain.ErrReplayedNonce
	}

	sessionPub, sessionPriv, err := primitives.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	baseNonceSend, err := primitives.NewNonceBase()
	if err != nil {
		return nil, nil, err
	}
	sharedKey := primitives.Precompute(peerSessionPub, sessionPriv)
	session.TransitionToNotConfirmed(c, sharedKey, baseNonceSend, peerBaseNonce, now)

	replyPlain := make([]byte, domain.KeySize+24)
	copy(replyPlain[:domain.KeySize], sessionPub[:])
	copy(replyPlain[domain.KeySize:], baseNonceSend[:])
	replyNonce, err := primitives.NewNonceBase()
	if err != nil {
		return nil, nil, err
	}
	ciphertext := primitives.Seal(nil, replyPlain, [24]byte(replyNonce), handshakeKey)
	reply := wire.EncodeCryptoHandshake(wire.CryptoHandshake{
		Cookie:     h.Cookie,
		Nonce:      [24]byte(replyNonce),
		Ciphertext: ciphertext,
	})
	return c, reply, nil
}
