package session

import (
	"time"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/cryptography/primitives"
	"p2pcrypto/infrastructure/settings"
)

// RetryDue reports whether enough time has passed since the last
// handshake-phase packet was sent that the current phase should
// retransmit. CookieRequesting, HandshakeSending, and NotConfirmed all
// share the same retry interval; Established never retries.
func RetryDue(c *Connection, cfg *settings.Config, now time.Time) bool {
	switch s := c.Status.(type) {
	case *CookieRequesting:
		return now.Sub(s.LastSent) >= cfg.HandshakeRetryInterval
	case *HandshakeSending:
		return now.Sub(s.LastSent) >= cfg.HandshakeRetryInterval
	case *NotConfirmed:
		return now.Sub(s.LastSent) >= cfg.HandshakeRetryInterval
	default:
		return false
	}
}

// RecordAttempt increments the current phase's retry counter and stamps
// LastSent. It returns domain.ErrHandshakeTimeout once the phase has
// exhausted cfg.HandshakeMaxAttempts, signalling the caller to tear the
// connection down rather than retry indefinitely.
func RecordAttempt(c *Connection, cfg *settings.Config, now time.Time) error {
	switch s := c.Status.(type) {
	case *CookieRequesting:
		s.Attempts++
		s.LastSent = now
		if s.Attempts > cfg.HandshakeMaxAttempts {
			return domain.ErrHandshakeTimeout
		}
	case *HandshakeSending:
		s.Attempts++
		s.LastSent = now
		if s.Attempts > cfg.HandshakeMaxAttempts {
			return domain.ErrHandshakeTimeout
		}
	case *NotConfirmed:
		s.Attempts++
		s.LastSent = now
		if s.Attempts > cfg.HandshakeMaxAttempts {
			return domain.ErrHandshakeTimeout
		}
	}
	return nil
}

// TransitionToHandshakeSending moves a connection from CookieRequesting
// (having just received a valid CookieResponse) into HandshakeSending,
// storing the caller-generated ephemeral session key pair and base nonce
// this side will use for the lifetime of the connection.
func TransitionToHandshakeSending(c *Connection, cookie []byte, sessionPub domain.PublicKey, sessionPriv domain.PrivateKey, baseNonce primitives.NonceBase, now time.Time) {
	c.Status = &HandshakeSending{
		Cookie:      cookie,
		SessionPub:  sessionPub,
		SessionPriv: sessionPriv,
		SentNonce:   baseNonce,
		LastSent:    now,
	}
}

// TransitionToNotConfirmed moves a connection from HandshakeSending
// (having just received the peer's own CryptoHandshake) into
// NotConfirmed: the shared key is now fixed, but the peer has not yet
// proven it received this side's handshake.
func TransitionToNotConfirmed(c *Connection, sharedKey domain.SharedKey, sentNonce, receivedNonce primitives.NonceBase, now time.Time) {
	c.Status = &NotConfirmed{
		SharedKey:     sharedKey,
		SentNonce:     sentNonce,
		ReceivedNonce: receivedNonce,
		LastSent:      now,
	}
}

// TransitionToEstablished moves a connection from NotConfirmed (having
// just received its first CryptoData packet) into the terminal
// Established phase.
func TransitionToEstablished(c *Connection) {
	nc, ok := c.Status.(*NotConfirmed)
	if !ok {
		return
	}
	c.Status = &Established{
		SharedKey:     nc.SharedKey,
		SentNonce:     nc.SentNonce,
		ReceivedNonce: nc.ReceivedNonce,
	}
}

// AcceptUnsolicitedHandshake decides whether a CryptoHandshake received
// while already Established should be reprocessed (treated as the
// peer having restarted and requiring a fresh session) or silently
// ignored. The conservative rule: only accept if the handshake's peer
// DHT public key differs from the one this connection was established
// with, since an identical DHT key repeating its handshake is far more
// likely to be a replayed or duplicated packet than a genuine restart.
func AcceptUnsolicitedHandshake(c *Connection, handshakePeerDHTPK domain.PublicKey) bool {
	if !c.IsEstablished() {
		return true
	}
	return handshakePeerDHTPK != c.PeerDHTPK
}
