// Package dispatcher owns the process-wide connection table and the
// per-tick maintenance loop (stats, sends, retransmit requests, status
// updates) described by the component design; it is the only package
// that wires together session, reliability, congestion, liveness, and
// the wire/cookie codecs into a single entry point a host calls.
package dispatcher

import (
	"net/netip"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/session"
)

// Table is the connection table keyed by a peer's long-term real public
// key, with secondary indices by DHT public key (kept in step with the
// real-key index; the dispatcher's cookie handlers do not look
// connections up through it) and by observed UDP source address (for CryptoData, which carries neither key
// and is routed by address alone, matching the real-world scheme where a
// connection's direct path is pinned once learned).
type Table struct {
	byRealPK map[domain.PublicKey]*session.Connection
	byDHTPK  map[domain.PublicKey]*session.Connection
	byUDP    map[netip.AddrPort]*session.Connection
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		byRealPK: make(map[domain.PublicKey]*session.Connection),
		byDHTPK:  make(map[domain.PublicKey]*session.Connection),
		byUDP:    make(map[netip.AddrPort]*session.Connection),
	}
}

// Add registers c under its real-key and DHT-key indices, and under its
// UDP address when one is set. Returns domain.ErrConnectionExists
// if a connection for this real key is already present.
func (t *Table) Add(c *session.Connection) error {
	if _, exists := t.byRealPK[c.PeerRealPK]; exists {
		return domain.ErrConnectionExists
	}
	t.byRealPK[c.PeerRealPK] = c
	t.byDHTPK[c.PeerDHTPK] = c
	if c.UDPAddr.IsValid() {
		t.byUDP[c.UDPAddr] = c
	}
	return nil
}

// Delete removes c from every index.
func (t *Table) Delete(c *session.Connection) {
	delete(t.byRealPK, c.PeerRealPK)
	delete(t.byDHTPK, c.PeerDHTPK)
	if c.UDPAddr.IsValid() {
		delete(t.byUDP, c.UDPAddr)
	}
}

// SetUDPAddr updates c's observed UDP address and the byUDP index,
// called whenever a packet for c arrives from a new source (initial
// learning, or the peer rebinding behind NAT).
func (t *Table) SetUDPAddr(c *session.Connection, addr netip.AddrPort) {
	if c.UDPAddr.IsValid() {
		delete(t.byUDP, c.UDPAddr)
	}
	c.UDPAddr = addr
	if addr.IsValid() {
		t.byUDP[addr] = c
	}
}

// GetByUDPAddr looks up a connection by its last observed UDP source
// address, used to route CryptoData packets which carry no peer key.
func (t *Table) GetByUDPAddr(addr netip.AddrPort) (*session.Connection, error) {
	c, ok := t.byUDP[addr]
	if !ok {
		return nil, domain.ErrUnknownConnection
	}
	return c, nil
}

// GetByRealPK looks up a connection by the peer's long-term real key.
func (t *Table) GetByRealPK(pk domain.PublicKey) (*session.Connection, error) {
	c, ok := t.byRealPK[pk]
	if !ok {
		return nil, domain.ErrUnknownConnection
	}
	return c, nil
}

// GetByDHTPK looks up a connection by the peer's DHT key. The dispatcher
// does not call it: a CookieResponse carries no key and is matched by
// trying each connection's pending request.
func (t *Table) GetByDHTPK(pk domain.PublicKey) (*session.Connection, error) {
	c, ok := t.byDHTPK[pk]
	if !ok {
		return nil, domain.ErrUnknownConnection
	}
	return c, nil
}

// All returns every connection currently tracked, in no particular
// order, for the dispatcher's per-tick maintenance sweep.
func (t *Table) All() []*session.Connection {
	out := make([]*session.Connection, 0, len(t.byRealPK))
	for _, c := range t.byRealPK {
		out = append(out, c)
	}
	return out
}

// Len reports how many connections are tracked.
func (t *Table) Len() int {
	return len(t.byRealPK)
}
