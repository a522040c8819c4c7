package dispatcher

import (
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"p2pcrypto/application"
	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/congestion"
	"p2pcrypto/infrastructure/cryptography/cookie"
	"p2pcrypto/infrastructure/cryptography/wire"
	"p2pcrypto/infrastructure/liveness"
	"p2pcrypto/infrastructure/reliability"
	"p2pcrypto/infrastructure/session"
	"p2pcrypto/infrastructure/settings"
)

// Dispatcher is the single entry point a host wires the crypto transport
// core through: every inbound packet and every outbound send request
// goes through one of its methods, and Tick drives the 50ms maintenance
// loop (congestion, liveness, handshake retries, retransmit requests).
type Dispatcher struct {
	cfg settings.Config

	realPub  domain.PublicKey
	realPriv domain.PrivateKey
	dhtPub   domain.PublicKey
	dhtPriv  domain.PrivateKey

	cookies *cookie.Jar
	// tableMu guards every Table access. Tick shards its per-connection
	// work across goroutines, and plain maps, not ConcurrentTable, back
	// this dispatcher's single table, so lookups as well as
	// Add/Delete/SetUDPAddr go through the tbl* wrappers, which all take
	// this lock.
	tableMu sync.Mutex
	table   *Table

	clock   application.Clock
	logger  application.Logger
	udp     application.UDPSender
	relay   application.RelaySender
	sink    application.EventSink
}

// New builds a Dispatcher for one local identity. realPub/realPriv is
// this host's long-term identity; dhtPub/dhtPriv is the ephemeral-per-boot
// key used
// only to gate the cookie exchange, matching the separation between
// long-term and DHT keys in the data model.
func New(
	realPub domain.PublicKey, realPriv domain.PrivateKey,
	dhtPub domain.PublicKey, dhtPriv domain.PrivateKey,
	cfg settings.Config,
	clock application.Clock, logger application.Logger,
	udp application.UDPSender, relay application.RelaySender, sink application.EventSink,
) (*Dispatcher, error) {
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	jar, err := cookie.NewJar()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		cfg:      cfg,
		realPub:  realPub,
		realPriv: realPriv,
		dhtPub:   dhtPub,
		dhtPriv:  dhtPriv,
		cookies:  jar,
		table:    NewTable(),
		clock:    clock,
		logger:   logger,
		udp:      udp,
		relay:    relay,
		sink:     sink,
	}, nil
}

func (d *Dispatcher) tblGetByRealPK(pk domain.PublicKey) (*session.Connection, error) {
	d.tableMu.Lock()
	defer d.tableMu.Unlock()
	return d.table.GetByRealPK(pk)
}

func (d *Dispatcher) tblGetByUDPAddr(addr netip.AddrPort) (*session.Connection, error) {
	d.tableMu.Lock()
	defer d.tableMu.Unlock()
	return d.table.GetByUDPAddr(addr)
}

func (d *Dispatcher) tblAdd(c *session.Connection) error {
	d.tableMu.Lock()
	defer d.tableMu.Unlock()
	return d.table.Add(c)
}

func (d *Dispatcher) tblDelete(c *session.Connection) {
	d.tableMu.Lock()
	defer d.tableMu.Unlock()
	d.table.Delete(c)
}

func (d *Dispatcher) tblSetUDPAddr(c *session.Connection, addr netip.AddrPort) {
	d.tableMu.Lock()
	defer d.tableMu.Unlock()
	d.table.SetUDPAddr(c, addr)
}

func (d *Dispatcher) tblAll() []*session.Connection {
	d.tableMu.Lock()
	defer d.tableMu.Unlock()
	return d.table.All()
}

// AddConnection registers a new outbound connection attempt toward a
// peer known by its real and DHT public keys, reachable at udpAddr. The
// first CookieRequest is sent on the next Tick.
func (d *Dispatcher) AddConnection(peerRealPK, peerDHTPK domain.PublicKey, udpAddr netip.AddrPort) (*session.Connection, error) {
	c := session.NewConnection(peerRealPK, peerDHTPK, d.cfg.PacketsArrayBits, d.clock.Now())
	c.RTT = d.cfg.DefaultRTT
	c.UDPAddr = udpAddr
	if err := d.tblAdd(c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveConnection tears a connection down, sending a best-effort kill
// notice on whatever path is currently live before dropping its state.
func (d *Dispatcher) RemoveConnection(peerRealPK domain.PublicKey) error {
	c, err := d.tblGetByRealPK(peerRealPK)
	if err != nil {
		return err
	}
	if c.IsEstablished() {
		if pkt, sendErr := reliability.SubmitLossy(c, domain.KindKill, nil); sendErr == nil {
			d.send(c, pkt)
		}
	}
	d.tblDelete(c)
	d.sink.Emit(domain.Event{Kind: domain.EventLost, PeerKey: peerRealPK})
	return nil
}

// SubmitLossless hands payload to the reliable channel for delivery to
// peerRealPK. It only reserves a SendArray slot; the next Tick's paced
// send, throttled by the congestion controller's current rate, is what
// actually puts it on the wire.
func (d *Dispatcher) SubmitLossless(peerRealPK domain.PublicKey, kind domain.DataKind, payload []byte) error {
	c, err := d.tblGetByRealPK(peerRealPK)
	if err != nil {
		return err
	}
	return reliability.SubmitLossless(c, kind, payload, d.clock.Now())
}

// SubmitLossy hands payload to the channel for best-effort delivery with
// no retransmission.
func (d *Dispatcher) SubmitLossy(peerRealPK domain.PublicKey, kind domain.DataKind, payload []byte) error {
	c, err := d.tblGetByRealPK(peerRealPK)
	if err != nil {
		return err
	}
	pkt, err := reliability.SubmitLossy(c, kind, payload)
	if err != nil {
		return err
	}
	return d.send(c, pkt)
}

// send writes pkt to whichever transport(s) liveness currently considers
// live for c.
func (d *Dispatcher) send(c *session.Connection, pkt []byte) error {
	oldPath := c.Liveness.CurrentPath
	path := liveness.SendPath(c, &d.cfg, d.clock.Now())
	if path != oldPath {
		d.sink.Emit(domain.Event{Kind: domain.EventPathChanged, PeerKey: c.PeerRealPK, Path: path})
	}
	var err error
	if path == domain.PathUDP || path == domain.PathBoth {
		err = d.udp.SendUDP(c.UDPAddr, pkt)
	}
	if (path == domain.PathRelay || path == domain.PathBoth) && c.HasRelay {
		if relayErr := d.relay.SendRelay(c.RelayID, c.PeerRealPK, pkt); relayErr != nil && err == nil {
			err = relayErr
		}
	}
	return err
}

// HandleUDPPacket routes a datagram received on the direct path to the
// right handshake or data handler based on its kind byte.
func (d *Dispatcher) HandleUDPPacket(src netip.AddrPort, buf []byte) error {
	kind, err := wire.PeekKind(buf)
	if err != nil {
		return err
	}

	switch kind {
	case domain.KindCookieRequest:
		resp, err := d.handleCookieRequest(buf)
		if err != nil {
			return err
		}
		return d.udp.SendUDP(src, resp)

	case domain.KindCookieResponse:
		c, pkt, err := d.handleCookieResponse(buf)
		if err != nil {
			return err
		}
		d.tblSetUDPAddr(c, src)
		liveness.OnUDPReceived(c, d.clock.Now())
		return d.udp.SendUDP(src, pkt)

	case domain.KindCryptoHandshake:
		if c, err := d.tblGetByUDPAddr(src); err == nil {
			if _, ok := c.Status.(*session.HandshakeSending); ok {
				h, decErr := wire.DecodeCryptoHandshake(buf, cookie.EncodedSize)
				if decErr != nil {
					return decErr
				}
				if err := d.handleCryptoHandshakeReply(c, h); err != nil {
					return err
				}
				liveness.OnUDPReceived(c, d.clock.Now())
				return nil
			}
		}

		c, reply, err := d.handleCryptoHandshake(buf)
		if err != nil {
			return err
		}
		d.tblSetUDPAddr(c, src)
		liveness.OnUDPReceived(c, d.clock.Now())
		if reply == nil {
			return nil
		}
		return d.udp.SendUDP(src, reply)

	case domain.KindCryptoData:
		c, err := d.tblGetByUDPAddr(src)
		if err != nil {
			return err
		}
		liveness.OnUDPReceived(c, d.clock.Now())
		return d.processCryptoData(c, buf)

	default:
		return domain.ErrMalformedPacket
	}
}

// HandleRelayPacket routes a payload received through a relay connection
// identified by relayID. Every relayed payload is handled as a CryptoData
// packet; cookie and handshake packets are not dispatched here, so a
// peer reachable only through a relay cannot complete its handshake.
func (d *Dispatcher) HandleRelayPacket(relayID uint64, peerKey domain.PublicKey, buf []byte) error {
	c, err := d.tblGetByRealPK(peerKey)
	if err != nil {
		return err
	}
	c.RelayID = relayID
	c.HasRelay = true
	liveness.OnRelayReceived(c, d.clock.Now())
	return d.processCryptoData(c, buf)
}

// processCryptoData opens an inbound CryptoData packet, delivers
// everything now ready for the host, and handles embedded control kinds
// (request, kill) without surfacing them as host-visible messages.
func (d *Dispatcher) processCryptoData(c *session.Connection, buf []byte) error {
	_, wasNotConfirmed := c.Status.(*session.NotConfirmed)

	now := d.clock.Now()
	delivered, err := reliability.HandleCryptoData(c, buf, now)
	if err != nil {
		return err
	}
	c.PacketsReceivedSinceTick++

	if wasNotConfirmed && c.IsEstablished() {
		d.sink.Emit(domain.Event{Kind: domain.EventEstablished, PeerKey: c.PeerRealPK})
		// Confirm receipt so the peer can retire its own handshake retry
		// timer even if it has nothing else to send yet.
		if pkt, err := reliability.SubmitLossy(c, domain.KindHandshakeComplete, nil); err == nil {
			_ = d.send(c, pkt)
		}
	}

	for _, msg := range delivered {
		switch msg.Kind {
		case domain.KindRequest:
			// Marks the named SendArray entries Requested; DrainSendArray
			// picks them up, paced, on the next Tick.
			if err := reliability.HandleRequestPacket(c, msg.Payload, now); err != nil {
				d.logger.Printf("dispatcher: handling request packet from %s: %v", c.PeerRealPK, err)
			}
		case domain.KindKill:
			d.tblDelete(c)
			d.sink.Emit(domain.Event{Kind: domain.EventLost, PeerKey: c.PeerRealPK})
		case domain.KindPadding, domain.KindHandshakeComplete:
			// no-op: padding shapes traffic only, and handshake-complete is
			// already handled by the wasNotConfirmed check above.
		default:
			d.sink.Emit(domain.Event{Kind: domain.EventMessage, PeerKey: c.PeerRealPK, DataKind: msg.Kind, Payload: msg.Payload})
		}
	}
	return nil
}

// Tick drives the maintenance loop: handshake retries, congestion and
// liveness evaluation, and retransmit-request traffic, sharded across
// connections with errgroup since each connection's tick work touches
// only that connection's own state.
func (d *Dispatcher) Tick(now time.Time) error {
	conns := d.tblAll()

	var g errgroup.Group
	for _, c := range conns {
		c := c
		g.Go(func() error {
			d.tickConnection(c, now)
			return nil
		})
	}
	_ = g.Wait()
	return nil
}

// tickConnection runs the per-connection maintenance work in order: a
// handshake-phase retry or timeout if one is due, then, once a session
// key exists, update the congestion stats from what happened since the
// last tick, send paced data from SendArray, send a retransmit request if
// this side has a gap to report, then send a direct-path UDP probe if
// one is due.
func (d *Dispatcher) tickConnection(c *session.Connection, now time.Time) {
	if session.RetryDue(c, &d.cfg, now) {
		d.retryHandshake(c, now)
	}

	if !c.HasSessionKey() {
		return
	}

	congestion.Tick(c, &d.cfg, now, c.PacketsReceivedSinceTick, c.PacketsSentSinceTick, c.PacketsResentSinceTick)
	c.PacketsReceivedSinceTick = 0
	c.PacketsSentSinceTick = 0
	c.PacketsResentSinceTick = 0

	budgetFloat := c.Congestion.PacketSendRate*d.cfg.CongestionTickInterval.Seconds() + c.Congestion.SendBudgetCarry
	budget := int(budgetFloat)
	c.Congestion.SendBudgetCarry = budgetFloat - float64(budget)
	packets, sentCount, resentCount := reliability.DrainSendArray(c, budget, now)
	c.PacketsSentSinceTick += sentCount
	c.PacketsResentSinceTick += resentCount
	for _, pkt := range packets {
		_ = d.send(c, pkt)
	}

	if now.Sub(c.RequestPacketSentAt) >= congestion.RequestInterval(&d.cfg, c.RecvArray.Len(), c.Congestion.PacketRecvRate) {
		if pkt, ok := reliability.BuildRequestPacket(c); ok {
			_ = d.send(c, pkt)
		}
		c.RequestPacketSentAt = now
	}

	if liveness.ShouldProbeUDP(c, &d.cfg, now) {
		if pkt, err := reliability.SubmitLossy(c, domain.KindPadding, nil); err == nil {
			_ = d.udp.SendUDP(c.UDPAddr, pkt)
		}
		liveness.RecordUDPAttempt(c, now)
	}
}

// retryHandshake resends whatever packet the connection's current phase
// is waiting to have acknowledged, tearing the connection down if it has
// exhausted its retry budget.
func (d *Dispatcher) retryHandshake(c *session.Connection, now time.Time) {
	if err := session.RecordAttempt(c, &d.cfg, now); err != nil {
		d.tblDelete(c)
		d.sink.Emit(domain.Event{Kind: domain.EventLost, PeerKey: c.PeerRealPK, Reason: err})
		return
	}

	switch c.Status.(type) {
	case *session.CookieRequesting:
		pkt, err := d.buildCookieRequest(c)
		if err != nil {
			return
		}
		_ = d.udp.SendUDP(c.UDPAddr, pkt)

	case *session.HandshakeSending, *session.NotConfirmed:
		pkt, err := d.sealHandshakePacket(c)
		if err != nil {
			// NotConfirmed keeps the shared key but not the session key
			// pair and cookie a CryptoHandshake is resealed from; it relies
			// on the peer's own handshake retry instead, so nothing to
			// send here.
			return
		}
		_ = d.send(c, pkt)
	}
}
