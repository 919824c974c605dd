package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"code.dogecoin.org/governor"
	"github.com/cenkalti/backoff/v4"
	"github.com/davecgh/go-spew/spew"

	"code.dogecoin.org/bittune/internal/metrics"
	"code.dogecoin.org/bittune/internal/spec"
	"code.dogecoin.org/bittune/pkg/checksum"
	"code.dogecoin.org/bittune/pkg/msg"
)

// Oldest protocol version we talk to (the version that introduced verack).
const MinPeerVersion = 209

// Limit on the version/verack exchange.
const HandshakeTimeout = 30 * time.Second

// Wait between store queries when no peer is available.
const PeerRetryDelay = 5 * time.Second

var (
	ErrSelfConnection = errors.New("connected to self")
	ErrPeerRejected   = errors.New("peer rejected the handshake")
	ErrObsoletePeer   = errors.New("peer protocol version too old")
	ErrProtocol       = errors.New("protocol violation")
)

// Config is what we announce in our version message, plus connection limits.
type Config struct {
	Magic           msg.Magic
	ProtocolVersion int32
	Services        msg.ServicesList
	UserAgent       string
	StartHeight     int32
	Relay           bool
	DialTimeout     time.Duration
	MaxSessionTime  time.Duration // zero: no limit
	MaxPayloadSize  uint32
}

func New(store spec.Store, fixed spec.Address, cfg Config, tracker *Tracker, m *metrics.Metrics, logger *slog.Logger) *Collector {
	return &Collector{store: store, fixed: fixed, cfg: cfg, tracker: tracker, metrics: m, logger: logger, log: logger}
}

// Collector keeps one peer connection: it chooses a peer, performs the
// version handshake, then answers pings and logs what the peer sends
// until the session ends, and starts over.
type Collector struct {
	governor.ServiceCtx
	store   spec.Store
	fixed   spec.Address // connect only to this peer if valid
	cfg     Config
	tracker *Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
	log     *slog.Logger // logger with the service name
	mutex   sync.Mutex
	conn    net.Conn
}

// one connected peer
type peer struct {
	conn     net.Conn
	r        *bufio.Reader
	addr     spec.Address
	deadline time.Time // end of session, zero if none
	log      *slog.Logger
}

func (c *Collector) Stop() {
	c.mutex.Lock()
	conn := c.conn
	c.mutex.Unlock()

	if conn != nil {
		// must close net.Conn to interrupt blocking read/write.
		conn.Close()
	}
}

func (c *Collector) Run() {
	c.log = c.logger.With("service", c.ServiceName)
	sctx := c.store.WithCtx(c.Context)
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 10 * time.Second
	retry.MaxInterval = 5 * time.Minute
	retry.MaxElapsedTime = 0 // never give up
	retry.Reset()
	for {
		remote, ok := c.choosePeer(sctx)
		if !ok {
			return // stopping
		}
		connected, err := c.collect(remote, sctx)
		if !c.fixed.IsValid() {
			c.tracker.UnlockPeer(remote)
		}
		if connected {
			retry.Reset()
		}
		if err != nil && !c.Stopping() {
			c.log.Info("session ended", "peer", remote.String(), "err", err)
		}
		// avoid spamming on connect errors
		if c.Sleep(retry.NextBackOff()) {
			// context was cancelled
			return
		}
	}
}

func (c *Collector) choosePeer(sctx spec.StoreCtx) (spec.Address, bool) {
	if c.fixed.IsValid() {
		return c.fixed, !c.Stopping()
	}
	for !c.Stopping() {
		addr, err := sctx.ChoosePeer()
		if err != nil {
			c.log.Error("cannot choose peer", "err", err)
		} else if addr.IsValid() && c.tracker.LockPeer(addr) {
			return addr, true
		}
		// none available, wait for discovery or another collector
		if c.Sleep(PeerRetryDelay) {
			break
		}
	}
	return spec.Address{}, false
}

// collect dials remote and runs one session. connected is true if the
// handshake completed.
func (c *Collector) collect(remote spec.Address, sctx spec.StoreCtx) (connected bool, err error) {
	c.log.Info("connecting to peer", "peer", remote.String())
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(c.Context, "tcp", remote.String())
	if err != nil {
		c.metrics.Handshakes.WithLabelValues("dial_failed").Inc()
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	c.mutex.Lock()
	c.conn = conn // for shutdown
	c.mutex.Unlock()
	defer func() {
		c.mutex.Lock()
		c.conn = nil
		c.mutex.Unlock()
	}()
	if c.Stopping() {
		return false, nil // Stop was called before c.conn was set
	}

	return c.serve(c.Context, conn, remote, sctx)
}

// Serve runs the handshake and message loop on an established
// connection until it fails or is closed.
func (c *Collector) Serve(ctx context.Context, conn net.Conn, remote spec.Address) error {
	_, err := c.serve(ctx, conn, remote, c.store.WithCtx(ctx))
	return err
}

func (c *Collector) serve(ctx context.Context, conn net.Conn, remote spec.Address, sctx spec.StoreCtx) (bool, error) {
	p := &peer{
		conn: conn,
		r:    bufio.NewReader(conn),
		addr: remote,
		log:  c.log.With("peer", remote.String()),
	}
	// set a time limit on the whole session
	if c.cfg.MaxSessionTime != 0 {
		p.deadline = time.Now().Add(c.cfg.MaxSessionTime)
	}

	ver, err := c.handshake(p)
	if err != nil {
		c.metrics.Handshakes.WithLabelValues(outcome(err)).Inc()
		return false, fmt.Errorf("handshake: %w", err)
	}
	c.metrics.Handshakes.WithLabelValues("ok").Inc()
	c.metrics.ConnectedPeers.Inc()
	defer c.metrics.ConnectedPeers.Dec()
	p.log.Info("handshake complete", "version", ver.Version, "agent", ver.UserAgent, "services", ver.Services.String(), "height", ver.StartHeight)

	// successful connection: record the peer's version.
	err = sctx.UpdatePeerVersion(remote, spec.PeerVersion{
		Version:  ver.Version,
		Services: ver.Services.Word(),
		Agent:    ver.UserAgent,
		Height:   ver.StartHeight,
	})
	if err != nil {
		p.log.Error("cannot store peer version", "err", err)
	}

	return true, c.listen(ctx, p)
}

// handshake sends our version, then reads until the peer has sent both
// its version and its verack. Messages without a decoder (wtxidrelay,
// sendaddrv2 and the like) may arrive in between and are skipped.
func (c *Collector) handshake(p *peer) (msg.VersionMsg, error) {
	limit := time.Now().Add(HandshakeTimeout)
	if !p.deadline.IsZero() && p.deadline.Before(limit) {
		limit = p.deadline
	}
	p.conn.SetDeadline(limit)

	nonce := rand.Uint64()
	c.tracker.AddNonce(nonce)
	if err := c.send(p, c.makeVersion(p, nonce)); err != nil {
		return msg.VersionMsg{}, err
	}

	var version *msg.VersionMsg
	acked := false
	for version == nil || !acked {
		m, raw, err := c.read(p)
		if err != nil {
			if errors.Is(err, msg.ErrUnsupportedCommand) {
				c.dump(p, m.Header, raw)
				continue
			}
			return msg.VersionMsg{}, err
		}
		switch pl := m.Payload.(type) {
		case msg.VersionMsg:
			if version != nil {
				return msg.VersionMsg{}, errors.Join(ErrProtocol, errors.New("duplicate version message"))
			}
			if c.tracker.IsOwnNonce(pl.Nonce) {
				return msg.VersionMsg{}, ErrSelfConnection
			}
			if pl.Version < MinPeerVersion {
				return msg.VersionMsg{}, errors.Join(ErrObsoletePeer, fmt.Errorf("version %d", pl.Version))
			}
			version = &pl
			if err := c.send(p, msg.VerackMsg{}); err != nil {
				return msg.VersionMsg{}, err
			}
		case msg.VerackMsg:
			acked = true
		case msg.PingMsg:
			if err := c.send(p, msg.PongMsg{Nonce: pl.Nonce}); err != nil {
				return msg.VersionMsg{}, err
			}
		case msg.RejectMsg:
			return msg.VersionMsg{}, errors.Join(ErrPeerRejected, fmt.Errorf("%s %s: %s", pl.Code, pl.Message, pl.Reason))
		default:
			p.log.Debug("ignored during handshake", "command", m.Header.Command)
		}
	}

	// back to the session limit
	p.conn.SetDeadline(p.deadline)
	return *version, nil
}

// listen answers pings and logs everything else until the connection fails.
func (c *Collector) listen(ctx context.Context, p *peer) error {
	for {
		m, raw, err := c.read(p)
		if err != nil {
			switch {
			case errors.Is(err, msg.ErrUnsupportedCommand):
				c.dump(p, m.Header, raw)
				continue
			case errors.Is(err, msg.ErrChecksumMismatch), m.Header.Command != "":
				// the payload was consumed: the stream is still in sync.
				p.log.Warn("dropped message", "err", err)
				continue
			}
			return err
		}
		switch pl := m.Payload.(type) {
		case msg.PingMsg:
			// keep-alive
			if err := c.send(p, msg.PongMsg{Nonce: pl.Nonce}); err != nil {
				return err
			}
		case msg.RejectMsg:
			p.log.Warn("reject", "code", pl.Code.String(), "message", pl.Message, "reason", pl.Reason)
		default:
			p.log.Debug("received", "command", m.Header.Command, "size", m.Header.Length)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Collector) makeVersion(p *peer, nonce uint64) msg.VersionMsg {
	return msg.VersionMsg{
		Version:   c.cfg.ProtocolVersion,
		Services:  c.cfg.Services,
		Timestamp: time.Now(),
		// the services we expect the peer to have are unknown until it replies.
		RecvAddr: msg.NewNetAddr(p.addr.Host, p.addr.Port, msg.NewServicesList()),
		// NOTE: peers ignore this address field.
		FromAddr:    msg.NetAddrFromTCP(p.conn.LocalAddr(), c.cfg.Services),
		Nonce:       nonce,
		UserAgent:   c.cfg.UserAgent,
		StartHeight: c.cfg.StartHeight,
		Relay:       c.cfg.Relay,
	}
}

func (c *Collector) send(p *peer, payload msg.Payload) error {
	_, err := msg.WriteMessage(p.conn, c.cfg.Magic, payload, checksum.Sum)
	if err != nil {
		return fmt.Errorf("sending %s: %w", payload.Command(), err)
	}
	c.metrics.MessagesSent.WithLabelValues(payload.Command().String()).Inc()
	p.log.Debug("sent", "command", payload.Command())
	return nil
}

func (c *Collector) read(p *peer) (msg.Message, []byte, error) {
	m, raw, err := msg.ReadMessage(p.r, c.cfg.Magic, c.cfg.MaxPayloadSize, checksum.Sum)
	if m.Header.Command != "" {
		c.metrics.MessagesReceived.WithLabelValues(m.Header.Command.String()).Inc()
	}
	if err != nil {
		c.metrics.ReadErrors.WithLabelValues(metrics.ErrorKind(err)).Inc()
	}
	return m, raw, err
}

// dump logs a message we cannot decode, with a hex dump of its payload.
func (c *Collector) dump(p *peer, hdr msg.MessageHeader, raw []byte) {
	if !p.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	p.log.Debug("unsupported message", "command", hdr.Command, "size", len(raw), "payload", spew.Sdump(raw))
}

// outcome labels a failed handshake for the handshakes counter.
func outcome(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrSelfConnection):
		return "self"
	case errors.Is(err, ErrPeerRejected):
		return "rejected"
	case errors.Is(err, ErrObsoletePeer):
		return "obsolete"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "failed"
	}
}
