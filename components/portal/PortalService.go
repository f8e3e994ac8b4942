package main

import (
	"crypto/tls"
	"fmt"
	"net"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xtaci/kcp-go"
	"golang.org/x/net/websocket"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/adapter/telnet"
	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/config"
	"github.com/moormud/moormud/engine/consts"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/link"
	"github.com/moormud/moormud/engine/mmlog"
	"github.com/moormud/moormud/engine/mmutils"
	"github.com/moormud/moormud/engine/netutil"
	"github.com/moormud/moormud/engine/proto"
	"github.com/moormud/moormud/engine/session"
)

const (
	ceEnvelope = iota
	ceNegotiated
	ceClosed
	ceSweep
)

type clientEvent struct {
	cp       *ClientProxy
	what     int
	envelope *envelope.Envelope
}

// PortalService is the edge process core: it terminates client
// connections of every supported transport, keeps their sessions alive
// across world restarts and pumps envelopes over the world link.
type PortalService struct {
	config     *config.PortalConfig
	listenAddr string

	clientProxies     map[common.SessionID]*ClientProxy
	clientProxiesLock sync.RWMutex
	registry          *session.Registry
	coordinator       *link.Coordinator
	eventQueue        *xnsyncutil.SyncQueue

	terminating xnsyncutil.AtomicBool
	terminated  *xnsyncutil.OneTimeCond
	tlsConfig   *tls.Config
}

func newPortalService(cfg *config.PortalConfig) *PortalService {
	ps := &PortalService{
		config:        cfg,
		clientProxies: map[common.SessionID]*ClientProxy{},
		eventQueue:    xnsyncutil.NewSyncQueue(),
		terminated:    xnsyncutil.NewOneTimeCond(),
	}
	ps.registry = session.NewRegistry(ps)
	ps.coordinator = link.NewCoordinator(linkAddr(), config.GetLink().PendingQueueMaxLen, ps)
	return ps
}

func (ps *PortalService) String() string {
	return fmt.Sprintf("PortalService<%s>", ps.listenAddr)
}

func (ps *PortalService) run() {
	cfg := ps.config
	mmlog.Infof("Compress connection: %v", cfg.CompressConnection)

	if cfg.TLSPort != 0 {
		ps.setupTLSConfig(cfg)
	}

	if cfg.Port != 0 {
		ps.listenAddr = fmt.Sprintf("%s:%d", cfg.Ip, cfg.Port)
		go netutil.ServeTCPForever(ps.listenAddr, ps)
	}
	if cfg.TLSPort != 0 {
		go ps.serveTLS(fmt.Sprintf("%s:%d", cfg.Ip, cfg.TLSPort))
	}
	if cfg.KCPPort != 0 {
		go ps.serveKCP(fmt.Sprintf("%s:%d", cfg.Ip, cfg.KCPPort))
	}
	go ps.idleSweepRoutine()

	ps.coordinator.Start()
	mmutils.RepeatUntilPanicless(ps.handleEventRoutine)
}

func (ps *PortalService) setupTLSConfig(cfg *config.PortalConfig) {
	cfgdir := config.GetConfigDir()
	rsaCert := path.Join(cfgdir, cfg.RSACertificate)
	rsaKey := path.Join(cfgdir, cfg.RSAKey)
	cert, err := tls.LoadX509KeyPair(rsaCert, rsaKey)
	if err != nil {
		mmlog.Panic(errors.Wrap(err, "load RSA key & certificate failed"))
	}

	ps.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
	}
}

// ServeTCPConnection handles plain telnet connections from clients
func (ps *PortalService) ServeTCPConnection(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetWriteBuffer(consts.CLIENT_PROXY_WRITE_BUFFER_SIZE)
		tcpConn.SetReadBuffer(consts.CLIENT_PROXY_READ_BUFFER_SIZE)
		tcpConn.SetNoDelay(consts.CLIENT_PROXY_SET_TCP_NO_DELAY)
	}

	ps.handleClientConnection(conn, adapter.KindTelnet)
}

func (ps *PortalService) serveTLS(addr string) {
	ln, err := tls.Listen("tcp", addr, ps.tlsConfig)
	if err != nil {
		mmlog.Panic(err)
	}
	mmlog.Infof("Listening on TLS: %s ...", addr)

	netutil.ServeListenerForever(ln, tlsServerDelegate{ps})
}

type tlsServerDelegate struct {
	ps *PortalService
}

func (d tlsServerDelegate) ServeTCPConnection(conn net.Conn) {
	d.ps.handleClientConnection(conn, adapter.KindTelnetTLS)
}

func (ps *PortalService) serveKCP(addr string) {
	kcpListener, err := kcp.ListenWithOptions(addr, nil, 10, 3)
	if err != nil {
		mmlog.Panic(err)
	}
	mmlog.Infof("Listening on KCP: %s ...", addr)

	mmutils.RepeatUntilPanicless(func() {
		for {
			conn, err := kcpListener.AcceptKCP()
			if err != nil {
				mmlog.Panic(err)
			}
			go ps.handleKCPConn(conn)
		}
	})
}

func (ps *PortalService) handleKCPConn(conn *kcp.UDPSession) {
	mmlog.Infof("KCP connection from %s", conn.RemoteAddr())

	conn.SetReadBuffer(consts.CLIENT_PROXY_READ_BUFFER_SIZE)
	conn.SetWriteBuffer(consts.CLIENT_PROXY_WRITE_BUFFER_SIZE)
	conn.SetStreamMode(true)
	conn.SetWriteDelay(true)
	conn.SetNoDelay(1, 10, 2, 1)
	ps.handleClientConnection(conn, adapter.KindTelnetKCP)
}

// handleWebSocketConn handles JSON-array transport clients
func (ps *PortalService) handleWebSocketConn(wsConn *websocket.Conn) {
	mmlog.Debugf("WebSocket connection: %s", wsConn.Request().RemoteAddr)
	if ps.terminating.Load() {
		wsConn.Close()
		return
	}

	cp := newWebSocketClientProxy(wsConn)
	ps.startClientProxy(cp)
	// the websocket transport has nothing to negotiate
	ps.eventQueue.Push(clientEvent{cp: cp, what: ceNegotiated})
	cp.serve() // websocket.Handler closes the conn on return
}

func (ps *PortalService) handleClientConnection(netconn net.Conn, kind adapter.Kind) {
	if ps.terminating.Load() {
		// server terminating, not accepting more connections
		netconn.Close()
		return
	}

	cp := newClientProxy(netconn, kind, ps.config)
	ps.startClientProxy(cp)

	// register the session once the negotiation window passed, even if
	// the client stays quiet; a first input line registers it earlier
	time.AfterFunc(consts.TELNET_NEGOTIATION_WINDOW, func() {
		ps.eventQueue.Push(clientEvent{cp: cp, what: ceNegotiated})
	})

	go cp.serve()
}

func (ps *PortalService) startClientProxy(cp *ClientProxy) {
	ps.clientProxiesLock.Lock()
	ps.clientProxies[cp.session.ID] = cp
	ps.clientProxiesLock.Unlock()

	if consts.DEBUG_CLIENTS {
		mmlog.Debugf("%s: client %s connected", ps, cp)
	}
}

func (ps *PortalService) getClientProxy(id common.SessionID) *ClientProxy {
	ps.clientProxiesLock.RLock()
	defer ps.clientProxiesLock.RUnlock()
	return ps.clientProxies[id]
}

// idleSweepRoutine periodically asks the event loop to drop idle sessions
func (ps *PortalService) idleSweepRoutine() {
	if ps.config.IdleTimeout <= 0 {
		return
	}
	for {
		time.Sleep(consts.PORTAL_IDLE_SWEEP_INTERVAL)
		ps.eventQueue.Push(clientEvent{what: ceSweep})
	}
}

// handleEventRoutine is the portal's single event loop: every session
// state change happens here
func (ps *PortalService) handleEventRoutine() {
	for {
		item := ps.eventQueue.Pop()
		if item == nil {
			// queue closed, portal is terminating
			ps.coordinator.Stop()
			ps.terminated.Signal()
			return
		}

		ev := item.(clientEvent)
		switch ev.what {
		case ceEnvelope:
			ps.handleClientEnvelope(ev.cp, ev.envelope)
		case ceNegotiated:
			ps.registerSession(ev.cp)
		case ceClosed:
			ps.handleClientClose(ev.cp)
		case ceSweep:
			ps.sweepIdleSessions()
		}
	}
}

// registerSession freezes the session's capabilities and announces it
// to the world. Idempotent: only the first call registers.
func (ps *PortalService) registerSession(cp *ClientProxy) {
	if cp.registered || cp.closed.Load() {
		return
	}

	if ta, ok := cp.adapter.(*telnet.Adapter); ok {
		ta.FreezeCaps()
	}
	cp.session.Caps = cp.adapter.Caps()
	cp.registered = true
	ps.registry.Register(cp.session)
	mmlog.Infof("%s: session %s registered, kind=%s caps=%v",
		ps, cp.session.ID, cp.session.Kind, cp.session.Caps.ToList())
}

func (ps *PortalService) handleClientEnvelope(cp *ClientProxy, e *envelope.Envelope) {
	ps.registerSession(cp) // a first line ends negotiation early
	cp.session.Touch()

	// the portal answers transport-level pings itself
	if e.Name == "ping" {
		cp.SendEnvelope(envelope.New("pong", e.Args, e.Kwargs))
		return
	}

	ps.coordinator.SendEnvelope(cp.session.ID, e)
}

func (ps *PortalService) handleClientClose(cp *ClientProxy) {
	ps.clientProxiesLock.Lock()
	delete(ps.clientProxies, cp.session.ID)
	ps.clientProxiesLock.Unlock()

	if cp.registered {
		ps.registry.Remove(cp.session.ID)
	}
	if consts.DEBUG_CLIENTS {
		mmlog.Debugf("%s: client %s disconnected", ps, cp)
	}
}

func (ps *PortalService) sweepIdleSessions() {
	for _, s := range ps.registry.SweepIdle(ps.config.IdleTimeout) {
		if cp := ps.getClientProxy(s.ID); cp != nil {
			mmlog.Infof("%s: kicking idle session %s (%s)", ps, s.ID, s.PeerAddr)
			cp.SendEnvelope(envelope.Text("Idle timeout, goodbye."))
			cp.Close()
		}
	}
}

// NotifySessionOpen implements session.Notifier
func (ps *PortalService) NotifySessionOpen(s *session.Session) {
	ps.coordinator.SendSessionOpen(s.Projection())
}

// NotifySessionClose implements session.Notifier
func (ps *PortalService) NotifySessionClose(s *session.Session) {
	ps.coordinator.SendSessionClose(s.ID)
}

// SessionSnapshot implements link.Delegate
func (ps *PortalService) SessionSnapshot() []*proto.SessionProjection {
	projs := make([]*proto.SessionProjection, 0, ps.registry.Count())
	ps.registry.ForEach(func(s *session.Session) {
		projs = append(projs, s.Projection())
	})
	return projs
}

// HandleWorldEnvelope implements link.Delegate
func (ps *PortalService) HandleWorldEnvelope(id common.SessionID, e *envelope.Envelope) {
	cp := ps.getClientProxy(id)
	if cp == nil {
		// client already disconnected; the world learns it from the
		// session close already on the wire
		return
	}
	cp.SendEnvelope(e)
}

// HandleSessionKick implements link.Delegate
func (ps *PortalService) HandleSessionKick(id common.SessionID) {
	if cp := ps.getClientProxy(id); cp != nil {
		cp.Close()
	}
}

// HandleWorldRestarting implements link.Delegate
func (ps *PortalService) HandleWorldRestarting() {
	mmlog.Infof("%s: world announced a restart, %d session(s) will be held", ps, ps.registry.Count())
}

// HandleWorldLoad implements link.Delegate
func (ps *PortalService) HandleWorldLoad(info *proto.WorldLoadInfo) {
	mmlog.Debugf("%s: world load: cpu=%.1f%%", ps, info.CPUPercent)
}

// HandleLinkStateChange implements link.Delegate
func (ps *PortalService) HandleLinkStateChange(state link.State) {
	if state == link.Live {
		mmlog.Infof("%s: world link is live, %d session(s) attached", ps, ps.registry.Count())
	}
}

func (ps *PortalService) terminate() {
	ps.terminating.Store(true)

	ps.clientProxiesLock.RLock()
	proxies := make([]*ClientProxy, 0, len(ps.clientProxies))
	for _, cp := range ps.clientProxies {
		proxies = append(proxies, cp)
	}
	ps.clientProxiesLock.RUnlock()
	for _, cp := range proxies {
		cp.Close()
	}

	ps.eventQueue.Close()
}
