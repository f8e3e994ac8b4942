// Package world runs the game logic process: it listens for the portal
// link, mirrors the portal's session registry and dispatches envelopes
// to the game delegate on a single service goroutine.
//
// The world is the restartable half of the pair. All connection state
// lives in the portal; after a restart the world rebuilds its registry
// from the portal's session snapshot and play continues.
package world

import (
	"net"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	timer "github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/netconnutil"

	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/consts"
	"github.com/moormud/moormud/engine/crontab"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/mmlog"
	"github.com/moormud/moormud/engine/netutil"
	"github.com/moormud/moormud/engine/opmon"
	"github.com/moormud/moormud/engine/proto"
	"github.com/moormud/moormud/engine/session"
)

const (
	rsNotRunning = iota
	rsRunning
	rsTerminating
	rsTerminated
)

type packetQueueItem struct {
	lc      *proto.LinkConnection
	msgtype proto.MsgType // MT_INVALID marks a closed link
	packet  *netutil.Packet
}

// Service is the world process core
type Service struct {
	listenAddr string
	delegate   IWorldDelegate
	registry   *session.Registry

	packetQueue chan packetQueueItem
	quit        chan struct{}
	runState    xnsyncutil.AtomicInt

	lcLock sync.Mutex
	lc     *proto.LinkConnection

	// service goroutine only
	handlers      map[string]InstructionHandler
	syncing       bool
	syncRemaining int
	syncSeen      common.SessionIDSet

	loadReportInterval time.Duration
}

// NewService creates a world service listening for the portal at listenAddr
func NewService(listenAddr string, delegate IWorldDelegate, loadReportInterval time.Duration) *Service {
	return &Service{
		listenAddr:         listenAddr,
		delegate:           delegate,
		registry:           session.NewRegistry(nil),
		packetQueue:        make(chan packetQueueItem, consts.WORLD_SERVICE_PACKET_QUEUE_SIZE),
		quit:               make(chan struct{}),
		handlers:           map[string]InstructionHandler{},
		loadReportInterval: loadReportInterval,
	}
}

// Run serves the world until Shutdown; it blocks
func (ws *Service) Run() {
	ws.runState.Store(rsRunning)

	go netutil.ServeTCPForever(ws.listenAddr, ws)

	crontab.Initialize()
	ws.delegate.OnReady(ws)
	if ws.loadReportInterval > 0 {
		timer.AddTimer(ws.loadReportInterval, ws.reportLoad)
	}

	ws.serveRoutine()
}

// RegisterInstruction binds a handler to an instruction name. Register
// from OnReady; the map is read on the service goroutine only.
func (ws *Service) RegisterInstruction(name string, handler InstructionHandler) {
	ws.handlers[name] = handler
}

// Registry exposes the world's session mirror
func (ws *Service) Registry() *session.Registry {
	return ws.registry
}

// ServeTCPConnection serves one portal link connection
func (ws *Service) ServeTCPConnection(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetWriteBuffer(consts.LINK_WRITE_BUFFER_SIZE)
		tcpConn.SetReadBuffer(consts.LINK_READ_BUFFER_SIZE)
	}

	lc := proto.NewLinkConnection(netconnutil.NewBufferedConn(
		netconnutil.NewNoTempErrorConn(conn),
		consts.BUFFERED_READ_BUFFSIZE, consts.BUFFERED_WRITE_BUFFSIZE))
	ws.setPortalLink(lc)

	for {
		var msgtype proto.MsgType
		pkt, err := lc.Recv(&msgtype)
		if err != nil {
			if !netutil.IsConnectionError(err) {
				mmlog.Errorf("world: read portal link failed: %v", err)
			}
			ws.packetQueue <- packetQueueItem{lc: lc, msgtype: proto.MT_INVALID}
			return
		}
		ws.packetQueue <- packetQueueItem{lc: lc, msgtype: msgtype, packet: pkt}
	}
}

func (ws *Service) setPortalLink(lc *proto.LinkConnection) {
	ws.lcLock.Lock()
	prev := ws.lc
	ws.lc = lc
	ws.lcLock.Unlock()

	if prev != nil && !prev.IsClosed() {
		mmlog.Warnf("world: portal reconnected from %s, dropping previous link", lc.RemoteAddr())
		prev.Close()
	} else {
		mmlog.Infof("world: portal link established from %s", lc.RemoteAddr())
	}
}

func (ws *Service) portalLink() *proto.LinkConnection {
	ws.lcLock.Lock()
	defer ws.lcLock.Unlock()
	return ws.lc
}

func (ws *Service) serveRoutine() {
	ticker := time.NewTicker(consts.WORLD_SERVICE_TICK_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case item := <-ws.packetQueue:
			ws.handleLinkMsg(item)
			if item.packet != nil {
				item.packet.Release()
			}
		case <-ticker.C:
			timer.Tick()
			ws.flushLink()
		case <-ws.quit:
			ws.runState.Store(rsTerminated)
			return
		}
	}
}

func (ws *Service) handleLinkMsg(item packetQueueItem) {
	if item.lc != ws.portalLink() {
		// a message from a superseded link; the portal already has a
		// newer connection carrying a fresh snapshot
		return
	}
	lc, pkt := item.lc, item.packet

	switch item.msgtype {
	case proto.MT_INVALID:
		ws.handleLinkClosed(lc)

	case proto.MT_SYNC_BEGIN:
		ws.handleSyncBegin(lc, int(pkt.ReadUint32()))

	case proto.MT_SESSION_SYNC:
		var proj proto.SessionProjection
		pkt.ReadData(&proj)
		ws.handleSessionSync(lc, &proj)

	case proto.MT_SESSION_OPEN:
		var proj proto.SessionProjection
		pkt.ReadData(&proj)
		ws.handleSessionOpen(&proj)

	case proto.MT_SESSION_CLOSE:
		ws.handleSessionClose(pkt.ReadSessionID())

	case proto.MT_SESSION_ENVELOPE:
		id := pkt.ReadSessionID()
		var e envelope.Envelope
		pkt.ReadData(&e)
		ws.handleEnvelope(id, &e)

	case proto.MT_HEARTBEAT:
		// nothing to do

	default:
		mmlog.Errorf("world: unexpected message type %s from portal", item.msgtype)
	}
}

func (ws *Service) handleLinkClosed(lc *proto.LinkConnection) {
	lc.Close()
	ws.lcLock.Lock()
	if ws.lc == lc {
		ws.lc = nil
	}
	ws.lcLock.Unlock()
	// sessions stay registered: the portal holds the clients and will
	// resync when it reconnects
	mmlog.Warnf("world: portal link lost, %d session(s) kept waiting", ws.registry.Count())
}

func (ws *Service) handleSyncBegin(lc *proto.LinkConnection, count int) {
	mmlog.Infof("world: session snapshot of %d session(s) incoming", count)
	ws.syncing = true
	ws.syncRemaining = count
	ws.syncSeen = common.SessionIDSet{}
	if count == 0 {
		ws.finishSync(lc)
	}
}

func (ws *Service) handleSessionSync(lc *proto.LinkConnection, proj *proto.SessionProjection) {
	if !ws.syncing {
		mmlog.Errorf("world: MT_SESSION_SYNC outside a snapshot, ignored")
		return
	}

	id := common.SessionID(proj.ID)
	ws.syncSeen.Add(id)
	if ws.registry.Get(id) == nil {
		// replaying a session the world never saw, or saw before its
		// own restart
		s := session.FromProjection(proj)
		ws.registry.Upsert(s)
		ws.delegate.OnSessionConnected(s)
	}

	ws.syncRemaining--
	if ws.syncRemaining <= 0 {
		ws.finishSync(lc)
	}
}

// finishSync drops sessions missing from the snapshot and acknowledges
func (ws *Service) finishSync(lc *proto.LinkConnection) {
	ws.syncing = false
	for _, s := range ws.registry.Snapshot() {
		if !ws.syncSeen.Contains(s.ID) {
			ws.registry.Remove(s.ID)
			ws.delegate.OnSessionDisconnected(s)
		}
	}
	ws.syncSeen = nil

	lc.SendSyncDone()
	lc.Flush("syncdone")
	mmlog.Infof("world: snapshot applied, %d live session(s)", ws.registry.Count())
}

func (ws *Service) handleSessionOpen(proj *proto.SessionProjection) {
	id := common.SessionID(proj.ID)
	if ws.registry.Get(id) != nil {
		return
	}
	s := session.FromProjection(proj)
	ws.registry.Upsert(s)
	ws.delegate.OnSessionConnected(s)
}

func (ws *Service) handleSessionClose(id common.SessionID) {
	if s := ws.registry.Remove(id); s != nil {
		ws.delegate.OnSessionDisconnected(s)
	}
}

func (ws *Service) handleEnvelope(id common.SessionID, e *envelope.Envelope) {
	s := ws.registry.Get(id)
	if s == nil {
		mmlog.Warnf("world: envelope %s for unknown session %s", e.Name, id)
		return
	}
	s.Touch()

	op := opmon.StartOperation("dispatch." + e.Name)
	defer op.Finish(consts.OPMON_WARN_THRESHOLD)

	if e.IsText() {
		ws.delegate.OnText(s, e.TextLine())
		return
	}
	if handler := ws.handlers[e.Name]; handler != nil {
		handler(s, e)
		return
	}
	ws.delegate.OnInstruction(s, e)
}

// Send delivers one envelope to one client session
func (ws *Service) Send(id common.SessionID, e *envelope.Envelope) {
	lc := ws.portalLink()
	if lc == nil {
		mmlog.Warnf("world: dropping envelope %s for %s, no portal link", e.Name, id)
		return
	}
	lc.SendEnvelope(id, e)
}

// SendText delivers one plain text line to one client session
func (ws *Service) SendText(id common.SessionID, line string) {
	ws.Send(id, envelope.Text(line))
}

// Broadcast delivers one envelope to every live session
func (ws *Service) Broadcast(e *envelope.Envelope) {
	lc := ws.portalLink()
	if lc == nil {
		return
	}
	ws.registry.ForEach(func(s *session.Session) {
		lc.SendEnvelope(s.ID, e)
	})
}

// Kick asks the portal to disconnect a client
func (ws *Service) Kick(id common.SessionID) {
	if lc := ws.portalLink(); lc != nil {
		lc.SendSessionClose(id)
	}
}

func (ws *Service) flushLink() {
	lc := ws.portalLink()
	if lc == nil {
		return
	}
	if err := lc.Flush("auto"); err != nil && !netutil.IsConnectionError(err) {
		mmlog.Errorf("world: flush portal link failed: %v", err)
	}
}

// reportLoad sends process load info over the link
func (ws *Service) reportLoad() {
	lc := ws.portalLink()
	if lc == nil {
		return
	}

	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return
	}
	lc.SendWorldLoad(&proto.WorldLoadInfo{CPUPercent: percents[0]})
}

// Shutdown stops the service. With restarting set the portal is told
// to expect the world back, so it holds client sessions instead of
// treating the loss as a crash.
func (ws *Service) Shutdown(restarting bool) {
	ws.runState.Store(rsTerminating)

	if lc := ws.portalLink(); lc != nil {
		if restarting {
			lc.SendWorldRestarting()
		}
		lc.Flush("shutdown")
		lc.Close()
	}
	close(ws.quit)
}
