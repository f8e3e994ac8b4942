// Package link maintains the portal's side of the portal <-> world
// connection: dialing, reconnect backoff, session snapshot replay and
// buffering of messages while the world is away.
//
// The world process is restartable. When the link breaks the portal
// keeps every client connected, queues outbound traffic and replays a
// session snapshot once the world returns, so a world restart is
// invisible to clients except for a pause.
package link

import (
	"net"
	"sync"
	"time"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/netconnutil"

	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/consts"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/mmlog"
	"github.com/moormud/moormud/engine/mmutils"
	"github.com/moormud/moormud/engine/netutil"
	"github.com/moormud/moormud/engine/proto"
)

// State is the link lifecycle state
type State int

const (
	// Disconnected means no connection and no dial in progress yet
	Disconnected State = iota
	// Connecting means a dial or backoff wait is in progress
	Connecting
	// Syncing means the connection is up and the session snapshot is replaying
	Syncing
	// Live means the world acknowledged the snapshot; traffic flows
	Live
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Syncing:
		return "syncing"
	case Live:
		return "live"
	}
	return "invalid"
}

// Delegate is what the coordinator needs from the portal service.
// All calls arrive on the coordinator's receive goroutine.
type Delegate interface {
	// SessionSnapshot returns the projections of all live sessions for
	// snapshot replay
	SessionSnapshot() []*proto.SessionProjection
	// HandleWorldEnvelope delivers one world -> client envelope
	HandleWorldEnvelope(id common.SessionID, e *envelope.Envelope)
	// HandleSessionKick asks the portal to disconnect a client
	HandleSessionKick(id common.SessionID)
	// HandleWorldRestarting announces a planned world restart
	HandleWorldRestarting()
	// HandleWorldLoad delivers periodic world load info
	HandleWorldLoad(info *proto.WorldLoadInfo)
	// HandleLinkStateChange reports every state transition
	HandleLinkStateChange(state State)
}

type pendingMsg struct {
	structural bool
	send       func(lc *proto.LinkConnection) error
}

// Coordinator owns the portal's world connection across world restarts
type Coordinator struct {
	sync.Mutex
	addr       string
	delegate   Delegate
	maxPending int

	state           State
	lc              *proto.LinkConnection
	pending         []pendingMsg
	plannedRestart  bool
	lastHeartbeat   time.Time
	quit            xnsyncutil.AtomicBool
	droppedOverflow int
}

// NewCoordinator creates a coordinator dialing the world at addr.
// maxPending bounds the messages buffered while the link is not live;
// 0 means the default.
func NewCoordinator(addr string, maxPending int, delegate Delegate) *Coordinator {
	if maxPending <= 0 {
		maxPending = consts.LINK_PENDING_QUEUE_MAX_LEN
	}
	return &Coordinator{
		addr:       addr,
		delegate:   delegate,
		maxPending: maxPending,
	}
}

// Start launches the connect loop and the flush loop
func (co *Coordinator) Start() {
	go mmutils.RepeatUntilPanicless(co.connectRoutine)
	go mmutils.RepeatUntilPanicless(co.flushRoutine)
}

// Stop terminates the coordinator and closes the link
func (co *Coordinator) Stop() {
	co.quit.Store(true)
	co.Lock()
	if co.lc != nil {
		co.lc.Close()
	}
	co.Unlock()
}

// State returns the current link state
func (co *Coordinator) State() State {
	co.Lock()
	defer co.Unlock()
	return co.state
}

// PendingLen returns the number of buffered messages
func (co *Coordinator) PendingLen() int {
	co.Lock()
	defer co.Unlock()
	return len(co.pending)
}

func (co *Coordinator) setState(state State) {
	co.Lock()
	changed := co.state != state
	co.state = state
	co.Unlock()
	if changed {
		mmlog.Infof("link: state => %s", state)
		co.delegate.HandleLinkStateChange(state)
	}
}

// connectRoutine dials the world forever with capped exponential backoff
func (co *Coordinator) connectRoutine() {
	backoff := consts.LINK_RECONNECT_BACKOFF_MIN

	for !co.quit.Load() {
		co.setState(Connecting)
		lc, err := co.connect()
		if err != nil {
			mmlog.Errorf("link: connect to world@%s failed: %v, retry in %s", co.addr, err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > consts.LINK_RECONNECT_BACKOFF_MAX {
				backoff = consts.LINK_RECONNECT_BACKOFF_MAX
			}
			continue
		}
		backoff = consts.LINK_RECONNECT_BACKOFF_MIN

		err = co.serveLink(lc)
		lc.Close()

		co.Lock()
		co.lc = nil
		planned := co.plannedRestart
		co.plannedRestart = false
		co.Unlock()
		co.setState(Disconnected)

		if co.quit.Load() {
			return
		}
		if planned {
			mmlog.Infof("link: world is restarting, holding sessions until it returns")
		} else {
			mmlog.Errorf("link: world connection lost: %v, holding sessions until it returns", err)
		}
	}
}

func (co *Coordinator) connect() (*proto.LinkConnection, error) {
	conn, err := net.DialTimeout("tcp", co.addr, consts.LINK_RECONNECT_BACKOFF_MAX)
	if err != nil {
		return nil, err
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetWriteBuffer(consts.LINK_WRITE_BUFFER_SIZE)
		tcpConn.SetReadBuffer(consts.LINK_READ_BUFFER_SIZE)
	}

	return proto.NewLinkConnection(netconnutil.NewBufferedConn(
		netconnutil.NewNoTempErrorConn(conn),
		consts.BUFFERED_READ_BUFFSIZE, consts.BUFFERED_WRITE_BUFFSIZE)), nil
}

// serveLink replays the snapshot and then pumps world messages until
// the connection breaks
func (co *Coordinator) serveLink(lc *proto.LinkConnection) error {
	co.Lock()
	co.lc = lc
	co.Unlock()
	co.setState(Syncing)

	if err := co.replaySnapshot(lc); err != nil {
		return err
	}

	for !co.quit.Load() {
		var msgtype proto.MsgType
		pkt, err := lc.Recv(&msgtype)
		if err != nil {
			return err
		}
		co.handleWorldMsg(msgtype, pkt)
		pkt.Release()
	}
	return nil
}

func (co *Coordinator) replaySnapshot(lc *proto.LinkConnection) error {
	projs := co.delegate.SessionSnapshot()
	mmlog.Infof("link: replaying snapshot of %d session(s) to world@%s", len(projs), co.addr)

	if err := lc.SendSyncBegin(len(projs)); err != nil {
		return err
	}
	for _, proj := range projs {
		if err := lc.SendSessionSync(proj); err != nil {
			return err
		}
	}
	return lc.Flush("snapshot")
}

func (co *Coordinator) handleWorldMsg(msgtype proto.MsgType, pkt *netutil.Packet) {
	switch msgtype {
	case proto.MT_SESSION_ENVELOPE:
		id := pkt.ReadSessionID()
		var e envelope.Envelope
		pkt.ReadData(&e)
		co.delegate.HandleWorldEnvelope(id, &e)

	case proto.MT_SESSION_CLOSE:
		co.delegate.HandleSessionKick(pkt.ReadSessionID())

	case proto.MT_SYNC_DONE:
		co.goLive()

	case proto.MT_WORLD_RESTARTING:
		co.Lock()
		co.plannedRestart = true
		co.Unlock()
		co.delegate.HandleWorldRestarting()

	case proto.MT_WORLD_LOAD:
		var info proto.WorldLoadInfo
		pkt.ReadData(&info)
		co.delegate.HandleWorldLoad(&info)

	case proto.MT_HEARTBEAT:
		// nothing to do

	default:
		mmlog.Errorf("link: unexpected message type %s from world", msgtype)
	}
}

// goLive replays everything buffered while the link was away and only
// then flips the state to Live, all inside one critical section, so a
// concurrent post can never reach the wire ahead of older buffered
// messages for the same session. Runs on the receive goroutine right
// after MT_SYNC_DONE.
func (co *Coordinator) goLive() {
	co.Lock()
	lc := co.lc
	pending := co.pending
	co.pending = nil
	dropped := co.droppedOverflow
	co.droppedOverflow = 0

	var sendErr error
	if lc != nil {
		for _, msg := range pending {
			if sendErr = msg.send(lc); sendErr != nil {
				break
			}
		}
	}
	co.state = Live
	co.Unlock()

	mmlog.Infof("link: state => %s", Live)
	co.delegate.HandleLinkStateChange(Live)

	if dropped > 0 {
		mmlog.Warnf("link: dropped %d buffered message(s) while the world was away", dropped)
	}
	if sendErr != nil {
		mmlog.Errorf("link: replaying buffered message failed: %v", sendErr)
		return
	}
	if lc != nil && len(pending) > 0 {
		mmlog.Infof("link: replayed %d buffered message(s)", len(pending))
		lc.Flush("pending")
	}
}

// post sends the message now if the link is live, otherwise buffers it.
// Structural messages (session open/close) are never dropped; when the
// buffer overflows the oldest non-structural message goes first.
func (co *Coordinator) post(structural bool, send func(lc *proto.LinkConnection) error) {
	co.Lock()
	if co.state == Live && co.lc != nil {
		lc := co.lc
		co.Unlock()
		if err := send(lc); err != nil {
			// the receive goroutine notices the broken connection and
			// reconnects; losing this one message is the same as losing
			// it to the wire
			mmlog.Errorf("link: send failed: %v", err)
		}
		return
	}

	if len(co.pending) >= co.maxPending {
		if i := co.oldestNonStructural(); i >= 0 {
			co.pending = append(co.pending[:i], co.pending[i+1:]...)
			co.droppedOverflow++
		}
	}
	co.pending = append(co.pending, pendingMsg{structural: structural, send: send})
	co.Unlock()
}

func (co *Coordinator) oldestNonStructural() int {
	for i, msg := range co.pending {
		if !msg.structural {
			return i
		}
	}
	return -1
}

// SendSessionOpen tells the world about a new session
func (co *Coordinator) SendSessionOpen(proj *proto.SessionProjection) {
	co.post(true, func(lc *proto.LinkConnection) error {
		return lc.SendSessionOpen(proj)
	})
}

// SendSessionClose tells the world that a session is gone
func (co *Coordinator) SendSessionClose(id common.SessionID) {
	co.post(true, func(lc *proto.LinkConnection) error {
		return lc.SendSessionClose(id)
	})
}

// SendEnvelope forwards one client envelope to the world
func (co *Coordinator) SendEnvelope(id common.SessionID, e *envelope.Envelope) {
	co.post(false, func(lc *proto.LinkConnection) error {
		return lc.SendEnvelope(id, e)
	})
}

// flushRoutine flushes the link periodically and heartbeats it when idle
func (co *Coordinator) flushRoutine() {
	for !co.quit.Load() {
		time.Sleep(consts.LINK_FLUSH_INTERVAL)

		co.Lock()
		lc := co.lc
		live := co.state == Live
		heartbeat := live && time.Since(co.lastHeartbeat) >= consts.LINK_HEARTBEAT_INTERVAL
		if heartbeat {
			co.lastHeartbeat = time.Now()
		}
		co.Unlock()

		if lc == nil {
			continue
		}
		if heartbeat {
			lc.SendHeartbeat()
		}
		if err := lc.Flush("auto"); err != nil && !netutil.IsConnectionError(err) {
			mmlog.Errorf("link: flush failed: %v", err)
		}
	}
}
