package link

import (
	"net"
	"testing"
	"time"

	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/consts"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/netutil"
	"github.com/moormud/moormud/engine/proto"
)

type stubDelegate struct {
	snapshot   []*proto.SessionProjection
	envelopes  chan *envelope.Envelope
	kicks      chan common.SessionID
	restarting chan struct{}
	onState    func(state State)
}

func newStubDelegate(snapshot []*proto.SessionProjection) *stubDelegate {
	return &stubDelegate{
		snapshot:   snapshot,
		envelopes:  make(chan *envelope.Envelope, 16),
		kicks:      make(chan common.SessionID, 16),
		restarting: make(chan struct{}, 16),
	}
}

func (d *stubDelegate) SessionSnapshot() []*proto.SessionProjection { return d.snapshot }
func (d *stubDelegate) HandleWorldEnvelope(id common.SessionID, e *envelope.Envelope) {
	d.envelopes <- e
}
func (d *stubDelegate) HandleSessionKick(id common.SessionID)      { d.kicks <- id }
func (d *stubDelegate) HandleWorldRestarting()                     { d.restarting <- struct{}{} }
func (d *stubDelegate) HandleWorldLoad(info *proto.WorldLoadInfo)  {}
func (d *stubDelegate) HandleLinkStateChange(state State) {
	if d.onState != nil {
		d.onState(state)
	}
}

// stubWorld accepts link connections, answers the snapshot handshake
// and hands the live connection to the test
type stubWorld struct {
	ln     net.Listener
	conns  chan *proto.LinkConnection
	counts chan int
}

func startStubWorld(t *testing.T) *stubWorld {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	sw := &stubWorld{
		ln:     ln,
		conns:  make(chan *proto.LinkConnection, 4),
		counts: make(chan int, 4),
	}
	go sw.acceptRoutine()
	t.Cleanup(func() { ln.Close() })
	return sw
}

func (sw *stubWorld) addr() string {
	return sw.ln.Addr().String()
}

func (sw *stubWorld) acceptRoutine() {
	for {
		conn, err := sw.ln.Accept()
		if err != nil {
			return
		}
		sw.handshake(proto.NewLinkConnection(netutil.NetConn{Conn: conn}))
	}
}

func (sw *stubWorld) handshake(lc *proto.LinkConnection) {
	var msgtype proto.MsgType
	pkt, err := lc.Recv(&msgtype)
	if err != nil || msgtype != proto.MT_SYNC_BEGIN {
		lc.Close()
		return
	}
	count := int(pkt.ReadUint32())
	pkt.Release()

	for i := 0; i < count; i++ {
		pkt, err = lc.Recv(&msgtype)
		if err != nil || msgtype != proto.MT_SESSION_SYNC {
			lc.Close()
			return
		}
		pkt.Release()
	}

	lc.SendSyncDone()
	lc.Flush("test")
	sw.counts <- count
	sw.conns <- lc
}

func waitState(t *testing.T, co *Coordinator, want State) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if co.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("link never reached state %s, still %s", want, co.State())
}

func TestLinkGoesLive(t *testing.T) {
	sw := startStubWorld(t)
	snapshot := []*proto.SessionProjection{
		{ID: string(common.GenSessionID()), Kind: 1, Caps: []string{"text"}},
		{ID: string(common.GenSessionID()), Kind: 4, Caps: []string{"text", "json"}},
	}
	co := NewCoordinator(sw.addr(), 0, newStubDelegate(snapshot))
	co.Start()
	defer co.Stop()

	waitState(t, co, Live)
	if count := <-sw.counts; count != 2 {
		t.Errorf("world saw %d snapshot sessions", count)
	}
}

func TestPendingReplayAfterLive(t *testing.T) {
	sw := startStubWorld(t)
	d := newStubDelegate(nil)
	co := NewCoordinator(sw.addr(), 0, d)

	// buffer traffic before the coordinator even starts dialing
	id := common.GenSessionID()
	co.SendSessionOpen(&proto.SessionProjection{ID: string(id), Kind: 1})
	co.SendEnvelope(id, envelope.Text("hello"))
	if co.PendingLen() != 2 {
		t.Fatalf("pending len is %d", co.PendingLen())
	}

	co.Start()
	defer co.Stop()
	waitState(t, co, Live)
	<-sw.counts
	lc := <-sw.conns

	var msgtype proto.MsgType
	pkt, err := lc.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	if msgtype != proto.MT_SESSION_OPEN {
		t.Fatalf("first replayed message is %s", msgtype)
	}
	pkt.Release()

	pkt, err = lc.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	if msgtype != proto.MT_SESSION_ENVELOPE {
		t.Fatalf("second replayed message is %s", msgtype)
	}
	pkt.Release()

	if co.PendingLen() != 0 {
		t.Errorf("pending not drained: %d", co.PendingLen())
	}
}

func TestBufferedReplayOrderAgainstLiveTraffic(t *testing.T) {
	sw := startStubWorld(t)
	d := newStubDelegate(nil)
	co := NewCoordinator(sw.addr(), 0, d)

	// the instant the link reports live, race a fresh envelope against
	// the buffered backlog; it must land after every older message
	id := common.GenSessionID()
	d.onState = func(state State) {
		if state == Live {
			co.SendEnvelope(id, envelope.Text("late"))
		}
	}

	co.SendEnvelope(id, envelope.Text("early-0"))
	co.SendEnvelope(id, envelope.Text("early-1"))
	co.SendEnvelope(id, envelope.Text("early-2"))

	co.Start()
	defer co.Stop()
	waitState(t, co, Live)
	<-sw.counts
	lc := <-sw.conns

	for _, want := range []string{"early-0", "early-1", "early-2", "late"} {
		var msgtype proto.MsgType
		pkt, err := lc.Recv(&msgtype)
		if err != nil {
			t.Fatal(err)
		}
		if msgtype != proto.MT_SESSION_ENVELOPE {
			t.Fatalf("got message type %s, want MT_SESSION_ENVELOPE", msgtype)
		}
		pkt.ReadSessionID()
		var e envelope.Envelope
		pkt.ReadData(&e)
		pkt.Release()
		if e.TextLine() != want {
			t.Fatalf("wire order violated: got %q, want %q", e.TextLine(), want)
		}
	}
}

func TestWorldKickAndEnvelope(t *testing.T) {
	sw := startStubWorld(t)
	d := newStubDelegate(nil)
	co := NewCoordinator(sw.addr(), 0, d)
	co.Start()
	defer co.Stop()

	waitState(t, co, Live)
	<-sw.counts
	lc := <-sw.conns

	id := common.GenSessionID()
	lc.SendEnvelope(id, envelope.Text("Welcome"))
	lc.SendSessionClose(id)
	lc.Flush("test")

	select {
	case e := <-d.envelopes:
		if !e.IsText() || e.TextLine() != "Welcome" {
			t.Errorf("bad envelope: %#v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("envelope never delivered")
	}

	select {
	case kicked := <-d.kicks:
		if kicked != id {
			t.Errorf("kicked wrong session")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("kick never delivered")
	}
}

func TestPlannedRestartResync(t *testing.T) {
	sw := startStubWorld(t)
	d := newStubDelegate(nil)
	co := NewCoordinator(sw.addr(), 0, d)
	co.Start()
	defer co.Stop()

	waitState(t, co, Live)
	<-sw.counts
	lc := <-sw.conns

	lc.SendWorldRestarting()
	lc.Flush("test")
	select {
	case <-d.restarting:
	case <-time.After(5 * time.Second):
		t.Fatal("restart never announced")
	}
	lc.Close()

	// the coordinator must reconnect and resync by itself
	waitState(t, co, Live)
	<-sw.counts
}

func TestPendingOverflowPolicy(t *testing.T) {
	co := NewCoordinator("127.0.0.1:1", 0, newStubDelegate(nil))

	id := common.GenSessionID()
	for i := 0; i < consts.LINK_PENDING_QUEUE_MAX_LEN+10; i++ {
		co.SendEnvelope(id, envelope.Text("x"))
	}
	if co.PendingLen() != consts.LINK_PENDING_QUEUE_MAX_LEN {
		t.Fatalf("pending len is %d, want %d", co.PendingLen(), consts.LINK_PENDING_QUEUE_MAX_LEN)
	}

	// structural messages are never the ones dropped
	co.SendSessionClose(id)
	if co.PendingLen() != consts.LINK_PENDING_QUEUE_MAX_LEN {
		t.Fatalf("pending len is %d after structural send", co.PendingLen())
	}
	co.Lock()
	last := co.pending[len(co.pending)-1]
	co.Unlock()
	if !last.structural {
		t.Errorf("structural message was dropped instead of an envelope")
	}
}
