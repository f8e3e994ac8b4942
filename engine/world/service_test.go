package world

import (
	"net"
	"testing"
	"time"

	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/netutil"
	"github.com/moormud/moormud/engine/proto"
	"github.com/moormud/moormud/engine/session"
)

type event struct {
	kind string
	id   common.SessionID
	text string
}

type recordingDelegate struct {
	events chan event
}

func newRecordingDelegate() *recordingDelegate {
	return &recordingDelegate{events: make(chan event, 64)}
}

func (d *recordingDelegate) OnReady(svc *Service) {}
func (d *recordingDelegate) OnSessionConnected(s *session.Session) {
	d.events <- event{kind: "connect", id: s.ID}
}
func (d *recordingDelegate) OnSessionDisconnected(s *session.Session) {
	d.events <- event{kind: "disconnect", id: s.ID}
}
func (d *recordingDelegate) OnText(s *session.Session, line string) {
	d.events <- event{kind: "text", id: s.ID, text: line}
}
func (d *recordingDelegate) OnInstruction(s *session.Session, e *envelope.Envelope) {
	d.events <- event{kind: "instruction", id: s.ID, text: e.Name}
}

func (d *recordingDelegate) next(t *testing.T) event {
	select {
	case ev := <-d.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no delegate event")
		return event{}
	}
}

// startService wires a service to an in-memory portal link
func startService(t *testing.T, d IWorldDelegate) (*Service, *proto.LinkConnection) {
	ws := NewService("127.0.0.1:0", d, 0)
	go ws.serveRoutine()
	t.Cleanup(func() { ws.Shutdown(false) })

	portalEnd, worldEnd := net.Pipe()
	go ws.ServeTCPConnection(worldEnd)
	lc := proto.NewLinkConnection(netutil.NetConn{Conn: portalEnd})
	t.Cleanup(func() { lc.Close() })
	return ws, lc
}

func recvSyncDone(t *testing.T, lc *proto.LinkConnection) {
	var msgtype proto.MsgType
	pkt, err := lc.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	pkt.Release()
	if msgtype != proto.MT_SYNC_DONE {
		t.Fatalf("msgtype is %s, want MT_SYNC_DONE", msgtype)
	}
}

func TestShutdownStopsServiceLoop(t *testing.T) {
	ws := NewService("127.0.0.1:0", newRecordingDelegate(), 0)
	ws.runState.Store(rsRunning)
	go ws.serveRoutine()

	ws.Shutdown(false)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ws.runState.Load() == rsTerminated {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("service loop did not terminate")
}

func TestSessionLifecycle(t *testing.T) {
	d := newRecordingDelegate()
	ws, lc := startService(t, d)

	lc.SendSyncBegin(0)
	lc.Flush("test")
	recvSyncDone(t, lc)

	id := common.GenSessionID()
	lc.SendSessionOpen(&proto.SessionProjection{ID: string(id), Kind: 1, Caps: []string{"text"}})
	lc.SendEnvelope(id, envelope.Text("look"))
	lc.SendSessionClose(id)
	lc.Flush("test")

	if ev := d.next(t); ev.kind != "connect" || ev.id != id {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev := d.next(t); ev.kind != "text" || ev.text != "look" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev := d.next(t); ev.kind != "disconnect" || ev.id != id {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ws.Registry().Count() != 0 {
		t.Errorf("registry not empty")
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	d := newRecordingDelegate()
	ws, lc := startService(t, d)

	proj := &proto.SessionProjection{ID: string(common.GenSessionID()), Kind: 1, Caps: []string{"text"}}

	// the same snapshot replayed twice connects the session once
	for i := 0; i < 2; i++ {
		lc.SendSyncBegin(1)
		lc.SendSessionSync(proj)
		lc.Flush("test")
		recvSyncDone(t, lc)
	}

	if ev := d.next(t); ev.kind != "connect" {
		t.Fatalf("unexpected event %+v", ev)
	}
	select {
	case ev := <-d.events:
		t.Fatalf("extra event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
	if ws.Registry().Count() != 1 {
		t.Errorf("registry count is %d", ws.Registry().Count())
	}
}

func TestSnapshotDropsStaleSessions(t *testing.T) {
	d := newRecordingDelegate()
	ws, lc := startService(t, d)

	a := &proto.SessionProjection{ID: string(common.GenSessionID()), Kind: 1}
	b := &proto.SessionProjection{ID: string(common.GenSessionID()), Kind: 1}

	lc.SendSyncBegin(1)
	lc.SendSessionSync(a)
	lc.Flush("test")
	recvSyncDone(t, lc)
	d.next(t) // connect a

	// a disappeared while the link was away
	lc.SendSyncBegin(1)
	lc.SendSessionSync(b)
	lc.Flush("test")
	recvSyncDone(t, lc)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := d.next(t)
		seen[ev.kind] = true
		if ev.kind == "disconnect" && ev.id != common.SessionID(a.ID) {
			t.Errorf("disconnected wrong session")
		}
	}
	if !seen["connect"] || !seen["disconnect"] {
		t.Fatalf("events seen: %v", seen)
	}
	if ws.Registry().Count() != 1 {
		t.Errorf("registry count is %d", ws.Registry().Count())
	}
}

func TestInstructionRouting(t *testing.T) {
	d := newRecordingDelegate()
	ws, lc := startService(t, d)

	handled := make(chan common.SessionID, 1)
	ws.RegisterInstruction("who", func(s *session.Session, e *envelope.Envelope) {
		handled <- s.ID
	})

	lc.SendSyncBegin(0)
	lc.Flush("test")
	recvSyncDone(t, lc)

	id := common.GenSessionID()
	lc.SendSessionOpen(&proto.SessionProjection{ID: string(id), Kind: 1})
	lc.SendEnvelope(id, envelope.New("who", nil, nil))
	lc.SendEnvelope(id, envelope.New("dance", nil, nil))
	lc.Flush("test")

	d.next(t) // connect
	select {
	case got := <-handled:
		if got != id {
			t.Errorf("handler got wrong session")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("registered handler never ran")
	}
	if ev := d.next(t); ev.kind != "instruction" || ev.text != "dance" {
		t.Fatalf("fallback not used: %+v", ev)
	}
}

func TestSendAndKick(t *testing.T) {
	d := newRecordingDelegate()
	ws, lc := startService(t, d)

	lc.SendSyncBegin(0)
	lc.Flush("test")
	recvSyncDone(t, lc)

	id := common.GenSessionID()
	lc.SendSessionOpen(&proto.SessionProjection{ID: string(id), Kind: 1})
	lc.Flush("test")
	d.next(t) // connect

	ws.SendText(id, "Welcome")
	ws.Kick(id)
	// net.Pipe is synchronous: flush on another goroutine so the
	// Recv calls below can drain it
	flushed := make(chan struct{})
	go func() {
		ws.flushLink()
		close(flushed)
	}()

	var msgtype proto.MsgType
	pkt, err := lc.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	if msgtype != proto.MT_SESSION_ENVELOPE {
		t.Fatalf("msgtype is %s", msgtype)
	}
	if pkt.ReadSessionID() != id {
		t.Errorf("wrong session id")
	}
	var e envelope.Envelope
	pkt.ReadData(&e)
	pkt.Release()
	if !e.IsText() || e.TextLine() != "Welcome" {
		t.Errorf("bad envelope: %#v", e)
	}

	pkt, err = lc.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	pkt.Release()
	if msgtype != proto.MT_SESSION_CLOSE {
		t.Fatalf("msgtype is %s", msgtype)
	}
	<-flushed
}
