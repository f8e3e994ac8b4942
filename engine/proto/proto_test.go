package proto

import (
	"net"
	"testing"

	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/netutil"
)

func linkPair(t *testing.T) (*LinkConnection, *LinkConnection, func()) {
	c1, c2 := net.Pipe()
	a := NewLinkConnection(netutil.NetConn{Conn: c1})
	b := NewLinkConnection(netutil.NetConn{Conn: c2})
	return a, b, func() {
		a.Close()
		b.Close()
	}
}

func TestSendEnvelope(t *testing.T) {
	a, b, cleanup := linkPair(t)
	defer cleanup()

	id := common.GenSessionID()
	sent := envelope.New("room_desc", nil, map[string]interface{}{"text": "A dark cave."})

	go func() {
		a.SendEnvelope(id, sent)
		a.Flush("test")
	}()

	var msgtype MsgType
	pkt, err := b.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	defer pkt.Release()

	if msgtype != MT_SESSION_ENVELOPE {
		t.Fatalf("msgtype is %s", msgtype)
	}
	if pkt.ReadSessionID() != id {
		t.Errorf("session id mismatch")
	}

	var got envelope.Envelope
	pkt.ReadData(&got)
	if !envelope.Equal(sent, &got) {
		t.Errorf("envelope mismatch: %#v", got)
	}
}

func TestSendSessionSync(t *testing.T) {
	a, b, cleanup := linkPair(t)
	defer cleanup()

	proj := &SessionProjection{
		ID:       string(common.GenSessionID()),
		Kind:     1,
		Caps:     []string{"text", "gmcp"},
		PeerAddr: "10.0.0.1:50000",
	}

	go func() {
		a.SendSyncBegin(1)
		a.SendSessionSync(proj)
		a.Flush("test")
	}()

	var msgtype MsgType
	pkt, err := b.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	if msgtype != MT_SYNC_BEGIN {
		t.Fatalf("msgtype is %s", msgtype)
	}
	if pkt.ReadUint32() != 1 {
		t.Errorf("sync count mismatch")
	}
	pkt.Release()

	pkt, err = b.Recv(&msgtype)
	if err != nil {
		t.Fatal(err)
	}
	defer pkt.Release()
	if msgtype != MT_SESSION_SYNC {
		t.Fatalf("msgtype is %s", msgtype)
	}

	var got SessionProjection
	pkt.ReadData(&got)
	if got.ID != proj.ID || len(got.Caps) != 2 || got.PeerAddr != proj.PeerAddr {
		t.Errorf("projection mismatch: %#v", got)
	}
}
