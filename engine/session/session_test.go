package session

import (
	"testing"
	"time"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/common"
)

type recordingNotifier struct {
	opened []*Session
	closed []*Session
}

func (n *recordingNotifier) NotifySessionOpen(s *Session)  { n.opened = append(n.opened, s) }
func (n *recordingNotifier) NotifySessionClose(s *Session) { n.closed = append(n.closed, s) }

func TestSessionIDsUnique(t *testing.T) {
	seen := map[common.SessionID]bool{}
	for i := 0; i < 1000; i++ {
		s := New(adapter.KindTelnet, common.NewStringSet(adapter.CapText), "1.2.3.4:5")
		if seen[s.ID] {
			t.Fatalf("duplicate session id %s", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	s := New(adapter.KindTelnetTLS, common.NewStringSet(adapter.CapText, adapter.CapGMCP), "10.0.0.1:4000")
	s.Authenticated = true
	s.PuppetID = "wizard#7"

	got := FromProjection(s.Projection())
	if got.ID != s.ID || got.Kind != s.Kind || got.PeerAddr != s.PeerAddr {
		t.Errorf("projection mismatch: %#v", got)
	}
	if !got.Authenticated || got.PuppetID != "wizard#7" {
		t.Errorf("auth state lost: %#v", got)
	}
	if !got.Caps.Contains(adapter.CapGMCP) {
		t.Errorf("caps lost: %v", got.Caps.ToList())
	}
}

func TestRegistryNotifications(t *testing.T) {
	n := &recordingNotifier{}
	r := NewRegistry(n)

	s := New(adapter.KindTelnet, common.NewStringSet(adapter.CapText), "1.2.3.4:5")
	r.Register(s)
	if len(n.opened) != 1 || n.opened[0] != s {
		t.Fatalf("open not notified")
	}
	if r.Get(s.ID) != s || r.Count() != 1 {
		t.Fatalf("session not registered")
	}

	r.Remove(s.ID)
	if len(n.closed) != 1 || n.closed[0] != s {
		t.Fatalf("close not notified")
	}

	// removing again is a no-op
	r.Remove(s.ID)
	if len(n.closed) != 1 {
		t.Errorf("duplicate remove notified again")
	}
}

func TestUpsertIsSilent(t *testing.T) {
	n := &recordingNotifier{}
	r := NewRegistry(n)

	s := New(adapter.KindWebSocket, common.NewStringSet(adapter.CapText, adapter.CapJSON), "1.2.3.4:5")
	r.Upsert(s)
	r.Upsert(s)
	if len(n.opened) != 0 {
		t.Errorf("upsert should not notify")
	}
	if r.Count() != 1 {
		t.Errorf("count is %d", r.Count())
	}
}

func TestSweepIdle(t *testing.T) {
	r := NewRegistry(nil)

	fresh := New(adapter.KindTelnet, common.NewStringSet(adapter.CapText), "1.2.3.4:5")
	stale := New(adapter.KindTelnet, common.NewStringSet(adapter.CapText), "1.2.3.4:6")
	stale.LastActiveAt = time.Now().Add(-time.Hour)
	r.Register(fresh)
	r.Register(stale)

	idle := r.SweepIdle(time.Minute)
	if len(idle) != 1 || idle[0].ID != stale.ID {
		t.Errorf("sweep returned %d sessions", len(idle))
	}

	if got := r.SweepIdle(0); got != nil {
		t.Errorf("zero timeout should disable sweeping")
	}
}
