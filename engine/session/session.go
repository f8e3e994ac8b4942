// Package session tracks live client sessions and their registries.
//
// Both processes keep a registry: the portal's is authoritative for
// connection lifetime, the world's is a mirror rebuilt from envelopes
// and snapshots. The Session struct itself carries only protocol-level
// state; game state hangs off the puppet id.
package session

import (
	"time"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/proto"
)

// Session is one live client connection as both processes see it
type Session struct {
	ID            common.SessionID
	Kind          adapter.Kind
	Caps          common.StringSet
	PeerAddr      string
	Authenticated bool
	PuppetID      string
	CreatedAt     time.Time
	LastActiveAt  time.Time
}

// New creates a session with a fresh id
func New(kind adapter.Kind, caps common.StringSet, peerAddr string) *Session {
	now := time.Now()
	return &Session{
		ID:           common.GenSessionID(),
		Kind:         kind,
		Caps:         caps,
		PeerAddr:     peerAddr,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Touch records client activity for idle accounting
func (s *Session) Touch() {
	s.LastActiveAt = time.Now()
}

// IdleFor returns how long the session has been without client input
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActiveAt)
}

// Projection returns the wire form of the session for sync and open
// messages
func (s *Session) Projection() *proto.SessionProjection {
	return &proto.SessionProjection{
		ID:            string(s.ID),
		Kind:          int(s.Kind),
		Caps:          s.Caps.ToList(),
		PeerAddr:      s.PeerAddr,
		Authenticated: s.Authenticated,
		PuppetID:      s.PuppetID,
	}
}

// FromProjection rebuilds a session from its wire form
func FromProjection(p *proto.SessionProjection) *Session {
	now := time.Now()
	return &Session{
		ID:            common.SessionID(p.ID),
		Kind:          adapter.Kind(p.Kind),
		Caps:          common.NewStringSet(p.Caps...),
		PeerAddr:      p.PeerAddr,
		Authenticated: p.Authenticated,
		PuppetID:      p.PuppetID,
		CreatedAt:     now,
		LastActiveAt:  now,
	}
}
