package session

import (
	"sync"
	"time"

	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/mmlog"
)

// Notifier receives registry lifecycle events. The portal's registry
// notifies its link coordinator; the world's registry notifies the
// game delegate.
type Notifier interface {
	NotifySessionOpen(s *Session)
	NotifySessionClose(s *Session)
}

// Registry indexes live sessions by id
type Registry struct {
	sync.RWMutex
	sessions map[common.SessionID]*Session
	notifier Notifier
}

// NewRegistry creates an empty registry; notifier may be nil
func NewRegistry(notifier Notifier) *Registry {
	return &Registry{
		sessions: map[common.SessionID]*Session{},
		notifier: notifier,
	}
}

// Register adds a session and emits the open notification
func (r *Registry) Register(s *Session) {
	r.Lock()
	r.sessions[s.ID] = s
	r.Unlock()

	if r.notifier != nil {
		r.notifier.NotifySessionOpen(s)
	}
}

// Upsert adds or replaces a session without notifications. Snapshot
// replay uses it so re-applied sessions stay idempotent.
func (r *Registry) Upsert(s *Session) {
	r.Lock()
	r.sessions[s.ID] = s
	r.Unlock()
}

// Get returns the session by id, or nil
func (r *Registry) Get(id common.SessionID) *Session {
	r.RLock()
	defer r.RUnlock()
	return r.sessions[id]
}

// Remove drops a session and emits the close notification. Removing
// an unknown id is a no-op, so duplicate close paths are safe.
func (r *Registry) Remove(id common.SessionID) *Session {
	r.Lock()
	s := r.sessions[id]
	delete(r.sessions, id)
	r.Unlock()

	if s != nil && r.notifier != nil {
		r.notifier.NotifySessionClose(s)
	}
	return s
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.sessions)
}

// Snapshot returns all live sessions
func (r *Registry) Snapshot() []*Session {
	r.RLock()
	defer r.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// ForEach visits every live session
func (r *Registry) ForEach(f func(s *Session)) {
	for _, s := range r.Snapshot() {
		f(s)
	}
}

// Clear drops all sessions without notifications
func (r *Registry) Clear() {
	r.Lock()
	r.sessions = map[common.SessionID]*Session{}
	r.Unlock()
}

// SweepIdle returns the sessions idle for longer than timeout. A zero
// timeout disables sweeping.
func (r *Registry) SweepIdle(timeout time.Duration) []*Session {
	if timeout <= 0 {
		return nil
	}

	now := time.Now()
	var idle []*Session
	r.RLock()
	for _, s := range r.sessions {
		if s.IdleFor(now) > timeout {
			idle = append(idle, s)
		}
	}
	r.RUnlock()

	if len(idle) > 0 {
		mmlog.Infof("registry: %d session(s) idle for more than %s", len(idle), timeout)
	}
	return idle
}
