package world

import (
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/session"
)

// InstructionHandler handles one named instruction envelope
type InstructionHandler func(s *session.Session, e *envelope.Envelope)

// IWorldDelegate is the interface that a world game implementation
// provides. All callbacks run on the world service goroutine, so the
// delegate needs no locking of its own state.
type IWorldDelegate interface {
	// OnReady is called once when the world service starts serving.
	// Instruction handlers are usually registered here.
	OnReady(svc *Service)
	// OnSessionConnected is called when a client session appears,
	// either freshly opened or replayed from a portal snapshot
	OnSessionConnected(s *session.Session)
	// OnSessionDisconnected is called when a client session is gone
	OnSessionDisconnected(s *session.Session)
	// OnText handles one plain text line from a client
	OnText(s *session.Session, line string)
	// OnInstruction handles an instruction envelope that no registered
	// handler matched
	OnInstruction(s *session.Session, e *envelope.Envelope)
}
