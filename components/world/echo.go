package main

import (
	"fmt"
	"strings"

	"github.com/moormud/moormud/engine/crontab"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/mmlog"
	"github.com/moormud/moormud/engine/session"
	"github.com/moormud/moormud/engine/world"
)

// echoWorld is the built-in minimal game: it greets sessions, echoes
// text and answers "who". Real games replace it with their own
// IWorldDelegate.
type echoWorld struct {
	svc *world.Service
}

func (ew *echoWorld) OnReady(svc *world.Service) {
	ew.svc = svc
	svc.RegisterInstruction("who", ew.handleWho)

	// hourly announcement, also proves world-side timers survive restarts
	crontab.Register(0, -1, -1, -1, -1, func() {
		ew.svc.Broadcast(envelope.Text("The town bell tolls the hour."))
	})
	mmlog.Infof("echo world ready")
}

func (ew *echoWorld) OnSessionConnected(s *session.Session) {
	ew.svc.SendText(s.ID, fmt.Sprintf("Welcome to MoorMUD. You are session %s.", s.ID))
}

func (ew *echoWorld) OnSessionDisconnected(s *session.Session) {
	mmlog.Infof("echo world: session %s left", s.ID)
}

func (ew *echoWorld) OnText(s *session.Session, line string) {
	switch strings.TrimSpace(line) {
	case "who":
		ew.handleWho(s, nil)
	case "quit":
		ew.svc.SendText(s.ID, "Goodbye.")
		ew.svc.Kick(s.ID)
	default:
		ew.svc.SendText(s.ID, "You say: "+line)
	}
}

func (ew *echoWorld) OnInstruction(s *session.Session, e *envelope.Envelope) {
	// unsupported instruction, per contract the sender hears nothing
	mmlog.Debugf("echo world: unhandled instruction %s from %s", e.Name, s.ID)
}

func (ew *echoWorld) handleWho(s *session.Session, _ *envelope.Envelope) {
	sessions := ew.svc.Registry().Snapshot()
	names := make([]interface{}, 0, len(sessions))
	for _, other := range sessions {
		names = append(names, string(other.ID))
	}
	ew.svc.Send(s.ID, envelope.New("who", nil, map[string]interface{}{
		"count":    len(sessions),
		"sessions": names,
	}))
	ew.svc.SendText(s.ID, fmt.Sprintf("%d session(s) online.", len(sessions)))
}
