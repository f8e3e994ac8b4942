// Package moormud is the public surface for building games on the
// MoorMUD engine: a portal process that keeps clients connected and a
// restartable world process that runs the game logic.
//
// A game implements world.IWorldDelegate and starts its world process
// with RunWorld; the stock portal binary needs no game code at all.
package moormud

import (
	"fmt"

	"github.com/moormud/moormud/engine/config"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/session"
	"github.com/moormud/moormud/engine/world"
)

// Envelope is the protocol-agnostic unit of client traffic
type Envelope = envelope.Envelope

// Session is one live client connection
type Session = session.Session

// Service is the world process core
type Service = world.Service

// IWorldDelegate is the interface a game implements
type IWorldDelegate = world.IWorldDelegate

// NewEnvelope creates an envelope with normalized values
func NewEnvelope(name string, args []interface{}, kwargs map[string]interface{}) *Envelope {
	return envelope.New(name, args, kwargs)
}

// TextEnvelope creates the universal plain-text envelope
func TextEnvelope(line string) *Envelope {
	return envelope.Text(line)
}

// RunWorld runs the world process with the given game delegate; it
// blocks until the service shuts down
func RunWorld(delegate IWorldDelegate) {
	worldConfig := config.GetWorld()
	linkConfig := config.GetLink()
	svc := world.NewService(fmt.Sprintf("%s:%d", linkConfig.Ip, linkConfig.Port),
		delegate, worldConfig.LoadReportInterval)
	svc.Run()
}
