// Package wsjson implements the fully structured JSON-array transport
// used by websocket clients: every frame is a three-element array
// [name, args, kwargs], both directions.
package wsjson

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/envelope"
)

// Adapter codecs the JSON-array transport for one websocket client.
// The websocket layer delivers whole text frames, so Feed expects one
// complete frame per call and keeps no partial-input buffer.
type Adapter struct {
	caps common.StringSet
}

// New creates a JSON-array adapter. The capability set is complete
// from the start; this transport has nothing to negotiate.
func New() *Adapter {
	return &Adapter{
		caps: common.NewStringSet(adapter.CapText, adapter.CapJSON),
	}
}

// Kind returns the wire protocol kind
func (wa *Adapter) Kind() adapter.Kind {
	return adapter.KindWebSocket
}

// Caps returns a snapshot of the session capability set
func (wa *Adapter) Caps() common.StringSet {
	return wa.caps.Copy()
}

// Feed decodes one complete [name, args, kwargs] frame
func (wa *Adapter) Feed(data []byte) ([]*envelope.Envelope, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, errors.Wrap(err, "wsjson: frame is not a JSON array")
	}
	if len(frame) != 3 {
		return nil, errors.Errorf("wsjson: frame has %d elements, want 3", len(frame))
	}

	var name string
	if err := json.Unmarshal(frame[0], &name); err != nil {
		return nil, errors.Wrap(err, "wsjson: frame name is not a string")
	}
	var args []interface{}
	if err := json.Unmarshal(frame[1], &args); err != nil {
		return nil, errors.Wrap(err, "wsjson: frame args is not a list")
	}
	var kwargs map[string]interface{}
	if err := json.Unmarshal(frame[2], &kwargs); err != nil {
		return nil, errors.Wrap(err, "wsjson: frame kwargs is not a map")
	}

	return []*envelope.Envelope{envelope.New(name, args, kwargs)}, nil
}

// Encode renders an envelope as one [name, args, kwargs] frame
func (wa *Adapter) Encode(e *envelope.Envelope) ([]byte, error) {
	ne := e.Normalized()
	data, err := json.Marshal([]interface{}{ne.Name, ne.Args, ne.Kwargs})
	if err != nil {
		return nil, errors.Wrap(err, "wsjson: encode")
	}
	return data, nil
}
