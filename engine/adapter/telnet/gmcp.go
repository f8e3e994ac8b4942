package telnet

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/envelope"
)

// GMCP subnegotiation payload: a dotted capitalized package path,
// optionally followed by one space and a JSON document.
//
// The JSON document carries the envelope arguments: a list when only
// positional arguments are set, a map when only keyed arguments are
// set, and the two-element form [args, kwargs] when both are. A bare
// scalar document becomes a single positional argument.

// encodeGMCP renders an envelope as a GMCP payload (unframed)
func encodeGMCP(e *envelope.Envelope) []byte {
	buf := bytes.NewBufferString(adapter.MangleName(e.Name))

	ne := e.Normalized()
	var doc interface{}
	switch {
	case len(ne.Args) > 0 && len(ne.Kwargs) > 0:
		doc = []interface{}{ne.Args, ne.Kwargs}
	case len(ne.Kwargs) > 0:
		doc = ne.Kwargs
	case len(ne.Args) > 0:
		doc = ne.Args
	default:
		return buf.Bytes()
	}

	buf.WriteByte(' ')
	json.NewEncoder(buf).Encode(doc) // values are JSON-safe after normalization
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// decodeGMCP parses a GMCP payload back into an envelope
func decodeGMCP(payload []byte) (*envelope.Envelope, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, errors.New("gmcp: empty subnegotiation")
	}

	path := payload
	var doc []byte
	if i := bytes.IndexByte(payload, ' '); i >= 0 {
		path = payload[:i]
		doc = bytes.TrimSpace(payload[i+1:])
	}

	name := adapter.UnmangleName(string(path))
	if len(doc) == 0 {
		return envelope.New(name, nil, nil), nil
	}

	var val interface{}
	if err := json.Unmarshal(doc, &val); err != nil {
		return nil, errors.Wrapf(err, "gmcp: bad JSON in %s", path)
	}

	switch v := val.(type) {
	case map[string]interface{}:
		return envelope.New(name, nil, v), nil
	case []interface{}:
		if args, kwargs, ok := splitCombinedDoc(v); ok {
			return envelope.New(name, args, kwargs), nil
		}
		return envelope.New(name, v, nil), nil
	default:
		return envelope.New(name, []interface{}{v}, nil), nil
	}
}

// splitCombinedDoc recognizes the [args, kwargs] form. A two-element
// list whose halves are a list and a map is always read as the
// combined form; that shape as pure positional data does not survive
// a round trip and that is the documented tradeoff.
func splitCombinedDoc(v []interface{}) ([]interface{}, map[string]interface{}, bool) {
	if len(v) != 2 {
		return nil, nil, false
	}
	args, ok1 := v[0].([]interface{})
	kwargs, ok2 := v[1].(map[string]interface{})
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return args, kwargs, true
}
