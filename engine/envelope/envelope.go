// Package envelope defines the protocol-agnostic unit of client traffic.
//
// Every inbound or outbound interaction is an Envelope before and after
// wire encoding: a name, an ordered argument list and a keyed argument
// map. Values are restricted to the JSON-like type set (string, float64,
// bool, nil, list, map) so every wire protocol can represent them.
package envelope

import (
	"reflect"
)

// TextName is the universal fallback envelope name.
//
// A "text" envelope must always be deliverable to any client as
// human-readable bytes, no matter what the client negotiated.
const TextName = "text"

// Envelope is one unit of communication between a client and the world.
type Envelope struct {
	Name   string                 `msgpack:"n" json:"name"`
	Args   []interface{}          `msgpack:"a" json:"args"`
	Kwargs map[string]interface{} `msgpack:"k" json:"kwargs"`
}

// New creates an Envelope with normalized values
func New(name string, args []interface{}, kwargs map[string]interface{}) *Envelope {
	e := &Envelope{
		Name:   name,
		Args:   args,
		Kwargs: kwargs,
	}
	return e.Normalized()
}

// Text creates the universal plain-text envelope carrying one line
func Text(line string) *Envelope {
	return &Envelope{
		Name: TextName,
		Args: []interface{}{line},
	}
}

// IsText returns if the envelope is the universal plain-text fallback
func (e *Envelope) IsText() bool {
	return e.Name == TextName
}

// TextLine returns the text payload of a plain-text envelope
func (e *Envelope) TextLine() string {
	if len(e.Args) == 0 {
		return ""
	}
	if s, ok := e.Args[0].(string); ok {
		return s
	}
	return ""
}

// Normalized returns the envelope with all values coerced into the
// JSON-like type set. Integers of any width become float64, so an
// envelope compares equal after any wire round trip.
func (e *Envelope) Normalized() *Envelope {
	ne := &Envelope{Name: e.Name}
	if e.Args != nil {
		ne.Args = normalizeList(e.Args)
	} else {
		ne.Args = []interface{}{}
	}
	if e.Kwargs != nil {
		ne.Kwargs = normalizeMap(e.Kwargs)
	} else {
		ne.Kwargs = map[string]interface{}{}
	}
	return ne
}

// Equal compares two envelopes after normalization
func Equal(a, b *Envelope) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a.Normalized(), b.Normalized())
}

func normalizeList(list []interface{}) []interface{} {
	res := make([]interface{}, len(list))
	for i, v := range list {
		res[i] = NormalizeValue(v)
	}
	return res
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(m))
	for k, v := range m {
		res[k] = NormalizeValue(v)
	}
	return res
}

// NormalizeValue coerces a value into the JSON-like type set: string,
// float64, bool, nil, []interface{} and map[string]interface{}.
// Unrepresentable values degrade to their string form.
func NormalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case bool:
		return val
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case []interface{}:
		return normalizeList(val)
	case map[string]interface{}:
		return normalizeMap(val)
	case map[interface{}]interface{}:
		// msgpack decodes maps with interface{} keys
		res := make(map[string]interface{}, len(val))
		for k, mv := range val {
			if ks, ok := k.(string); ok {
				res[ks] = NormalizeValue(mv)
			}
		}
		return res
	default:
		return stringify(val)
	}
}

func stringify(v interface{}) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Ptr:
		// compound values outside the supported set are not expected
		// from any adapter; keep a readable form rather than panicking
		return reflect.TypeOf(v).String()
	default:
		return rv.String()
	}
}
