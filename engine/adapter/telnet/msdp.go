package telnet

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/moormud/moormud/engine/envelope"
)

// MSDP value markers
const (
	msdpVar        = 1
	msdpVal        = 2
	msdpTableOpen  = 3
	msdpTableClose = 4
	msdpArrayOpen  = 5
	msdpArrayClose = 6
)

// MSDP carries variables as typed marker sequences. The envelope name
// maps to the upper-cased variable name; positional arguments travel
// as an array block and keyed arguments as a table block. An envelope
// with both produces two blocks under the same variable name, which
// the decoder merges back into one envelope. All MSDP values are
// strings on the wire; numeric types do not survive the round trip.

// encodeMSDP renders an envelope as an MSDP payload (unframed)
func encodeMSDP(e *envelope.Envelope) []byte {
	ne := e.Normalized()
	name := strings.ToUpper(ne.Name)

	var out []byte
	appendVar := func() {
		out = append(out, msdpVar)
		out = append(out, name...)
	}

	if len(ne.Args) == 1 && len(ne.Kwargs) == 0 {
		appendVar()
		out = append(out, msdpVal)
		out = append(out, msdpString(ne.Args[0])...)
		return out
	}

	if len(ne.Args) > 0 || len(ne.Kwargs) == 0 {
		appendVar()
		out = append(out, msdpArrayOpen)
		for _, v := range ne.Args {
			out = append(out, msdpVal)
			out = append(out, msdpString(v)...)
		}
		out = append(out, msdpArrayClose)
	}

	if len(ne.Kwargs) > 0 {
		appendVar()
		out = append(out, msdpTableOpen)
		for _, k := range sortedKeys(ne.Kwargs) {
			out = append(out, msdpVar)
			out = append(out, k...)
			out = append(out, msdpVal)
			out = append(out, msdpString(ne.Kwargs[k])...)
		}
		out = append(out, msdpTableClose)
	}
	return out
}

// decodeMSDP parses an MSDP payload into envelopes, one per distinct
// variable name. Repeated blocks with the same name merge.
func decodeMSDP(payload []byte) ([]*envelope.Envelope, error) {
	var envelopes []*envelope.Envelope
	byName := map[string]*envelope.Envelope{}

	pos := 0
	for pos < len(payload) {
		if payload[pos] != msdpVar {
			return envelopes, errors.Errorf("msdp: expected VAR marker at offset %d", pos)
		}
		pos++
		name := readMSDPToken(payload, &pos)
		if name == "" {
			return envelopes, errors.New("msdp: empty variable name")
		}

		args, kwargs, err := readMSDPValue(payload, &pos)
		if err != nil {
			return envelopes, err
		}

		key := strings.ToLower(name)
		e := byName[key]
		if e == nil {
			e = envelope.New(key, nil, nil)
			byName[key] = e
			envelopes = append(envelopes, e)
		}
		e.Args = append(e.Args, args...)
		for k, v := range kwargs {
			e.Kwargs[k] = v
		}
	}
	return envelopes, nil
}

func readMSDPValue(payload []byte, pos *int) ([]interface{}, map[string]interface{}, error) {
	if *pos >= len(payload) {
		return nil, nil, errors.New("msdp: variable without value")
	}

	switch payload[*pos] {
	case msdpVal:
		*pos++
		return []interface{}{readMSDPToken(payload, pos)}, nil, nil

	case msdpArrayOpen:
		*pos++
		var args []interface{}
		for *pos < len(payload) && payload[*pos] == msdpVal {
			*pos++
			args = append(args, readMSDPToken(payload, pos))
		}
		if *pos >= len(payload) || payload[*pos] != msdpArrayClose {
			return nil, nil, errors.New("msdp: unterminated array")
		}
		*pos++
		return args, nil, nil

	case msdpTableOpen:
		*pos++
		kwargs := map[string]interface{}{}
		for *pos < len(payload) && payload[*pos] == msdpVar {
			*pos++
			k := readMSDPToken(payload, pos)
			if *pos >= len(payload) || payload[*pos] != msdpVal {
				return nil, nil, errors.Errorf("msdp: table key %q without value", k)
			}
			*pos++
			kwargs[k] = readMSDPToken(payload, pos)
		}
		if *pos >= len(payload) || payload[*pos] != msdpTableClose {
			return nil, nil, errors.New("msdp: unterminated table")
		}
		*pos++
		return nil, kwargs, nil
	}

	return nil, nil, errors.Errorf("msdp: unexpected marker %d", payload[*pos])
}

// readMSDPToken consumes bytes up to the next marker byte
func readMSDPToken(payload []byte, pos *int) string {
	start := *pos
	for *pos < len(payload) && payload[*pos] > msdpArrayClose {
		*pos++
	}
	return string(payload[start:*pos])
}

// msdpString renders a value as MSDP wire text
func msdpString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		// nested lists and maps degrade to their JSON form
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
