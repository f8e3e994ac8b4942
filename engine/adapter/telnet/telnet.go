// Package telnet implements the telnet wire protocol: plain line text
// for every client, plus the GMCP and MSDP subnegotiation extensions
// for clients that negotiate structured out-of-band data.
package telnet

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/envelope"
)

// telnet protocol bytes
const (
	chSE   = 240
	chSB   = 250
	chWILL = 251
	chWONT = 252
	chDO   = 253
	chDONT = 254
	chIAC  = 255
)

// telnet options
const (
	optMSDP = 69
	optGMCP = 201
)

// decoder states
const (
	stateData = iota
	stateIAC
	stateNegotiate
	stateSBOption
	stateSBData
	stateSBIAC
)

// _MAX_LINE_LEN bounds one text line; longer input is malformed and
// discarded up to the next line boundary
const _MAX_LINE_LEN = 65536

// Adapter decodes and encodes telnet for one client connection.
//
// Feed runs on the connection's read goroutine while Encode, Caps and
// FreezeCaps are called from other goroutines; mu guards all adapter
// state across them.
type Adapter struct {
	mu     sync.Mutex
	kind   adapter.Kind
	caps   common.StringSet
	frozen bool

	state   int
	negCmd  byte
	sbOpt   byte
	sbBuf   []byte
	lineBuf []byte
}

// New creates a telnet adapter for one fresh connection.
//
// The capability set starts as text-only and grows while the client
// answers the negotiation offers in Greeting; it freezes at the first
// complete input line or when FreezeCaps is called.
func New(kind adapter.Kind) *Adapter {
	return &Adapter{
		kind:  kind,
		caps:  common.NewStringSet(adapter.CapText),
		state: stateData,
	}
}

// Kind returns the wire protocol kind
func (ta *Adapter) Kind() adapter.Kind {
	return ta.kind
}

// Caps returns a snapshot of the session capability set
func (ta *Adapter) Caps() common.StringSet {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	return ta.caps.Copy()
}

// Greeting returns the negotiation offers the portal sends at accept time
func (ta *Adapter) Greeting() []byte {
	return []byte{chIAC, chWILL, optGMCP, chIAC, chWILL, optMSDP}
}

// FreezeCaps ends capability negotiation; later DO/DONT replies are ignored
func (ta *Adapter) FreezeCaps() {
	ta.mu.Lock()
	ta.frozen = true
	ta.mu.Unlock()
}

// CapsFrozen returns if the capability set is immutable already
func (ta *Adapter) CapsFrozen() bool {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	return ta.frozen
}

// Feed consumes raw bytes and returns all complete envelopes decoded so far
func (ta *Adapter) Feed(data []byte) ([]*envelope.Envelope, error) {
	ta.mu.Lock()
	defer ta.mu.Unlock()

	var envelopes []*envelope.Envelope
	var firstErr error

	for _, b := range data {
		es, err := ta.feedByte(b)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		envelopes = append(envelopes, es...)
	}
	return envelopes, firstErr
}

func (ta *Adapter) feedByte(b byte) ([]*envelope.Envelope, error) {
	switch ta.state {
	case stateData:
		if b == chIAC {
			ta.state = stateIAC
			return nil, nil
		}
		return ta.feedDataByte(b)

	case stateIAC:
		switch b {
		case chWILL, chWONT, chDO, chDONT:
			ta.negCmd = b
			ta.state = stateNegotiate
		case chSB:
			ta.state = stateSBOption
		case chIAC:
			// escaped 255 data byte
			ta.state = stateData
			return ta.feedDataByte(chIAC)
		default:
			// NOP, GA and other commands carry no payload
			ta.state = stateData
		}
		return nil, nil

	case stateNegotiate:
		ta.handleNegotiate(ta.negCmd, b)
		ta.state = stateData
		return nil, nil

	case stateSBOption:
		ta.sbOpt = b
		ta.sbBuf = ta.sbBuf[:0]
		ta.state = stateSBData
		return nil, nil

	case stateSBData:
		if b == chIAC {
			ta.state = stateSBIAC
		} else {
			ta.sbBuf = append(ta.sbBuf, b)
		}
		return nil, nil

	case stateSBIAC:
		if b == chIAC {
			ta.sbBuf = append(ta.sbBuf, chIAC)
			ta.state = stateSBData
			return nil, nil
		}
		if b == chSE {
			ta.state = stateData
			return ta.decodeSubnegotiation(ta.sbOpt, ta.sbBuf)
		}
		// IAC followed by anything else inside SB is malformed; drop
		// the whole subnegotiation and resync at the data state
		ta.state = stateData
		return nil, errors.Errorf("telnet: malformed subnegotiation for option %d", ta.sbOpt)
	}

	return nil, nil
}

func (ta *Adapter) feedDataByte(b byte) ([]*envelope.Envelope, error) {
	switch b {
	case '\n':
		line := ta.lineBuf
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		ta.lineBuf = nil
		ta.frozen = true
		return []*envelope.Envelope{envelope.Text(string(line))}, nil
	case 0:
		// telnet CR NUL filler
		return nil, nil
	default:
		if len(ta.lineBuf) >= _MAX_LINE_LEN {
			ta.lineBuf = nil
			return nil, errors.New("telnet: input line too long, discarded")
		}
		ta.lineBuf = append(ta.lineBuf, b)
		return nil, nil
	}
}

func (ta *Adapter) handleNegotiate(cmd byte, opt byte) {
	if ta.frozen {
		return
	}

	switch cmd {
	case chDO:
		switch opt {
		case optGMCP:
			ta.caps.Add(adapter.CapGMCP)
		case optMSDP:
			ta.caps.Add(adapter.CapMSDP)
		}
	case chDONT:
		switch opt {
		case optGMCP:
			ta.caps.Remove(adapter.CapGMCP)
		case optMSDP:
			ta.caps.Remove(adapter.CapMSDP)
		}
	}
	// WILL/WONT from the client are answers to options we never ask
	// for; nothing to track
}

func (ta *Adapter) decodeSubnegotiation(opt byte, payload []byte) ([]*envelope.Envelope, error) {
	switch opt {
	case optGMCP:
		e, err := decodeGMCP(payload)
		if err != nil {
			return nil, err
		}
		return []*envelope.Envelope{e}, nil
	case optMSDP:
		return decodeMSDP(payload)
	}
	// unknown option subnegotiation, ignore
	return nil, nil
}

// Encode turns an envelope into telnet bytes for this session
func (ta *Adapter) Encode(e *envelope.Envelope) ([]byte, error) {
	if e.IsText() {
		return encodeTextLine(e.TextLine()), nil
	}

	ta.mu.Lock()
	defer ta.mu.Unlock()
	if ta.caps.Contains(adapter.CapGMCP) {
		return wrapSubnegotiation(optGMCP, encodeGMCP(e)), nil
	}
	if ta.caps.Contains(adapter.CapMSDP) {
		return wrapSubnegotiation(optMSDP, encodeMSDP(e)), nil
	}

	// out-of-band instruction for a text-only client: drop silently
	return nil, nil
}

// encodeTextLine renders one plain text line, escaping IAC bytes
func encodeTextLine(line string) []byte {
	out := make([]byte, 0, len(line)+2)
	for i := 0; i < len(line); i++ {
		if line[i] == chIAC {
			out = append(out, chIAC)
		}
		out = append(out, line[i])
	}
	return append(out, '\r', '\n')
}

// wrapSubnegotiation frames a payload as IAC SB <opt> ... IAC SE,
// escaping IAC bytes inside the payload
func wrapSubnegotiation(opt byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+5)
	out = append(out, chIAC, chSB, opt)
	if bytes.IndexByte(payload, chIAC) < 0 {
		out = append(out, payload...)
	} else {
		for _, b := range payload {
			if b == chIAC {
				out = append(out, chIAC)
			}
			out = append(out, b)
		}
	}
	return append(out, chIAC, chSE)
}
