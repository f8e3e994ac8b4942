// Package adapter defines the contract between wire protocols and
// envelopes. One Adapter instance serves one client connection and
// carries that connection's decode buffer and capability set.
package adapter

import (
	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/envelope"
)

// Kind enumerates the wire protocols served by the portal
type Kind int

const (
	// KindTelnet is plain telnet over TCP
	KindTelnet Kind = 1 + iota
	// KindTelnetTLS is telnet over TLS
	KindTelnetTLS
	// KindTelnetKCP is telnet over a KCP stream
	KindTelnetKCP
	// KindWebSocket is the JSON-array transport over websocket
	KindWebSocket
)

func (k Kind) String() string {
	switch k {
	case KindTelnet:
		return "telnet"
	case KindTelnetTLS:
		return "telnet+tls"
	case KindTelnetKCP:
		return "telnet+kcp"
	case KindWebSocket:
		return "websocket"
	}
	return "unknown"
}

// Capability flags. A session's capability set is established during
// connection negotiation and immutable afterwards.
const (
	// CapText marks plain in-band text, supported by every adapter
	CapText = "text"
	// CapGMCP marks GMCP subnegotiation: dotted names with JSON payloads
	CapGMCP = "gmcp"
	// CapMSDP marks MSDP subnegotiation: typed variable/value/array/table markers
	CapMSDP = "msdp"
	// CapJSON marks the fully structured JSON-array transport
	CapJSON = "json"
)

// Adapter encodes and decodes between raw client bytes and envelopes.
type Adapter interface {
	Kind() Kind

	// Caps returns a snapshot of the session's capability set,
	// reflecting negotiation progress so far. Safe to call from any
	// goroutine.
	Caps() common.StringSet

	// Feed consumes raw bytes from the client and returns all complete
	// envelopes decoded so far. Partial frames are buffered until more
	// bytes arrive. A non-nil error means some input was malformed and
	// has been discarded up to the next recoverable frame boundary;
	// the connection stays usable.
	Feed(data []byte) ([]*envelope.Envelope, error)

	// Encode turns an envelope into wire bytes for this session.
	// Returning (nil, nil) means the envelope is not expressible with
	// the session's capabilities and is silently dropped.
	Encode(e *envelope.Envelope) ([]byte, error)
}
