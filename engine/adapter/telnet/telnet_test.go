package telnet

import (
	"bytes"
	"testing"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/envelope"
)

func feedAll(t *testing.T, ta *Adapter, data []byte) []*envelope.Envelope {
	es, err := ta.Feed(data)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	return es
}

func TestPlainLine(t *testing.T) {
	ta := New(adapter.KindTelnet)
	es := feedAll(t, ta, []byte("look\r\n"))
	if len(es) != 1 {
		t.Fatalf("got %d envelopes", len(es))
	}
	if !es[0].IsText() || es[0].TextLine() != "look" {
		t.Errorf("bad envelope: %#v", es[0])
	}
	if !ta.CapsFrozen() {
		t.Errorf("caps should freeze at first line")
	}
}

func TestSplitLine(t *testing.T) {
	ta := New(adapter.KindTelnet)
	if es := feedAll(t, ta, []byte("lo")); len(es) != 0 {
		t.Fatalf("partial line produced envelopes")
	}
	es := feedAll(t, ta, []byte("ok\nnorth\n"))
	if len(es) != 2 {
		t.Fatalf("got %d envelopes", len(es))
	}
	if es[0].TextLine() != "look" || es[1].TextLine() != "north" {
		t.Errorf("bad lines: %q %q", es[0].TextLine(), es[1].TextLine())
	}
}

func TestNegotiation(t *testing.T) {
	ta := New(adapter.KindTelnet)
	feedAll(t, ta, []byte{chIAC, chDO, optGMCP})
	if !ta.Caps().Contains(adapter.CapGMCP) {
		t.Errorf("DO GMCP did not add the cap")
	}
	feedAll(t, ta, []byte{chIAC, chDONT, optGMCP})
	if ta.Caps().Contains(adapter.CapGMCP) {
		t.Errorf("DONT GMCP did not remove the cap")
	}

	feedAll(t, ta, []byte("look\n"))
	feedAll(t, ta, []byte{chIAC, chDO, optMSDP})
	if ta.Caps().Contains(adapter.CapMSDP) {
		t.Errorf("caps changed after freeze")
	}
}

func TestConcurrentNegotiationAndEncode(t *testing.T) {
	ta := New(adapter.KindTelnet)

	// negotiation replies race against outbound encodes and registry
	// snapshots on other goroutines; none of it may corrupt the caps
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			ta.Feed([]byte{chIAC, chDO, optGMCP})
			ta.Feed([]byte{chIAC, chDONT, optGMCP})
		}
	}()

	e := envelope.New("room_desc", nil, map[string]interface{}{"text": "A dark cave."})
	for i := 0; i < 1000; i++ {
		ta.Caps()
		if _, err := ta.Encode(e); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	<-done

	ta.FreezeCaps()
	if !ta.Caps().Contains(adapter.CapText) {
		t.Errorf("text capability lost")
	}
}

func TestGMCPRoundTrip(t *testing.T) {
	ta := New(adapter.KindTelnet)
	feedAll(t, ta, []byte{chIAC, chDO, optGMCP})

	sent := envelope.New("room_desc", nil, map[string]interface{}{"text": "A dark cave."})
	data, err := ta.Encode(sent)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{chIAC, chSB, optGMCP}) {
		t.Fatalf("not a subnegotiation frame: %v", data)
	}
	if !bytes.Contains(data, []byte("Room.Desc ")) {
		t.Errorf("mangled name missing: %q", data)
	}

	es := feedAll(t, ta, data)
	if len(es) != 1 {
		t.Fatalf("got %d envelopes", len(es))
	}
	if !envelope.Equal(sent, es[0]) {
		t.Errorf("round trip mismatch: %#v", es[0])
	}
}

func TestGMCPArgsAndKwargs(t *testing.T) {
	ta := New(adapter.KindTelnet)
	feedAll(t, ta, []byte{chIAC, chDO, optGMCP})

	sent := envelope.New("char_move", []interface{}{"north", float64(2)},
		map[string]interface{}{"running": true})
	data, err := ta.Encode(sent)
	if err != nil {
		t.Fatal(err)
	}
	es := feedAll(t, ta, data)
	if len(es) != 1 || !envelope.Equal(sent, es[0]) {
		t.Errorf("round trip mismatch: %#v", es)
	}
}

func TestGMCPBareName(t *testing.T) {
	ta := New(adapter.KindTelnet)
	es := feedAll(t, ta, wrapSubnegotiation(optGMCP, []byte("Custom.Look")))
	if len(es) != 1 || es[0].Name != "look" {
		t.Fatalf("bad decode: %#v", es)
	}
	if len(es[0].Args) != 0 || len(es[0].Kwargs) != 0 {
		t.Errorf("bare name should have no arguments")
	}
}

func TestMSDPRoundTrip(t *testing.T) {
	ta := New(adapter.KindTelnet)
	feedAll(t, ta, []byte{chIAC, chDO, optMSDP})

	sent := envelope.New("room_desc", nil, map[string]interface{}{"text": "A dark cave."})
	data, err := ta.Encode(sent)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{chIAC, chSB, optMSDP, msdpVar}) {
		t.Fatalf("not an MSDP frame: %v", data)
	}
	if !bytes.Contains(data, []byte("ROOM_DESC")) {
		t.Errorf("upper-cased variable name missing: %q", data)
	}

	es := feedAll(t, ta, data)
	if len(es) != 1 || !envelope.Equal(sent, es[0]) {
		t.Errorf("round trip mismatch: %#v", es)
	}
}

func TestMSDPArgsAndKwargsMerge(t *testing.T) {
	ta := New(adapter.KindTelnet)
	feedAll(t, ta, []byte{chIAC, chDO, optMSDP})

	sent := envelope.New("char_move", []interface{}{"north", "south"},
		map[string]interface{}{"speed": "fast"})
	data, err := ta.Encode(sent)
	if err != nil {
		t.Fatal(err)
	}

	// both blocks travel under one variable name and merge on decode
	es := feedAll(t, ta, data)
	if len(es) != 1 {
		t.Fatalf("got %d envelopes, want merged single", len(es))
	}
	if !envelope.Equal(sent, es[0]) {
		t.Errorf("round trip mismatch: %#v", es[0])
	}
}

func TestMSDPScalar(t *testing.T) {
	payload := []byte{msdpVar}
	payload = append(payload, "HEALTH"...)
	payload = append(payload, msdpVal)
	payload = append(payload, "100"...)

	ta := New(adapter.KindTelnet)
	es := feedAll(t, ta, wrapSubnegotiation(optMSDP, payload))
	if len(es) != 1 {
		t.Fatalf("got %d envelopes", len(es))
	}
	if es[0].Name != "health" || len(es[0].Args) != 1 || es[0].Args[0] != "100" {
		t.Errorf("bad decode: %#v", es[0])
	}
}

func TestTextOnlyDropsInstructions(t *testing.T) {
	ta := New(adapter.KindTelnet)
	feedAll(t, ta, []byte("look\n")) // freeze with no structured caps

	text, err := ta.Encode(envelope.Text("Hello"))
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "Hello\r\n" {
		t.Errorf("text line is %q", text)
	}

	data, err := ta.Encode(envelope.New("room_desc", nil, map[string]interface{}{"text": "x"}))
	if err != nil {
		t.Fatal(err)
	}
	if data != nil {
		t.Errorf("instruction should be dropped for text-only client, got %q", data)
	}
}

func TestIACEscaping(t *testing.T) {
	ta := New(adapter.KindTelnet)
	line := "a\xffb"
	data, err := ta.Encode(envelope.Text(line))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{'a', chIAC, chIAC, 'b', '\r', '\n'}) {
		t.Fatalf("bad escaping: %v", data)
	}

	es := feedAll(t, ta, data)
	if len(es) != 1 || es[0].TextLine() != line {
		t.Errorf("escaped line did not round trip: %#v", es)
	}
}

func TestMalformedSubnegotiationRecovers(t *testing.T) {
	ta := New(adapter.KindTelnet)

	// IAC SB opt ... IAC <garbage> is malformed
	bad := []byte{chIAC, chSB, optGMCP, 'x', chIAC, 'y'}
	_, err := ta.Feed(bad)
	if err == nil {
		t.Fatal("expected an error for the malformed frame")
	}

	// the connection stays usable
	es := feedAll(t, ta, []byte("look\n"))
	if len(es) != 1 || es[0].TextLine() != "look" {
		t.Errorf("decoder did not recover: %#v", es)
	}
}

func TestGreeting(t *testing.T) {
	ta := New(adapter.KindTelnet)
	want := []byte{chIAC, chWILL, optGMCP, chIAC, chWILL, optMSDP}
	if !bytes.Equal(ta.Greeting(), want) {
		t.Errorf("greeting is %v", ta.Greeting())
	}
}
