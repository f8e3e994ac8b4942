package netutil

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestPacketAppendRead(t *testing.T) {
	pkt := NewPacket()
	defer pkt.Release()

	pkt.AppendByte(7)
	pkt.AppendBool(true)
	pkt.AppendUint16(0xBEEF)
	pkt.AppendUint32(0xDEADBEEF)
	pkt.AppendVarStr("hello world")
	pkt.AppendVarBytes([]byte{1, 2, 3})
	pkt.AppendStringList([]string{"a", "bb", "ccc"})

	if pkt.ReadOneByte() != 7 {
		t.Errorf("byte mismatch")
	}
	if !pkt.ReadBool() {
		t.Errorf("bool mismatch")
	}
	if pkt.ReadUint16() != 0xBEEF {
		t.Errorf("uint16 mismatch")
	}
	if pkt.ReadUint32() != 0xDEADBEEF {
		t.Errorf("uint32 mismatch")
	}
	if pkt.ReadVarStr() != "hello world" {
		t.Errorf("varstr mismatch")
	}
	if !bytes.Equal(pkt.ReadVarBytes(), []byte{1, 2, 3}) {
		t.Errorf("varbytes mismatch")
	}
	list := pkt.ReadStringList()
	if len(list) != 3 || list[2] != "ccc" {
		t.Errorf("string list mismatch: %v", list)
	}
	if pkt.HasUnreadPayload() {
		t.Errorf("payload should be fully read")
	}
}

func TestPacketGrow(t *testing.T) {
	pkt := NewPacket()
	defer pkt.Release()

	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i)
	}
	pkt.AppendVarBytes(payload)
	if !bytes.Equal(pkt.ReadVarBytes(), payload) {
		t.Errorf("large payload mismatch")
	}
}

func TestPacketData(t *testing.T) {
	type testMsg struct {
		ID   string
		N    int64
		List []string
	}

	pkt := NewPacket()
	defer pkt.Release()

	msg := testMsg{ID: "abc", N: 42, List: []string{"x", "y"}}
	pkt.AppendData(&msg)

	var restored testMsg
	pkt.ReadData(&restored)
	if restored.ID != msg.ID || restored.N != msg.N || len(restored.List) != 2 {
		t.Errorf("data mismatch: %#v", restored)
	}
}

func TestPacketConnection(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	sender := NewPacketConnection(NetConn{c1})
	receiver := NewPacketConnection(NetConn{c2})

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 10; i++ {
			pkt := sender.NewPacket()
			pkt.AppendUint16(uint16(i))
			pkt.AppendVarStr("payload")
			sender.SendPacket(pkt)
			pkt.Release()
		}
		done <- sender.Flush("test")
	}()

	for i := 0; i < 10; i++ {
		pkt, err := receiver.RecvPacket()
		if err != nil {
			t.Fatalf("recv %d: %v", i, err)
		}
		if pkt.ReadUint16() != uint16(i) {
			t.Errorf("packet %d out of order", i)
		}
		if pkt.ReadVarStr() != "payload" {
			t.Errorf("packet %d payload mismatch", i)
		}
		pkt.Release()
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("flush: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("flush did not complete")
	}
}

func TestMsgPackers(t *testing.T) {
	for _, packer := range []MsgPacker{MessagePackMsgPacker{}, JSONMsgPacker{}} {
		msg := map[string]interface{}{"a": "x", "b": "y"}
		buf, err := packer.PackMsg(msg, nil)
		if err != nil {
			t.Fatalf("%T pack: %v", packer, err)
		}

		var restored map[string]interface{}
		if err := packer.UnpackMsg(buf, &restored); err != nil {
			t.Fatalf("%T unpack: %v", packer, err)
		}
		if restored["a"] != "x" || restored["b"] != "y" {
			t.Errorf("%T round trip mismatch: %#v", packer, restored)
		}
	}
}
