package netutil

import (
	"fmt"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/moormud/moormud/engine/consts"
	"github.com/moormud/moormud/engine/mmioutil"
	"github.com/moormud/moormud/engine/mmlog"
)

// PacketConnection sends and receives packets upon a network stream.
//
// Every packet is length-prefixed, so each SendPacket is one atomic
// frame: writes from different sessions are serialized at this layer
// and partial reads are recoverable across transport boundaries.
type PacketConnection struct {
	conn Connection

	pendingPackets []*Packet
	pendingLock    sync.Mutex

	sendLock   sync.Mutex
	sendBuffer *sendBuffer
}

// NewPacketConnection creates a packet connection based on the network connection
func NewPacketConnection(conn Connection) *PacketConnection {
	return &PacketConnection{
		conn:       conn,
		sendBuffer: newSendBuffer(),
	}
}

// NewPacket allocates a new packet (usually for sending)
func (pc *PacketConnection) NewPacket() *Packet {
	return allocPacket()
}

// SendPacket queues one packet for sending.
//
// The packet is written to the wire on the next Flush. SendPacket never
// blocks on network I/O, so one slow peer can not stall the caller.
func (pc *PacketConnection) SendPacket(packet *Packet) error {
	if consts.DEBUG_PACKETS {
		mmlog.Debugf("%s SEND PACKET %p: payload=%d", pc, packet, packet.GetPayloadLen())
	}

	packet.AddRefCount(1)
	pc.pendingLock.Lock()
	pc.pendingPackets = append(pc.pendingPackets, packet)
	pc.pendingLock.Unlock()
	return nil
}

// Flush writes all pending packets to the underlying connection
func (pc *PacketConnection) Flush(reason string) (err error) {
	pc.pendingLock.Lock()
	if len(pc.pendingPackets) == 0 {
		pc.pendingLock.Unlock()
		return nil
	}
	packets := pc.pendingPackets
	pc.pendingPackets = make([]*Packet, 0, len(packets))
	pc.pendingLock.Unlock()

	// only one goroutine flushes at a time so frames never interleave
	pc.sendLock.Lock()
	defer pc.sendLock.Unlock()

	for _, packet := range packets {
		data := packet.data()
		if len(data) > pc.sendBuffer.FreeSpace() {
			if err = pc.sendBuffer.WriteAllTo(pc.conn); err != nil {
				return errors.Wrap(err, reason)
			}
		}

		if len(data) >= _SEND_BUFFER_SIZE {
			// packet is larger than the send buffer, write it directly
			if err = mmioutil.WriteAll(pc.conn, data); err != nil {
				return errors.Wrap(err, reason)
			}
		} else {
			pc.sendBuffer.Write(data)
		}
		packet.Release()
	}

	if err = pc.sendBuffer.WriteAllTo(pc.conn); err != nil {
		return errors.Wrap(err, reason)
	}
	return pc.conn.Flush()
}

// RecvPacket receives the next packet, blocking until a full frame arrives
func (pc *PacketConnection) RecvPacket() (*Packet, error) {
	packet := allocPacket()

	var sizeBuf [_SIZE_FIELD_SIZE]byte
	if err := mmioutil.ReadAll(pc.conn, sizeBuf[:]); err != nil {
		packet.Release()
		return nil, err
	}

	payloadLen := packetEndian.Uint32(sizeBuf[:])
	if payloadLen > MAX_PAYLOAD_LENGTH {
		packet.Release()
		return nil, errors.Errorf("receiving packet with payload too large: %d", payloadLen)
	}

	packet.AssureCapacity(payloadLen)
	if err := mmioutil.ReadAll(pc.conn, packet.bytes[_PREPAYLOAD_SIZE:_PREPAYLOAD_SIZE+payloadLen]); err != nil {
		packet.Release()
		return nil, err
	}

	packet.SetPayloadLen(payloadLen)
	return packet, nil
}

// Close closes the underlying connection
func (pc *PacketConnection) Close() error {
	return pc.conn.Close()
}

// RemoteAddr returns the remote address
func (pc *PacketConnection) RemoteAddr() net.Addr {
	return pc.conn.RemoteAddr()
}

// LocalAddr returns the local address
func (pc *PacketConnection) LocalAddr() net.Addr {
	return pc.conn.LocalAddr()
}

func (pc *PacketConnection) String() string {
	return fmt.Sprintf("[%s >>> %s]", pc.LocalAddr(), pc.RemoteAddr())
}
