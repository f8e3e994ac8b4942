package proto

import (
	"net"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"

	"github.com/moormud/moormud/engine/common"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/netutil"
)

// LinkConnection is the typed message API over one portal <-> world connection
type LinkConnection struct {
	packetConn *netutil.PacketConnection
	closed     xnsyncutil.AtomicBool
}

// NewLinkConnection creates a LinkConnection upon the network connection
func NewLinkConnection(conn netutil.Connection) *LinkConnection {
	return &LinkConnection{
		packetConn: netutil.NewPacketConnection(conn),
	}
}

// SendSessionOpen sends MT_SESSION_OPEN message
func (lc *LinkConnection) SendSessionOpen(proj *SessionProjection) error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_SESSION_OPEN))
	packet.AppendData(proj)
	return lc.SendPacketRelease(packet)
}

// SendSessionClose sends MT_SESSION_CLOSE message
func (lc *LinkConnection) SendSessionClose(id common.SessionID) error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_SESSION_CLOSE))
	packet.AppendSessionID(id)
	return lc.SendPacketRelease(packet)
}

// SendEnvelope sends MT_SESSION_ENVELOPE message carrying one envelope for one session
func (lc *LinkConnection) SendEnvelope(id common.SessionID, e *envelope.Envelope) error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_SESSION_ENVELOPE))
	packet.AppendSessionID(id)
	packet.AppendData(e)
	return lc.SendPacketRelease(packet)
}

// SendSyncBegin sends MT_SYNC_BEGIN carrying the number of snapshot sessions to follow
func (lc *LinkConnection) SendSyncBegin(count int) error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_SYNC_BEGIN))
	packet.AppendUint32(uint32(count))
	return lc.SendPacketRelease(packet)
}

// SendSessionSync sends MT_SESSION_SYNC carrying one snapshot session
func (lc *LinkConnection) SendSessionSync(proj *SessionProjection) error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_SESSION_SYNC))
	packet.AppendData(proj)
	return lc.SendPacketRelease(packet)
}

// SendSyncDone sends MT_SYNC_DONE message
func (lc *LinkConnection) SendSyncDone() error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_SYNC_DONE))
	return lc.SendPacketRelease(packet)
}

// SendWorldRestarting sends MT_WORLD_RESTARTING message
func (lc *LinkConnection) SendWorldRestarting() error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_WORLD_RESTARTING))
	return lc.SendPacketRelease(packet)
}

// SendWorldLoad sends MT_WORLD_LOAD message
func (lc *LinkConnection) SendWorldLoad(info *WorldLoadInfo) error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_WORLD_LOAD))
	packet.AppendData(info)
	return lc.SendPacketRelease(packet)
}

// SendHeartbeat sends MT_HEARTBEAT message
func (lc *LinkConnection) SendHeartbeat() error {
	packet := lc.packetConn.NewPacket()
	packet.AppendUint16(uint16(MT_HEARTBEAT))
	return lc.SendPacketRelease(packet)
}

// SendPacketRelease send the packet to peer and then release the packet
func (lc *LinkConnection) SendPacketRelease(packet *netutil.Packet) error {
	err := lc.packetConn.SendPacket(packet)
	packet.Release()
	return err
}

// Recv receives the next packet and reads the message type
func (lc *LinkConnection) Recv(msgtype *MsgType) (*netutil.Packet, error) {
	pkt, err := lc.packetConn.RecvPacket()
	if err != nil {
		return nil, err
	}

	*msgtype = MsgType(pkt.ReadUint16())
	return pkt, nil
}

// Flush flushes the underlying packet connection
func (lc *LinkConnection) Flush(reason string) error {
	return lc.packetConn.Flush(reason)
}

// Close closes the connection
func (lc *LinkConnection) Close() error {
	lc.closed.Store(true)
	return lc.packetConn.Close()
}

// IsClosed returns if the connection is closed
func (lc *LinkConnection) IsClosed() bool {
	return lc.closed.Load()
}

// RemoteAddr returns the remote address
func (lc *LinkConnection) RemoteAddr() net.Addr {
	return lc.packetConn.RemoteAddr()
}

func (lc *LinkConnection) String() string {
	return lc.packetConn.String()
}
