// Package proto defines the message types exchanged between the portal
// and the world over the inter-process link.
package proto

// MsgType is the type of link message types
type MsgType uint16

const (
	// MT_INVALID is the invalid message type
	MT_INVALID MsgType = iota
	// MT_SESSION_OPEN tells the world that a new client session exists
	MT_SESSION_OPEN
	// MT_SESSION_CLOSE tells the peer that a client session is gone (portal -> world)
	// or asks the portal to disconnect the client (world -> portal)
	MT_SESSION_CLOSE
	// MT_SESSION_ENVELOPE carries one envelope for one session, in either direction
	MT_SESSION_ENVELOPE
	// MT_SYNC_BEGIN starts the session snapshot replay after a (re)connect
	MT_SYNC_BEGIN
	// MT_SESSION_SYNC carries one session of the snapshot
	MT_SESSION_SYNC
	// MT_SYNC_DONE is the world's acknowledgement that the snapshot is applied
	MT_SYNC_DONE
	// MT_WORLD_RESTARTING announces a planned world restart before the link closes
	MT_WORLD_RESTARTING
	// MT_WORLD_LOAD carries periodic world load info
	MT_WORLD_LOAD
	// MT_HEARTBEAT keeps the link alive while idle
	MT_HEARTBEAT
)

func (mt MsgType) String() string {
	switch mt {
	case MT_SESSION_OPEN:
		return "MT_SESSION_OPEN"
	case MT_SESSION_CLOSE:
		return "MT_SESSION_CLOSE"
	case MT_SESSION_ENVELOPE:
		return "MT_SESSION_ENVELOPE"
	case MT_SYNC_BEGIN:
		return "MT_SYNC_BEGIN"
	case MT_SESSION_SYNC:
		return "MT_SESSION_SYNC"
	case MT_SYNC_DONE:
		return "MT_SYNC_DONE"
	case MT_WORLD_RESTARTING:
		return "MT_WORLD_RESTARTING"
	case MT_WORLD_LOAD:
		return "MT_WORLD_LOAD"
	case MT_HEARTBEAT:
		return "MT_HEARTBEAT"
	}
	return "MT_INVALID"
}

// SessionProjection is the reduced view of a portal session that the
// world needs: the session itself stays owned by the portal.
type SessionProjection struct {
	ID            string   `msgpack:"id"`
	Kind          int      `msgpack:"kd"`
	Caps          []string `msgpack:"cp"`
	PeerAddr      string   `msgpack:"pa"`
	Authenticated bool     `msgpack:"au"`
	PuppetID      string   `msgpack:"pp"`
}

// WorldLoadInfo carries world process load info over the link
type WorldLoadInfo struct {
	CPUPercent float64 `msgpack:"cp"`
}
