package common

import (
	"github.com/moormud/moormud/engine/mmlog"
	"github.com/moormud/moormud/engine/uuid"
)

// SESSIONID_LENGTH is the length of Session IDs
const SESSIONID_LENGTH = uuid.UUID_LENGTH

// SessionID identifies one client connection for its whole lifetime.
//
// A SessionID is minted by the portal when a transport connection is
// accepted and is never reused, so in-flight link messages can always
// name a session unambiguously.
type SessionID string

// IsNil returns if SessionID is nil
func (id SessionID) IsNil() bool {
	return id == ""
}

// GenSessionID generates a new SessionID
func GenSessionID() SessionID {
	return SessionID(uuid.GenUUID())
}

// MustSessionID assures a string to be SessionID
func MustSessionID(id string) SessionID {
	if len(id) != SESSIONID_LENGTH {
		mmlog.Panicf("%s of len %d is not a valid session ID (len=%d)", id, len(id), SESSIONID_LENGTH)
	}
	return SessionID(id)
}
