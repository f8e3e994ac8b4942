package netutil

import (
	"net"

	"github.com/xiaonanln/netconnutil"
)

// Connection is the basic interface for connections used in the engine:
// a net.Conn whose write side can be explicitly flushed.
type Connection interface {
	netconnutil.FlushableConn
}

// NetConn wraps a raw net.Conn as a Connection with a no-op Flush
type NetConn struct {
	net.Conn
}

// Flush flushes the connection
func (c NetConn) Flush() error {
	return nil
}
