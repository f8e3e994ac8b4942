package netutil

import (
	"fmt"
	"net"

	"github.com/moormud/moormud/engine/mmioutil"
)

// ConnectTCP connects to the host:port as TCP
func ConnectTCP(host string, port int) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.Dial("tcp", addr)
	return conn, err
}

// IsConnectionError check if the error is a connection error (closed)
func IsConnectionError(err interface{}) bool {
	_err, ok := err.(error)
	if !ok {
		return false
	}
	return mmioutil.IsConnectionError(_err)
}
