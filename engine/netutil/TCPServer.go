package netutil

import (
	"net"
	"time"

	"github.com/moormud/moormud/engine/mmioutil"
	"github.com/moormud/moormud/engine/mmlog"
)

const (
	_RESTART_TCP_SERVER_INTERVAL = 3 * time.Second
)

// TCPServerDelegate is the implementations that a TCP server should provide
type TCPServerDelegate interface {
	ServeTCPConnection(net.Conn)
}

// ServeTCPForever serves on specified address as TCP server, for ever ...
func ServeTCPForever(listenAddr string, delegate TCPServerDelegate) {
	for {
		err := serveTCPForeverOnce(listenAddr, delegate)
		mmlog.Errorf("server@%s failed with error: %v, will restart after %s", listenAddr, err, _RESTART_TCP_SERVER_INTERVAL)
		time.Sleep(_RESTART_TCP_SERVER_INTERVAL)
	}
}

func serveTCPForeverOnce(listenAddr string, delegate TCPServerDelegate) error {
	defer func() {
		if err := recover(); err != nil {
			mmlog.TraceError("serveTCPForeverOnce: paniced with error %s", err)
		}
	}()

	return ServeTCP(listenAddr, delegate)
}

// ServeTCP serves on specified address as TCP server
func ServeTCP(listenAddr string, delegate TCPServerDelegate) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	mmlog.Infof("Listening on TCP: %s ...", listenAddr)
	defer ln.Close()

	return serveListener(ln, delegate)
}

// ServeListenerForever accepts connections from the listener, for ever ...
func ServeListenerForever(ln net.Listener, delegate TCPServerDelegate) {
	for {
		err := serveListener(ln, delegate)
		mmlog.Errorf("server@%s failed with error: %v, will restart after %s", ln.Addr(), err, _RESTART_TCP_SERVER_INTERVAL)
		time.Sleep(_RESTART_TCP_SERVER_INTERVAL)
	}
}

func serveListener(ln net.Listener, delegate TCPServerDelegate) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if mmioutil.IsTimeoutError(err) {
				continue
			} else {
				return err
			}
		}

		mmlog.Infof("Connection from: %s", conn.RemoteAddr())
		go delegate.ServeTCPConnection(conn)
	}
}
