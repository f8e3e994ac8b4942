package main

import (
	"fmt"
	"net"
	"sync"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/netconnutil"
	"golang.org/x/net/websocket"

	"github.com/moormud/moormud/engine/adapter"
	"github.com/moormud/moormud/engine/adapter/telnet"
	"github.com/moormud/moormud/engine/adapter/wsjson"
	"github.com/moormud/moormud/engine/config"
	"github.com/moormud/moormud/engine/consts"
	"github.com/moormud/moormud/engine/envelope"
	"github.com/moormud/moormud/engine/mmioutil"
	"github.com/moormud/moormud/engine/mmlog"
	"github.com/moormud/moormud/engine/netutil"
	"github.com/moormud/moormud/engine/session"
)

// ClientProxy is one client connection managed by the portal: the raw
// connection, its protocol adapter and its session. Inbound bytes are
// decoded on the proxy's read goroutine and queued to the portal
// service; outbound wire bytes go through outQueue so no service
// goroutine ever blocks on a slow client.
type ClientProxy struct {
	session    *session.Session
	adapter    adapter.Adapter
	registered bool // owned by the portal service goroutine

	netconn netutil.Connection // stream transports
	wsConn  *websocket.Conn    // websocket transport

	outQueue  *xnsyncutil.SyncQueue // of []byte
	closed    xnsyncutil.AtomicBool
	closeOnce sync.Once
}

func newClientProxy(_conn net.Conn, kind adapter.Kind, cfg *config.PortalConfig) *ClientProxy {
	_conn = netconnutil.NewNoTempErrorConn(_conn)
	var conn netutil.Connection = netutil.NetConn{Conn: _conn}
	if cfg.CompressConnection {
		conn = netconnutil.NewSnappyConn(conn)
	}
	conn = netconnutil.NewBufferedConn(conn, consts.BUFFERED_READ_BUFFSIZE, consts.BUFFERED_WRITE_BUFFSIZE)

	ta := telnet.New(kind)
	cp := &ClientProxy{
		netconn:  conn,
		adapter:  ta,
		outQueue: xnsyncutil.NewSyncQueue(),
	}
	cp.session = session.New(kind, nil, _conn.RemoteAddr().String())
	cp.SendRaw(ta.Greeting())
	return cp
}

func newWebSocketClientProxy(wsConn *websocket.Conn) *ClientProxy {
	cp := &ClientProxy{
		wsConn:   wsConn,
		adapter:  wsjson.New(),
		outQueue: xnsyncutil.NewSyncQueue(),
	}
	cp.session = session.New(adapter.KindWebSocket, nil, wsConn.Request().RemoteAddr)
	return cp
}

func (cp *ClientProxy) String() string {
	return fmt.Sprintf("ClientProxy<%s@%s/%s>", cp.session.ID, cp.session.PeerAddr, cp.session.Kind)
}

// serve runs the read loop; it returns when the connection is gone
func (cp *ClientProxy) serve() {
	defer func() {
		cp.Close()
		portalService.eventQueue.Push(clientEvent{cp: cp, what: ceClosed})

		if err := recover(); err != nil && !netutil.IsConnectionError(err) {
			mmlog.TraceError("%s error: %s", cp, err)
		} else {
			mmlog.Debugf("%s disconnected", cp)
		}
	}()

	go func() {
		// a write failure closes the proxy; the read side notices
		cp.sendRoutine()
		cp.Close()
	}()

	if cp.wsConn != nil {
		cp.serveWebSocket()
	} else {
		cp.serveStream()
	}
}

func (cp *ClientProxy) serveStream() {
	buf := make([]byte, consts.CLIENT_PROXY_READ_CHUNK_SIZE)
	for {
		n, err := cp.netconn.Read(buf)
		if n > 0 {
			cp.feed(buf[:n])
		}
		if err != nil {
			if !mmioutil.IsTimeoutError(err) {
				mmlog.Panic(err)
			}
		}
	}
}

func (cp *ClientProxy) serveWebSocket() {
	for {
		// the JSON-array transport is one frame per message
		var frame string
		if err := websocket.Message.Receive(cp.wsConn, &frame); err != nil {
			mmlog.Panic(err)
		}
		cp.feed([]byte(frame))
	}
}

func (cp *ClientProxy) feed(data []byte) {
	envelopes, err := cp.adapter.Feed(data)
	if err != nil {
		// malformed input is discarded by the adapter, the client stays
		mmlog.Warnf("%s: %v", cp, err)
	}
	for _, e := range envelopes {
		portalService.eventQueue.Push(clientEvent{cp: cp, what: ceEnvelope, envelope: e})
	}
}

// sendRoutine writes queued wire bytes to the client; it returns on
// the first write failure or when the queue is closed
func (cp *ClientProxy) sendRoutine() {
	for {
		item := cp.outQueue.Pop()
		if item == nil {
			return
		}
		data := item.([]byte)

		if cp.wsConn != nil {
			if err := websocket.Message.Send(cp.wsConn, string(data)); err != nil {
				cp.logSendError(err)
				return
			}
			continue
		}

		if err := mmioutil.WriteAll(cp.netconn, data); err != nil {
			cp.logSendError(err)
			return
		}
		if cp.outQueue.Len() == 0 {
			if err := cp.netconn.Flush(); err != nil {
				cp.logSendError(err)
				return
			}
		}
	}
}

func (cp *ClientProxy) logSendError(err error) {
	if !netutil.IsConnectionError(err) {
		mmlog.Errorf("%s: write failed: %v", cp, err)
	}
}

// SendEnvelope encodes and queues an envelope for the client. An
// envelope the session's capabilities cannot express is dropped.
func (cp *ClientProxy) SendEnvelope(e *envelope.Envelope) {
	data, err := cp.adapter.Encode(e)
	if err != nil {
		mmlog.Errorf("%s: encode %s failed: %v", cp, e.Name, err)
		return
	}
	if data == nil {
		if consts.DEBUG_CLIENTS {
			mmlog.Debugf("%s: dropping inexpressible envelope %s", cp, e.Name)
		}
		return
	}
	cp.SendRaw(data)
}

// SendRaw queues wire bytes for the client
func (cp *ClientProxy) SendRaw(data []byte) {
	if cp.closed.Load() || len(data) == 0 {
		return
	}
	cp.outQueue.Push(data)
}

// Close shuts the connection down; the read loop notices and reports
func (cp *ClientProxy) Close() {
	cp.closeOnce.Do(func() {
		cp.closed.Store(true)
		cp.outQueue.Close()
		if cp.wsConn != nil {
			cp.wsConn.Close()
		} else {
			cp.netconn.Close()
		}
	})
}
