package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gogpu/relay"
)

// Upgrader is the handshake configuration used by AcceptWS. Deployments
// fronting the relay with their own HTTP stack may adjust it before
// serving.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  32 << 10,
	WriteBufferSize: 32 << 10,
}

// WSChannel is a Channel over a WebSocket connection, for viewers that
// can only reach the relay through HTTP proxies. Each Send becomes one
// binary message; Recv reassembles the byte stream across message
// boundaries, preserving the exact-length contract.
type WSChannel struct {
	id   uuid.UUID
	conn *websocket.Conn

	writeMu sync.Mutex

	// leftover holds bytes from a partially consumed inbound message.
	leftover []byte

	closeOnce sync.Once
	closeErr  error
}

// DialWS opens a client channel to a WebSocket URL (ws:// or wss://).
func DialWS(url string) (*WSChannel, error) {
	span := startSpan("transport.DialWS")
	defer span.End()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, spanErr(span, connErr("dial", err))
	}
	return newWSChannel(conn, url), nil
}

// AcceptWS upgrades an HTTP request to a frame-relay channel.
func AcceptWS(w http.ResponseWriter, r *http.Request) (*WSChannel, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, connErr("upgrade", err)
	}
	return newWSChannel(conn, r.RemoteAddr), nil
}

func newWSChannel(conn *websocket.Conn, remote string) *WSChannel {
	c := &WSChannel{
		id:   uuid.New(),
		conn: conn,
	}
	registerChannel(ChannelInfo{
		ID:     c.id,
		Remote: remote,
		Kind:   "websocket",
		Opened: time.Now(),
	})
	relay.Logger().Info("transport: websocket channel opened", "id", c.id, "remote", remote)
	return c
}

// ID returns the channel identity.
func (c *WSChannel) ID() uuid.UUID { return c.id }

// Send writes p as one binary message.
func (c *WSChannel) Send(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		metrics().sendErrors.Inc()
		return connErr("send", err)
	}
	return nil
}

// Recv fills p with exactly len(p) bytes, reading as many messages as
// needed and keeping any surplus for the next call.
func (c *WSChannel) Recv(p []byte) error {
	for len(p) > 0 {
		if len(c.leftover) > 0 {
			n := copy(p, c.leftover)
			c.leftover = c.leftover[n:]
			p = p[n:]
			continue
		}
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return connErr("recv", err)
		}
		c.leftover = msg
	}
	return nil
}

// Close releases the connection. Safe to call more than once.
func (c *WSChannel) Close() error {
	c.closeOnce.Do(func() {
		unregisterChannel(c.id)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteName returns the peer address as reported by the connection.
func (c *WSChannel) RemoteName() string {
	return c.conn.RemoteAddr().String()
}
