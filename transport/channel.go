package transport

import (
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/relay"
	"github.com/gogpu/relay/registry"
)

// Well-known connection ports. Which one a deployment uses is an
// external configuration choice; the TLS port always requires transport
// security.
const (
	// DefaultPort is the plaintext frame-relay port.
	DefaultPort = 4242

	// DefaultTLSPort is the TLS-secured frame-relay port.
	DefaultTLSPort = 4243
)

// Channel is a bidirectional reliable byte stream to the remote peer.
// Send and Recv block until exactly len(p) bytes have been transferred
// or an error is raised; Close is idempotent.
type Channel interface {
	// ID returns the channel's process-unique identity, used in logs,
	// metrics, and the diagnostics endpoint.
	ID() uuid.UUID

	// Send transfers exactly len(p) bytes to the peer.
	Send(p []byte) error

	// Recv fills p with exactly len(p) bytes from the peer.
	Recv(p []byte) error

	// Close releases the connection and any security session.
	Close() error

	// RemoteName resolves the peer endpoint to a human-readable address.
	RemoteName() string
}

// ChannelInfo is a snapshot of one open channel, served by the
// diagnostics endpoint.
type ChannelInfo struct {
	ID      uuid.UUID `json:"id"`
	Remote  string    `json:"remote"`
	Kind    string    `json:"kind"`
	Secured bool      `json:"secured"`
	Opened  time.Time `json:"opened"`
}

// channels tracks every open channel in the process.
var channels registry.Table[uuid.UUID, ChannelInfo]

// Channels returns a snapshot of all open channels.
func Channels() []ChannelInfo {
	out := make([]ChannelInfo, 0, channels.Len())
	channels.Range(func(_ uuid.UUID, info ChannelInfo) bool {
		out = append(out, info)
		return true
	})
	return out
}

func registerChannel(info ChannelInfo) {
	if err := channels.Add(info.ID, info); err != nil {
		// UUID collision is not a real-world event; log and move on.
		relay.Logger().Warn("transport: duplicate channel id", "id", info.ID)
		return
	}
	metrics().openChannels.Inc()
}

func unregisterChannel(id uuid.UUID) {
	if _, ok := channels.Lookup(id); ok {
		channels.Remove(id)
		metrics().openChannels.Dec()
	}
}

// TCPChannel is a Channel over a TCP connection, optionally wrapped in
// TLS. Instances are produced by Dial, DialTLS, and Listener.Accept.
type TCPChannel struct {
	id        uuid.UUID
	conn      net.Conn
	secured   bool
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a plaintext client connection to host:port.
func Dial(host string, port int) (*TCPChannel, error) {
	span := startSpan("transport.Dial")
	defer span.End()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, spanErr(span, connErr("dial", err))
	}
	return newTCPChannel(conn, false), nil
}

// DialTLS opens a TLS-secured client connection to host:port and
// completes the security handshake before returning. A nil cfg uses the
// default configuration with the host as server name.
func DialTLS(host string, port int, cfg *tls.Config) (*TCPChannel, error) {
	span := startSpan("transport.DialTLS")
	defer span.End()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, spanErr(span, connErr("dial", err))
	}
	if cfg == nil {
		cfg = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	tc := tls.Client(conn, cfg)
	if err := tc.Handshake(); err != nil {
		conn.Close()
		return nil, spanErr(span, classifyTLS("handshake", err, true))
	}
	return newTCPChannel(tc, true), nil
}

func newTCPChannel(conn net.Conn, secured bool) *TCPChannel {
	c := &TCPChannel{
		id:      uuid.New(),
		conn:    conn,
		secured: secured,
	}
	registerChannel(ChannelInfo{
		ID:      c.id,
		Remote:  conn.RemoteAddr().String(),
		Kind:    "tcp",
		Secured: secured,
		Opened:  time.Now(),
	})
	relay.Logger().Info("transport: channel opened",
		"id", c.id, "remote", conn.RemoteAddr().String(), "secured", secured)
	return c
}

// ID returns the channel identity.
func (c *TCPChannel) ID() uuid.UUID { return c.id }

// Send transfers exactly len(p) bytes, looping over partial writes.
func (c *TCPChannel) Send(p []byte) error {
	for len(p) > 0 {
		n, err := c.conn.Write(p)
		if err != nil {
			metrics().sendErrors.Inc()
			if c.secured {
				return classifyTLS("send", err, false)
			}
			return connErr("send", err)
		}
		p = p[n:]
	}
	return nil
}

// Recv fills p with exactly len(p) bytes, looping over partial reads.
func (c *TCPChannel) Recv(p []byte) error {
	for len(p) > 0 {
		n, err := c.conn.Read(p)
		if n > 0 {
			p = p[n:]
		}
		if err != nil {
			if len(p) == 0 {
				break
			}
			if c.secured {
				return classifyTLS("recv", err, true)
			}
			return connErr("recv", err)
		}
	}
	return nil
}

// Close releases the socket and any security session. Safe to call more
// than once.
func (c *TCPChannel) Close() error {
	c.closeOnce.Do(func() {
		unregisterChannel(c.id)
		c.closeErr = c.conn.Close()
		relay.Logger().Debug("transport: channel closed", "id", c.id)
	})
	return c.closeErr
}

// RemoteName resolves the peer endpoint to a human-readable address
// string, preferring a reverse-DNS name when one resolves.
func (c *TCPChannel) RemoteName() string {
	addr := c.conn.RemoteAddr().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if names, err := net.LookupAddr(host); err == nil && len(names) > 0 {
		return net.JoinHostPort(names[0], port)
	}
	return addr
}

// Secured reports whether the channel carries a TLS session.
func (c *TCPChannel) Secured() bool { return c.secured }
