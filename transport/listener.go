package transport

import (
	"crypto/tls"
	"net"
	"sync"

	"github.com/gogpu/relay"
)

// securityState is the process-wide TLS material cache. The first
// listener to enable security for a given certificate/key pair loads it
// exactly once; every later listener sharing the pair reuses the parsed
// session configuration.
var securityState struct {
	mu      sync.Mutex
	configs map[string]*tls.Config
}

// securityConfig loads (once per pair) the certificate and private key
// and returns the shared TLS configuration built from them.
func securityConfig(certFile, keyFile string) (*tls.Config, error) {
	key := certFile + "\x00" + keyFile

	securityState.mu.Lock()
	defer securityState.mu.Unlock()

	if cfg, ok := securityState.configs[key]; ok {
		return cfg, nil
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if securityState.configs == nil {
		securityState.configs = make(map[string]*tls.Config)
	}
	securityState.configs[key] = cfg
	relay.Logger().Info("transport: security initialized", "cert", certFile)
	return cfg, nil
}

// Listener accepts incoming channels on a bound port, performing the
// security handshake before handing a channel to the caller when the
// listener is security-enabled.
type Listener struct {
	ln      net.Listener
	tlsConf *tls.Config
}

// Listen binds and listens on addr (host:port, ":0" for an ephemeral
// port). Supplying both certFile and keyFile enables transport security
// for every accepted connection; leaving either empty disables it for
// this listener.
func Listen(addr, certFile, keyFile string) (*Listener, error) {
	var tlsConf *tls.Config
	if certFile != "" && keyFile != "" {
		cfg, err := securityConfig(certFile, keyFile)
		if err != nil {
			return nil, &TLSError{Op: "init", Kind: TLSProtocol, Cause: err}
		}
		tlsConf = cfg
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, connErr("listen", err)
	}
	relay.Logger().Info("transport: listening", "addr", ln.Addr().String(), "secured", tlsConf != nil)
	return &Listener{ln: ln, tlsConf: tlsConf}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Secured reports whether accepted channels carry TLS sessions.
func (l *Listener) Secured() bool { return l.tlsConf != nil }

// Accept blocks until a peer connects and returns a channel wrapping the
// accepted connection. On a security-enabled listener the handshake
// completes before Accept returns; a handshake failure closes that
// connection and is raised to the caller.
func (l *Listener) Accept() (*TCPChannel, error) {
	span := startSpan("transport.Accept")
	defer span.End()

	conn, err := l.ln.Accept()
	if err != nil {
		return nil, spanErr(span, connErr("accept", err))
	}

	if l.tlsConf == nil {
		return newTCPChannel(conn, false), nil
	}

	tc := tls.Server(conn, l.tlsConf)
	if err := tc.Handshake(); err != nil {
		conn.Close()
		return nil, spanErr(span, classifyTLS("handshake", err, true))
	}
	return newTCPChannel(tc, true), nil
}

// Close releases the listening socket. Channels already accepted are
// unaffected.
func (l *Listener) Close() error {
	return l.ln.Close()
}
