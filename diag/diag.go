// Package diag serves the runtime's diagnostics endpoint: liveness,
// Prometheus metrics, and a snapshot of open transport channels. It is
// off by default and enabled by configuring a listen address.
package diag

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/relay"
	"github.com/gogpu/relay/transport"
)

// Server is the diagnostics HTTP server.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewRouter builds the diagnostics routes. Exposed separately so
// embedders can mount them under their own HTTP stack.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/channels", handleChannels)
	return r
}

func handleChannels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(transport.Channels()); err != nil {
		relay.Logger().Warn("diag: encoding channel snapshot", "err", err)
	}
}

// Listen binds addr and starts serving diagnostics in the background.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		srv: &http.Server{
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln: ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			relay.Logger().Error("diag: server stopped", "err", err)
		}
	}()
	relay.Logger().Info("diag: serving diagnostics", "addr", ln.Addr())
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
