package simhost

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server runs a Host on a TCP listener.
type Server struct {
	Host *Host
	ln   net.Listener
	srv  *http.Server
}

// Listen binds addr (host:port; port 0 picks one) without serving yet.
func Listen(addr string, opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	h := New(opts)
	return &Server{
		Host: h,
		ln:   ln,
		srv:  &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second},
	}, nil
}

// URL is the base URL clients should use.
func (s *Server) URL() string { return "http://" + s.ln.Addr().String() }

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		if err := s.Serve(); err != nil {
			s.Host.log.Error().Err(err).Msg("simhost serve failed")
		}
	}()
}

// Shutdown ends event streams first so the HTTP server can drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Host.Close()
	return s.srv.Shutdown(ctx)
}
