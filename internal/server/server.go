package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	httpServer *http.Server
}

const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// DefaultPort is used when the configured port is empty.
const DefaultPort = "8080"

// New builds a server for port ("8080" or ":8080").
func New(port string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              normalizeAddr(port),
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}}
}

func normalizeAddr(port string) string {
	if port == "" {
		port = DefaultPort
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// Addr is the listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Run listens on Addr and serves until Shutdown. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
