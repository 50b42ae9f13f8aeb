package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server owns the public HTTP listener for webhooks and upload requests.
type Server struct {
	inner *http.Server
}

// New builds a server on the given port. Read and write timeouts leave room
// for provider webhook bodies and upstream upload calls. Errors raised by
// net/http itself are routed to logger at warn level.
func New(port int, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    64 << 10,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start serves until Stop is called, then returns http.ErrServerClosed.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}
