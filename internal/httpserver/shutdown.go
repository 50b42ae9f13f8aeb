package httpserver

import (
	"context"
	"fmt"
	"time"
)

// ShutdownTimeout bounds how long in-flight webhook deliveries get to finish.
var ShutdownTimeout = 10 * time.Second

// Stop drains in-flight requests, waiting at most ShutdownTimeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.inner.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
