package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"crawlchat/internal/config"
	"crawlchat/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server serves the relay handler at every path.
type Server struct {
	cfg    config.Relay
	logger *logging.Logger
	server *http.Server
}

// NewServer builds the relay for cfg. The credential is read from the
// environment variable cfg.APIKeyEnv on each request.
func NewServer(cfg config.Relay, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.server = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(NewHandler(cfg.Upstream, EnvCredential(cfg.APIKeyEnv))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          logger.StdLogger(),
	}
	return s
}

// Handler wraps h in the relay's middleware chain.
func (s *Server) Handler(h http.Handler) http.Handler {
	mws := []Middleware{
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
	}
	if s.cfg.RateLimit > 0 {
		mws = append(mws, RateLimitMiddleware(NewClientLimiter(s.cfg.RateLimit, s.cfg.Burst), s.logger))
	}
	return Chain(mws...)(h)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. In-flight streams get shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.server.Serve(ln)
	}()

	s.logger.Info("relay listening on %s, forwarding to %s", ln.Addr(), s.cfg.Upstream)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("relay shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down relay: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}
