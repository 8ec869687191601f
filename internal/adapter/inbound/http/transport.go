// Package http provides the gateway's HTTP transport front-end (C5): a
// synchronous JSON-RPC endpoint, a push (SSE) endpoint pair, and the
// operator-facing admin surface, all sharing one request Pipeline.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/native"
	"github.com/mcp-fleet/gateway/internal/router"
	"github.com/mcp-fleet/gateway/internal/session"
)

// Server is the gateway's HTTP front-end: one mux, one middleware chain,
// one shared Pipeline feeding both the sync and push endpoints.
type Server struct {
	addr          string
	httpServer    *http.Server
	logger        *slog.Logger
	metrics       *Metrics
	cat           *catalog.Catalog
	pipeline      *Pipeline
	sessions      *session.Registry
	pushQueueSize int
	pushKeepalive time.Duration
	history       RefreshHistory
}

// Option configures a Server at construction time, the functional-options
// shape the teacher's transport layer uses throughout.
type Option func(*Server)

// WithLogger installs a structured logger; defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithPushQueueSize overrides the default per-session outbound queue depth.
func WithPushQueueSize(n int) Option {
	return func(s *Server) { s.pushQueueSize = n }
}

// WithPushKeepalive overrides the SSE keepalive comment interval.
func WithPushKeepalive(d time.Duration) Option {
	return func(s *Server) { s.pushKeepalive = d }
}

// WithRefreshHistory attaches A4's metrics store as the source for
// /health's optional "recent" field. Omit to leave it empty.
func WithRefreshHistory(h RefreshHistory) Option {
	return func(s *Server) { s.history = h }
}

// NewServer wires the mux, middleware chain, and shared Pipeline.
func NewServer(
	addr string,
	cat *catalog.Catalog,
	nativeTools *native.Registry,
	dispatcher *router.Dispatcher,
	sessions *session.Registry,
	metrics *Metrics,
	version string,
	opts ...Option,
) *Server {
	s := &Server{
		addr:          addr,
		logger:        slog.Default(),
		metrics:       metrics,
		cat:           cat,
		sessions:      sessions,
		pushQueueSize: session.DefaultQueueSize,
		pushKeepalive: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pipeline = NewPipeline(cat, nativeTools, dispatcher, s.logger, version)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.rootHandler)
	mux.HandleFunc("POST /mcp", s.mcpHandler)
	mux.HandleFunc("OPTIONS /mcp", s.mcpHandler)
	mux.HandleFunc("GET /events", s.eventsHandler)
	mux.HandleFunc("OPTIONS /events", s.eventsHandler)
	mux.HandleFunc("POST /events/{sessionId}/message", s.eventsMessageHandler)
	mux.HandleFunc("POST /refresh", s.refreshHandler)
	mux.HandleFunc("GET /tools", s.toolsHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))

	handler := RequestIDMiddleware(s.logger)(MetricsMiddleware(metrics)(mux))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully, mirroring the teacher's Start/shutdown split.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.sessions.Stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
