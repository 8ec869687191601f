package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcp-fleet/gateway/internal/ctxkey"
)

// requestIDHeader is echoed back to callers so logs can be correlated with
// client-side traces.
const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware assigns a request ID (or reuses an inbound one) and
// enriches the request-scoped logger with it, the way the teacher's
// middleware chain does before any handler logic runs.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			reqLogger := logger.With("request_id", requestID)
			ctx := context.WithValue(r.Context(), ctxkey.LoggerKey{}, reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext returns the request-scoped logger installed by
// RequestIDMiddleware, falling back to the package default.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// corsHeaders applies the permissive CORS posture the spec's browser-facing
// SSE endpoints need; client authentication is out of scope, so this is
// plain header hygiene rather than an access-control boundary.
func corsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
}
