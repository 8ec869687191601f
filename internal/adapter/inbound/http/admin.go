package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/native"
)

// RefreshHistory is the optional history source backing /health's "recent"
// field, satisfied by A4's metrics store.
type RefreshHistory interface {
	RecentRefreshes(ctx context.Context, limit int) ([]native.HistoryEvent, error)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type rootResponse struct {
	Status    string   `json:"status"`
	ToolCount int      `json:"toolCount"`
	Backends  []string `json:"backends"`
}

// rootHandler answers GET / with a one-glance summary of the gateway and
// its configured backends.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := s.cat.HealthReport()
	backends := make([]string, 0, len(report.Health))
	for name := range report.Health {
		backends = append(backends, name)
	}

	writeJSON(w, http.StatusOK, rootResponse{
		Status:    "healthy",
		ToolCount: report.ToolCount,
		Backends:  backends,
	})
}

type refreshResponse struct {
	Status    string                            `json:"status"`
	ToolCount int                               `json:"toolCount"`
	Timestamp time.Time                         `json:"timestamp"`
	Health    map[string]catalog.HealthRecord `json:"health"`
}

// refreshHandler answers POST /refresh by forcing an immediate catalog
// rebuild and reporting the result, the operator-facing counterpart to the
// lazy TTL-driven refresh that List performs on a stale catalog.
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.cat.Refresh(r.Context()); err != nil {
		logger := LoggerFromContext(r.Context())
		logger.Error("forced catalog refresh failed", "error", err)
	}

	report := s.cat.HealthReport()
	writeJSON(w, http.StatusOK, refreshResponse{
		Status:    "refreshed",
		ToolCount: report.ToolCount,
		Timestamp: report.LastRefresh,
		Health:    report.Health,
	})
}

type toolsResponse struct {
	ToolCount int                               `json:"toolCount"`
	Backends  map[string][]string               `json:"backends"`
	Health    map[string]catalog.HealthRecord `json:"health"`
}

// toolsHandler answers GET /tools with the full current catalog, grouped by
// owning backend, for operator inspection.
func (s *Server) toolsHandler(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := s.cat.Entries()
	byBackend := make(map[string][]string)
	for _, e := range entries {
		byBackend[e.Upstream.Name] = append(byBackend[e.Upstream.Name], e.PrefixedName)
	}

	writeJSON(w, http.StatusOK, toolsResponse{
		ToolCount: len(entries),
		Backends:  byBackend,
		Health:    s.cat.HealthReport().Health,
	})
}

type healthResponse struct {
	LastRefresh time.Time                  `json:"lastRefresh"`
	ToolCount   int                        `json:"toolCount"`
	Backends    map[string]catalog.HealthRecord `json:"backends"`
	Recent      []native.HistoryEvent      `json:"recent,omitempty"`
}

// healthHandler answers GET /health with catalog freshness and per-backend
// probe status, the catalog-centric counterpart to the teacher's
// session/rate-limiter-centric HealthChecker. When a history source is
// attached, it also includes the most recent refresh events.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := s.cat.HealthReport()
	resp := healthResponse{
		LastRefresh: report.LastRefresh,
		ToolCount:   report.ToolCount,
		Backends:    report.Health,
	}

	if s.history != nil {
		if events, err := s.history.RecentRefreshes(r.Context(), 10); err != nil {
			LoggerFromContext(r.Context()).Warn("failed to read refresh history", "error", err)
		} else {
			resp.Recent = events
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
