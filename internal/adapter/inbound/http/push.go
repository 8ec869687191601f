package http

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// eventsHandler opens a long-lived SSE stream: one push session per
// connection, announced via an initial "endpoint" event naming the
// companion message-submission URL, then a message per catalog/tool-call
// reply as it's enqueued.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	logger := LoggerFromContext(r.Context())
	var sessID atomic.Value
	sess, err := s.sessions.Create(s.pushQueueSize, func() {
		s.metrics.PushQueueDropsTotal.Inc()
		id, _ := sessID.Load().(string)
		logger.Warn("push session queue full, dropped oldest envelope", "session_id", id, "queue_depth", s.pushQueueSize)
	})
	if err != nil {
		logger.Error("failed to create push session", "error", err)
		http.Error(w, "failed to open session", http.StatusInternalServerError)
		return
	}
	sessID.Store(sess.ID)
	s.metrics.ActiveSessions.Inc()
	defer func() {
		s.sessions.Drop(sess.ID)
		s.metrics.ActiveSessions.Dec()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /events/%s/message\n\n", sess.ID)
	flusher.Flush()

	keepalive := s.pushKeepalive
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				logger.Debug("push session keepalive write failed", "session_id", sess.ID, "error", err)
				return
			}
			flusher.Flush()
		case envelope, open := <-sess.Outbound():
			if !open {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", envelope)
			flusher.Flush()
		}
	}
}

type pushAckResponse struct {
	Status string `json:"status"`
}

// eventsMessageHandler accepts a client-submitted JSON-RPC body for a given
// push session, runs it through the shared pipeline, and enqueues the reply
// onto that session's outbound SSE queue instead of writing it directly -
// the reply is delivered asynchronously over /events.
func (s *Server) eventsMessageHandler(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.PathValue("sessionId")
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request body too large or unreadable", http.StatusBadRequest)
		return
	}

	sess.Touch()
	reply := s.pipeline.Handle(r.Context(), body)
	if reply != nil {
		sess.Enqueue(reply)
	}

	writeJSON(w, http.StatusAccepted, pushAckResponse{Status: "ok"})
}

