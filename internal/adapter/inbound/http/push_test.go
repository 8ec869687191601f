package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEventsHandler_EndpointAnnouncement(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	srv.pushKeepalive = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.eventsHandler(rec, req)
		close(done)
	}()

	// Give the handler a moment to write the endpoint event, then tear down
	// the connection the way a client disconnect would.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eventsHandler did not return after context cancellation")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: endpoint") {
		t.Fatalf("expected endpoint event, got: %q", body)
	}
	if !strings.Contains(body, "data: /events/") {
		t.Fatalf("expected endpoint data with session path, got: %q", body)
	}
}

func TestEventsMessageHandler_DeliversOverEvents(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	srv.pushKeepalive = time.Hour

	sess, err := srv.sessions.Create(srv.pushQueueSize, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/events/"+sess.ID+"/message",
		bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	req.SetPathValue("sessionId", sess.ID)
	rec := httptest.NewRecorder()

	srv.eventsMessageHandler(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	select {
	case envelope := <-sess.Outbound():
		if !strings.Contains(string(envelope), "protocolVersion") {
			t.Errorf("expected initialize result on outbound queue, got %s", envelope)
		}
	case <-time.After(time.Second):
		t.Fatal("expected reply enqueued onto push session")
	}
}

func TestEventsMessageHandler_UnknownSession(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	req := httptest.NewRequest(http.MethodPost, "/events/does-not-exist/message", bytes.NewBufferString(`{}`))
	req.SetPathValue("sessionId", "does-not-exist")
	rec := httptest.NewRecorder()

	srv.eventsMessageHandler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
