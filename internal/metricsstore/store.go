// Package metricsstore provides A4's optional, embedded history of catalog
// refreshes and tool-call outcomes. It is strictly observational: nothing
// in the routing or health path ever reads back from it, and a failure to
// open or write the database degrades to in-memory-only operation rather
// than surfacing as a request error.
package metricsstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/native"
	"github.com/mcp-fleet/gateway/internal/router"
)

const writeQueueSize = 512

// RefreshEvent is one upstream's outcome during a single catalog refresh.
type RefreshEvent struct {
	Timestamp time.Time
	Upstream  string
	Status    string
	ToolCount int
	LatencyMS int64
}

// CallEvent is one dispatched tool call's outcome.
type CallEvent struct {
	Timestamp    time.Time
	PrefixedName string
	Upstream     string
	Outcome      string
	LatencyMS    int64
}

// Store is a fire-and-forget writer over an embedded SQLite database.
// Open returns either a working Store or a non-nil error. Every method is
// a no-op on a nil *Store, so a caller that runs degraded after a failed
// Open can keep using the nil value, matching the teacher's "open once at
// startup, log and continue on failure" shape.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	refreshCh chan RefreshEvent
	callCh    chan CallEvent
	stopCh    chan struct{}
	done      chan struct{}
}

// Open creates (if needed) and migrates the SQLite database at path, then
// starts the background writer goroutine.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single-writer discipline

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:        db,
		logger:    logger,
		refreshCh: make(chan RefreshEvent, writeQueueSize),
		callCh:    make(chan CallEvent, writeQueueSize),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS refresh_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			upstream TEXT NOT NULL,
			status TEXT NOT NULL,
			tool_count INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS call_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			prefixed_name TEXT NOT NULL,
			upstream TEXT NOT NULL,
			outcome TEXT NOT NULL,
			latency_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_refresh_history_ts ON refresh_history(timestamp);
		CREATE INDEX IF NOT EXISTS idx_call_history_ts ON call_history(timestamp);
	`)
	return err
}

// RecordRefresh enqueues a refresh event. Never blocks the caller: a full
// queue drops the event and logs a warning rather than stalling a catalog
// refresh on disk I/O.
func (s *Store) RecordRefresh(e RefreshEvent) {
	if s == nil {
		return
	}
	select {
	case s.refreshCh <- e:
	default:
		s.logger.Warn("metrics store refresh queue full, dropping event", "upstream", e.Upstream)
	}
}

// RecordCall enqueues a tool-call outcome event. Same non-blocking
// discipline as RecordRefresh.
func (s *Store) RecordCall(e CallEvent) {
	if s == nil {
		return
	}
	select {
	case s.callCh <- e:
	default:
		s.logger.Warn("metrics store call queue full, dropping event", "tool", e.PrefixedName)
	}
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stopCh:
			return
		case e := <-s.refreshCh:
			if _, err := s.db.Exec(
				`INSERT INTO refresh_history (timestamp, upstream, status, tool_count, latency_ms) VALUES (?, ?, ?, ?, ?)`,
				e.Timestamp, e.Upstream, e.Status, e.ToolCount, e.LatencyMS,
			); err != nil {
				s.logger.Warn("metrics store write failed", "table", "refresh_history", "error", err)
			}
		case e := <-s.callCh:
			if _, err := s.db.Exec(
				`INSERT INTO call_history (timestamp, prefixed_name, upstream, outcome, latency_ms) VALUES (?, ?, ?, ?, ?)`,
				e.Timestamp, e.PrefixedName, e.Upstream, e.Outcome, e.LatencyMS,
			); err != nil {
				s.logger.Warn("metrics store write failed", "table", "call_history", "error", err)
			}
		}
	}
}

// RecentRefreshes returns the most recent refresh events, newest first,
// for the gateway_status native tool's optional history field and the
// /health endpoint's optional recent field.
func (s *Store) RecentRefreshes(ctx context.Context, limit int) ([]RefreshEvent, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, upstream, status, tool_count, latency_ms FROM refresh_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RefreshEvent
	for rows.Next() {
		var e RefreshEvent
		if err := rows.Scan(&e.Timestamp, &e.Upstream, &e.Status, &e.ToolCount, &e.LatencyMS); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) recordCatalogRefresh(rec catalog.RefreshRecord) {
	s.RecordRefresh(RefreshEvent{
		Timestamp: rec.Timestamp,
		Upstream:  rec.Upstream,
		Status:    string(rec.Status),
		ToolCount: rec.ToolCount,
		LatencyMS: rec.LatencyMS,
	})
}

// CatalogSink adapts a Store to catalog.RefreshRecorder.
type CatalogSink struct{ Store *Store }

// RecordRefresh satisfies catalog.RefreshRecorder.
func (c CatalogSink) RecordRefresh(rec catalog.RefreshRecord) {
	c.Store.recordCatalogRefresh(rec)
}

// NativeHistorySource adapts a Store to native.RefreshHistory, for
// gateway_status's optional history field.
type NativeHistorySource struct{ Store *Store }

// RecentRefreshes satisfies native.RefreshHistory.
func (n NativeHistorySource) RecentRefreshes(ctx context.Context, limit int) ([]native.HistoryEvent, error) {
	events, err := n.Store.RecentRefreshes(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]native.HistoryEvent, len(events))
	for i, e := range events {
		out[i] = native.HistoryEvent{
			Timestamp: e.Timestamp,
			Upstream:  e.Upstream,
			Status:    e.Status,
			ToolCount: e.ToolCount,
			LatencyMS: e.LatencyMS,
		}
	}
	return out, nil
}

// DispatcherSink adapts a Store to router.CallRecorder.
type DispatcherSink struct{ Store *Store }

// RecordCall satisfies router.CallRecorder.
func (d DispatcherSink) RecordCall(outcome router.CallOutcome) {
	d.Store.RecordCall(CallEvent{
		Timestamp:    time.Now(),
		PrefixedName: outcome.PrefixedName,
		Upstream:     outcome.Upstream,
		Outcome:      outcome.Outcome,
		LatencyMS:    outcome.LatencyMS,
	})
}

// Close stops the writer goroutine and closes the database. Idempotent
// from the caller's perspective: Close on a nil *Store is a no-op.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.stopCh)
	<-s.done
	return s.db.Close()
}
