package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/mcp-fleet/gateway/internal/port"
)

var tracer = otel.Tracer("mcp-gateway/catalog")

// DefaultRefreshTTL is how long a built catalog is considered fresh before a
// list/call triggers a lazy refresh.
const DefaultRefreshTTL = 300 * time.Second

// DefaultListTimeout is the per-upstream timeout for tools/list during a
// refresh, used when UpstreamConfig.RequestTimeout is zero.
const DefaultListTimeout = 30 * time.Second

// Catalog is the process-wide, concurrently-read merged tool directory. It
// is mutated only by Refresh, which commits a whole new Snapshot via a
// single atomic pointer swap so readers never observe a mixed state -
// the copy-on-write discipline the design notes call for in place of a
// hand-rolled sync.Once barrier.
type Catalog struct {
	upstreams  []UpstreamConfig
	client     port.UpstreamClient
	refreshTTL time.Duration
	logger     *slog.Logger
	history    RefreshRecorder

	snap  atomic.Pointer[Snapshot]
	group singleflight.Group
}

// RefreshRecorder is the narrow interface A4's metrics store satisfies,
// kept here (rather than importing metricsstore) so the catalog has no
// dependency on how or whether refresh history is persisted.
type RefreshRecorder interface {
	RecordRefresh(RefreshRecord)
}

// SetHistoryRecorder attaches an optional refresh-history sink. Safe to
// call with nil to disable (the default).
func (c *Catalog) SetHistoryRecorder(r RefreshRecorder) {
	c.history = r
}

// MultiRefreshRecorder fans one refresh outcome out to several sinks - the
// gateway attaches both the Prometheus counter and, when enabled, A4's
// metrics store this way.
type MultiRefreshRecorder []RefreshRecorder

// RecordRefresh satisfies RefreshRecorder by forwarding to every sink.
func (m MultiRefreshRecorder) RecordRefresh(rec RefreshRecord) {
	for _, r := range m {
		if r != nil {
			r.RecordRefresh(rec)
		}
	}
}

// New creates an empty Catalog over the given (already-validated) upstream
// table. Refresh must be called at least once (normally at startup) before
// List/Lookup return anything.
func New(upstreams []UpstreamConfig, client port.UpstreamClient, refreshTTL time.Duration, logger *slog.Logger) *Catalog {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		upstreams:  upstreams,
		client:     client,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
	c.snap.Store(&Snapshot{
		Entries: make(map[string]CatalogEntry),
		Health:  make(map[string]HealthRecord),
	})
	return c
}

// current returns the live snapshot. Never nil after New.
func (c *Catalog) current() *Snapshot {
	return c.snap.Load()
}

// needsRefresh reports whether the current snapshot is stale enough that a
// list/call should trigger a lazy background-equivalent refresh.
func (c *Catalog) needsRefresh() bool {
	s := c.current()
	if s.LastRefresh.IsZero() {
		return true
	}
	return time.Since(s.LastRefresh) > c.refreshTTL
}

// List returns the current merged schemas, triggering a refresh first if the
// catalog is stale. Order is stable (sorted by prefixed name) between
// refreshes but otherwise unspecified.
func (c *Catalog) List(ctx context.Context) []ToolSchema {
	if c.needsRefresh() {
		_ = c.Refresh(ctx)
	}
	s := c.current()
	out := make([]ToolSchema, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup resolves a prefixed tool name to its CatalogEntry. It never
// triggers a refresh - callers that need freshness call List first.
func (c *Catalog) Lookup(prefixedName string) (CatalogEntry, bool) {
	s := c.current()
	e, ok := s.Entries[prefixedName]
	return e, ok
}

// Entries returns the current catalog entries, unsorted. Used by operator
// surfaces (/tools) that want upstream attribution alongside each tool.
func (c *Catalog) Entries() []CatalogEntry {
	s := c.current()
	out := make([]CatalogEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e)
	}
	return out
}

// HealthReport returns a snapshot of per-upstream health plus aggregate
// counters, for the gateway_status native tool and the /health endpoint.
func (c *Catalog) HealthReport() Snapshot {
	s := c.current()
	health := make(map[string]HealthRecord, len(s.Health))
	for k, v := range s.Health {
		health[k] = v
	}
	return Snapshot{
		Health:      health,
		LastRefresh: s.LastRefresh,
		ToolCount:   len(s.Entries),
	}
}

// Refresh rebuilds the catalog from all enabled upstreams and publishes the
// result atomically. Concurrent callers collapse onto a single in-flight
// refresh via singleflight, satisfying the "at most one refresh in flight"
// requirement without a hand-rolled barrier.
func (c *Catalog) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		c.doRefresh(ctx)
		return nil, nil
	})
	return err
}

type stagedEntry struct {
	entry    CatalogEntry
	priority int
	seq      int
}

func (c *Catalog) doRefresh(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "catalog.refresh")
	defer span.End()

	enabled := make([]UpstreamConfig, 0, len(c.upstreams))
	for _, u := range c.upstreams {
		if u.Enabled {
			enabled = append(enabled, u)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Priority < enabled[j].Priority })

	staged := make(map[string]stagedEntry)
	health := make(map[string]HealthRecord, len(enabled))
	seq := 0

	for _, up := range enabled {
		upCtx, upSpan := tracer.Start(ctx, "catalog.refresh_upstream", trace.WithAttributes(
			attribute.String("upstream", up.Name),
			attribute.String("prefix", up.Prefix),
		))

		rec := HealthRecord{Status: HealthUnknown, LastProbeAt: time.Now()}
		prevHealth, hadPrev := c.current().Health[up.Name]

		if up.HealthEnabled {
			if !c.client.Probe(upCtx, up) {
				rec.Status = HealthUnhealthy
				rec.LastError = "probe failed"
				rec.ConsecutiveFailures = consecutiveFailures(prevHealth, hadPrev) + 1
				health[up.Name] = rec
				c.recordHistory(up.Name, rec.Status, 0, 0)
				upSpan.SetStatus(codes.Error, rec.LastError)
				upSpan.End()
				continue
			}
		}

		timeout := up.RequestTimeout
		if timeout <= 0 {
			timeout = DefaultListTimeout
		}

		start := time.Now()
		env, err := c.client.Call(upCtx, up, "tools/list", map[string]any{}, timeout)
		latency := time.Since(start)

		if err != nil {
			rec.Status = classifyTransportFailure(err)
			rec.LastError = err.Error()
			rec.ConsecutiveFailures = consecutiveFailures(prevHealth, hadPrev) + 1
			health[up.Name] = rec
			c.recordHistory(up.Name, rec.Status, 0, latency)
			upSpan.RecordError(err)
			upSpan.SetStatus(codes.Error, rec.LastError)
			upSpan.End()
			continue
		}
		if env.Error != nil {
			rec.Status = HealthError
			rec.LastError = env.Error.Message
			rec.ConsecutiveFailures = consecutiveFailures(prevHealth, hadPrev) + 1
			health[up.Name] = rec
			c.recordHistory(up.Name, rec.Status, 0, latency)
			upSpan.SetStatus(codes.Error, rec.LastError)
			upSpan.End()
			continue
		}

		tools := parseToolsListResult(env.Result)
		for _, schema := range tools {
			prefixed := up.Prefix + "_" + schema.Name
			rewritten := ToolSchema{
				Name:        prefixed,
				Description: fmt.Sprintf("[%s] %s", up.Prefix, schema.Description),
				InputSchema: schema.InputSchema,
			}
			entry := CatalogEntry{
				PrefixedName: prefixed,
				OriginalName: schema.Name,
				Upstream:     up,
				Schema:       rewritten,
			}

			if existing, conflict := staged[prefixed]; conflict {
				// Earlier (lower priority, then insertion order) wins.
				if existing.priority < up.Priority || (existing.priority == up.Priority && existing.seq < seq) {
					c.logger.Warn("tool name conflict, dropping later entry",
						"tool", prefixed, "winner", existing.entry.Upstream.Name, "loser", up.Name)
					rec.ShadowedNames = append(rec.ShadowedNames, prefixed)
					continue
				}
			}
			staged[prefixed] = stagedEntry{entry: entry, priority: up.Priority, seq: seq}
			seq++
		}

		rec.Status = HealthHealthy
		rec.ToolCount = len(tools)
		rec.ConsecutiveFailures = 0
		health[up.Name] = rec
		c.recordHistory(up.Name, rec.Status, rec.ToolCount, latency)
		upSpan.SetAttributes(attribute.Int("tool_count", rec.ToolCount))
		upSpan.End()
	}

	entries := make(map[string]CatalogEntry, len(staged))
	for name, s := range staged {
		entries[name] = s.entry
	}

	next := &Snapshot{
		Entries:     entries,
		Health:      health,
		LastRefresh: time.Now(),
		ToolCount:   len(entries),
	}
	c.snap.Store(next)
}

// recordHistory forwards one upstream's refresh outcome to the optional
// history sink. A no-op when no sink is attached.
func (c *Catalog) recordHistory(upstream string, status HealthStatus, toolCount int, latency time.Duration) {
	if c.history == nil {
		return
	}
	c.history.RecordRefresh(RefreshRecord{
		Timestamp: time.Now(),
		Upstream:  upstream,
		Status:    status,
		ToolCount: toolCount,
		LatencyMS: latency.Milliseconds(),
	})
}

func consecutiveFailures(prev HealthRecord, had bool) int {
	if !had {
		return 0
	}
	return prev.ConsecutiveFailures
}

func classifyTransportFailure(err error) HealthStatus {
	var timeoutErr interface{ Timeout() bool }
	if e, ok := err.(interface{ Timeout() bool }); ok {
		timeoutErr = e
	}
	if timeoutErr != nil && timeoutErr.Timeout() {
		return HealthTimeout
	}
	return HealthError
}

// parseToolsListResult extracts result.tools from a tools/list Envelope
// result, defaulting to empty on any shape mismatch.
func parseToolsListResult(raw json.RawMessage) []ToolSchema {
	if len(raw) == 0 {
		return nil
	}
	var body struct {
		Tools []ToolSchema `json:"tools"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body.Tools
}
