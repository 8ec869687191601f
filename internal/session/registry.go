package session

import (
	"sync"
	"time"
)

// Registry is the process-wide, concurrency-safe mapping from sessionId to
// PushSession. Every PushSession is reachable from exactly one Registry,
// and entries are removed exactly once - mirroring the teacher's
// MemorySessionStore shape (map + RWMutex + idle-sweep goroutine +
// idempotent Stop).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*PushSession

	idleTimeout time.Duration
	stopOnce    sync.Once
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewRegistry creates an empty registry. idleTimeout of zero disables the
// idle sweep (sessions are closed only on stream disconnect or shutdown).
func NewRegistry(idleTimeout time.Duration) *Registry {
	return &Registry{
		sessions:    make(map[string]*PushSession),
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
	}
}

// Create mints a new session and registers it.
func (r *Registry) Create(queueSize int, onDrop func()) (*PushSession, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	s := New(id, queueSize, onDrop)
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*PushSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Drop closes and removes a session from the registry. Safe to call more
// than once; the second call is a no-op.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len reports the number of live sessions, for the active-sessions gauge.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StartIdleSweep launches a background goroutine that drops sessions idle
// longer than idleTimeout. No-op if idleTimeout is zero.
func (r *Registry) StartIdleSweep(interval time.Duration) {
	if r.idleTimeout <= 0 {
		return
	}
	if interval <= 0 {
		interval = r.idleTimeout / 4
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.sweepIdle()
			}
		}
	}()
}

func (r *Registry) sweepIdle() {
	r.mu.RLock()
	var stale []string
	for id, s := range r.sessions {
		if s.IdleSince() > r.idleTimeout {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()
	for _, id := range stale {
		r.Drop(id)
	}
}

// Stop halts the idle sweep and closes every live session, for graceful
// shutdown. Idempotent.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()

	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Drop(id)
	}
}
