package player

import (
	"sync"
	"time"
)

// EngineKey identifies a distinct engine process: a binary plus an Elo
// section (a strength-limiting configuration, e.g. "1200" or "full"), so
// that the engine player, hint assistant, and hand-brain assistant can all
// share one process per configuration instead of spawning one each.
type EngineKey struct {
	Name       string
	EloSection string
}

type registryEntry struct {
	driver   *uciDriver
	path     string
	args     []string
	refCount int
	evictAt  *time.Timer
}

// Registry deduplicates engine processes across features: at most one
// process exists per (name, elo_section); reference counting keeps it
// alive while any consumer holds it, and it is killed once the registry's
// evictAfter duration has passed since the last release.
type Registry struct {
	mu         sync.Mutex
	entries    map[EngineKey]*registryEntry
	evictAfter time.Duration
}

// NewRegistry constructs a registry that evicts idle engines after
// evictAfter (spec.md's "T seconds").
func NewRegistry(evictAfter time.Duration) *Registry {
	if evictAfter == 0 {
		evictAfter = 60 * time.Second
	}
	return &Registry{entries: make(map[EngineKey]*registryEntry), evictAfter: evictAfter}
}

// Acquire returns a handle to the engine process for key, starting it if
// necessary. Release must be called exactly once per Acquire.
func (r *Registry) Acquire(key EngineKey, path string, args ...string) (*uciDriver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		if e.evictAt != nil {
			e.evictAt.Stop()
			e.evictAt = nil
		}
		e.refCount++
		return e.driver, nil
	}

	d, err := startUCIDriver(path, args...)
	if err != nil {
		return nil, err
	}
	if err := d.handshake(10 * time.Second); err != nil {
		d.stop()
		return nil, err
	}
	r.entries[key] = &registryEntry{driver: d, path: path, args: args, refCount: 1}
	return d, nil
}

// Release decrements the reference count for key; at zero, the process is
// scheduled for eviction after evictAfter rather than killed immediately,
// so a quick sequence of acquire/release (e.g. hint then hand-brain on the
// same move) reuses the warm process.
func (r *Registry) Release(key EngineKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refCount--
	if e.refCount > 0 {
		return
	}
	e.evictAt = time.AfterFunc(r.evictAfter, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.entries[key]; ok && cur.refCount == 0 {
			cur.driver.stop()
			delete(r.entries, key)
		}
	})
}

// Close stops every engine process immediately, used at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		if e.evictAt != nil {
			e.evictAt.Stop()
		}
		e.driver.stop()
		delete(r.entries, key)
	}
}
