package syncer

import "sync"

// entityLocks serializes in-flight syncs per entity. Two concurrent syncs of
// the same group would otherwise interleave partial membership diffs against
// the same remote resource.
type entityLocks struct {
	mu   sync.Mutex
	held map[string]*sync.Mutex
}

func newEntityLocks() *entityLocks {
	return &entityLocks{held: make(map[string]*sync.Mutex)}
}

// acquire blocks until the entity's lock is free and returns its release
// function. Locks are never reclaimed; the entity population is small and
// long-lived.
func (l *entityLocks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.held[key]
	if !ok {
		m = &sync.Mutex{}
		l.held[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
