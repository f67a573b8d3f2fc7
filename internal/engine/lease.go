package engine

import "sync"

// LeaseRegistry is the single-flight lock: at most one holder per key.
// Unlike a coalescing group, duplicate acquirers are rejected outright so
// the caller can surface "already computing" instead of silently sharing
// a result. Construct isolated instances per orchestrator; there is no
// package-level registry.
type LeaseRegistry struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLeaseRegistry creates an empty registry.
func NewLeaseRegistry() *LeaseRegistry {
	return &LeaseRegistry{held: make(map[string]struct{})}
}

// Acquire takes the lease for key. Returns false if it is already held.
func (r *LeaseRegistry) Acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[key]; ok {
		return false
	}
	r.held[key] = struct{}{}
	return true
}

// Release frees the lease for key. Releasing an unheld key is a no-op.
func (r *LeaseRegistry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, key)
}

// Held reports whether the lease for key is currently taken.
func (r *LeaseRegistry) Held(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[key]
	return ok
}
