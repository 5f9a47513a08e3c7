// Package arealock serializes writers per area. The area document is the unit
// of mutation, and both the scan pipeline and administrative actions perform
// read-modify-write cycles on it; a per-key mutex keeps those cycles from
// interleaving within this process.
package arealock

import "sync"

// Registry hands out one mutex per area id. Mutexes are never released; the
// set of active areas is small and bounded by deployments, not requests.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the area id and returns its unlock function.
func (r *Registry) Lock(areaID string) func() {
	r.mu.Lock()
	m, ok := r.locks[areaID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[areaID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
