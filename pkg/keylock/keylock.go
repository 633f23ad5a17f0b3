// Package keylock provides a per-key mutual-exclusion registry.
//
// Callers that share a logical resource (for example "don't run two saves
// for the same record concurrently") acquire the lock for that resource's
// key; the registry guarantees the same key always yields the same lock
// instance. Locking discipline is the caller's: Acquire returns the mutex,
// it does not lock it.
//
// The registry grows monotonically and never evicts. The key space is
// bounded by field and record names, so this is acceptable for the process
// lifetime.
package keylock

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps keys to lock instances, creating them atomically on first
// use. The zero value is not usable; construct with NewRegistry. Registries
// are injected rather than process-global so tests and multiple apps can
// hold independent lock spaces.
type Registry struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: xsync.NewMapOf[string, *sync.Mutex]()}
}

// Acquire returns the lock instance for key, creating it on first use.
// Concurrent calls for the same key never produce duplicate instances.
func (r *Registry) Acquire(key string) *sync.Mutex {
	lock, _ := r.locks.LoadOrCompute(key, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return lock
}

// Len reports how many distinct keys have locks.
func (r *Registry) Len() int {
	return r.locks.Size()
}
