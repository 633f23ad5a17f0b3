// Package registry manages the named data resources of one application:
// the remote collections pages bind to and the standalone objects the
// platform exposes. It provides thread-safe registration and lookup.
package registry

import (
	"fmt"
	"sync"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/relay"
)

// Collection couples a remote data collection with the local field it
// populates and the relay it is fetched through.
type Collection struct {
	// ID is the collection's registry identifier.
	ID string

	// Name is the human-readable collection name.
	Name string

	// Field is the local field the collection binds to by default.
	Field string

	// Relay is the transport this collection is fetched through.
	Relay relay.Relay

	// Lookup marks reference datasets eligible for label indexing.
	Lookup bool
}

// Object is a standalone registered object.
type Object struct {
	ID   string
	Name string
}

// Registry holds an application's collections and objects.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.RegisterCollection(&Collection{ID: "countries", Field: "countries", Relay: rel})
//	col, err := reg.FindCollectionByID("countries")
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	objects     map[string]*Object
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		collections: make(map[string]*Collection),
		objects:     make(map[string]*Object),
	}
}

// RegisterCollection adds a collection to the registry.
// Returns an error if a collection with the same id already exists.
func (r *Registry) RegisterCollection(c *Collection) error {
	if c == nil {
		return fmt.Errorf("cannot register nil collection")
	}
	if c.ID == "" {
		return fmt.Errorf("cannot register collection with empty id")
	}
	if c.Relay == nil {
		return fmt.Errorf("cannot register collection %q without a relay", c.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[c.ID]; exists {
		return fmt.Errorf("collection %q already registered", c.ID)
	}

	r.collections[c.ID] = c
	return nil
}

// RegisterObject adds an object to the registry.
// Returns an error if an object with the same id already exists.
func (r *Registry) RegisterObject(o *Object) error {
	if o == nil {
		return fmt.Errorf("cannot register nil object")
	}
	if o.ID == "" {
		return fmt.Errorf("cannot register object with empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[o.ID]; exists {
		return fmt.Errorf("object %q already registered", o.ID)
	}

	r.objects[o.ID] = o
	return nil
}

// FindCollectionByID retrieves a collection by id.
// Returns nil, error if the collection doesn't exist.
func (r *Registry) FindCollectionByID(id string) (*Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.collections[id]
	if !exists {
		return nil, fmt.Errorf("collection %q not found", id)
	}
	return c, nil
}

// FindObjectByID retrieves an object by id.
// Returns nil, error if the object doesn't exist.
func (r *Registry) FindObjectByID(id string) (*Object, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, exists := r.objects[id]
	if !exists {
		return nil, fmt.Errorf("object %q not found", id)
	}
	return o, nil
}

// ListCollections returns all registered collection ids.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListCollections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.collections))
	for id := range r.collections {
		ids = append(ids, id)
	}
	return ids
}

// ListObjects returns all registered object ids.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListObjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.objects))
	for id := range r.objects {
		ids = append(ids, id)
	}
	return ids
}

// CountCollections returns the number of registered collections.
func (r *Registry) CountCollections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.collections)
}

// CountObjects returns the number of registered objects.
func (r *Registry) CountObjects() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
