package lookup

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recently built indexes keyed by collection id so pages that
// re-render do not rebuild the same index from the same snapshot. The binder
// invalidates a collection's entry whenever it replaces the snapshot.
type Cache struct {
	indexes *lru.Cache[string, Index]
}

// NewCache creates an index cache holding at most size collections.
func NewCache(size int) (*Cache, error) {
	indexes, err := lru.New[string, Index](size)
	if err != nil {
		return nil, err
	}
	return &Cache{indexes: indexes}, nil
}

// Get returns the cached index for a collection, if present.
func (c *Cache) Get(collectionID string) (Index, bool) {
	return c.indexes.Get(collectionID)
}

// Put stores the index built for a collection.
func (c *Cache) Put(collectionID string, idx Index) {
	c.indexes.Add(collectionID, idx)
}

// Invalidate drops the cached index for a collection. Safe to call when no
// entry exists.
func (c *Cache) Invalidate(collectionID string) {
	c.indexes.Remove(collectionID)
}

// Len reports how many indexes are cached.
func (c *Cache) Len() int {
	return c.indexes.Len()
}
