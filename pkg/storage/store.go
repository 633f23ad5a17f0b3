// Package storage defines the persistent key-value store consumed by the
// sync layer. Lifecycle state, marker sets, and collection snapshots are all
// opaque JSON payloads under app-scoped keys; the backing store never
// interprets them.
//
// Backends live in subpackages: badger (default), gormkv (SQLite or
// PostgreSQL via GORM), and memory (tests and ephemeral runs).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for keys that have never been set.
var ErrNotFound = errors.New("storage: key not found")

// Store is an opaque JSON key-value store.
//
// Values passed to Set are marshalled by the store; values returned by Get
// are the raw JSON previously stored. Both operations honor context
// cancellation.
type Store interface {
	// Get returns the payload stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (json.RawMessage, error)

	// Set stores value under key, replacing any previous payload wholesale.
	Set(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// MarkerKey returns the storage key for an application's marker set.
func MarkerKey(appID string) string {
	return fmt.Sprintf("%s-Markers", appID)
}

// StatusKey returns the storage key for an application's init status.
func StatusKey(appID string) string {
	return fmt.Sprintf("%s-init-status", appID)
}

// FieldKey returns the storage key for a bound collection snapshot.
func FieldKey(appID, field string) string {
	return fmt.Sprintf("%s-%s", appID, field)
}

// GetJSON reads key and unmarshals the payload into out. Returns ErrNotFound
// unchanged when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("storage: decoding %q: %w", key, err)
	}
	return nil
}
