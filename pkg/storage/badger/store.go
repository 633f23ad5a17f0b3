// Package badger implements the storage.Store interface on BadgerDB.
// This is the default backend on device-like deployments: a single local
// database directory, no external service.
package badger

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

// keyPrefix namespaces sync-layer keys so the database can be shared with
// other platform components.
const keyPrefix = "appsync:"

// BadgerStore is a BadgerDB-backed Store. Safe for concurrent use; badger
// transactions provide atomicity per operation.
type BadgerStore struct {
	db *badger.DB
}

// Options configures the badger backend.
type Options struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory runs badger without a backing directory.
	InMemory bool
}

// NewBadgerStore opens (creating if needed) a badger database at the
// configured path.
func NewBadgerStore(opts Options) (*BadgerStore, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("badger: path is required")
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	// Badger logs through its own logger by default; keep it quiet and let
	// the sync layer do the logging.
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("badger: opening database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func dbKey(key string) []byte {
	return []byte(keyPrefix + key)
}

// Get returns the payload stored under key, or storage.ErrNotFound.
func (s *BadgerStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("badger: reading %q: %w", key, err)
	}
	return raw, nil
}

// Set stores value under key, replacing any previous payload.
func (s *BadgerStore) Set(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("badger: encoding %q: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey(key), raw)
	})
	if err != nil {
		return fmt.Errorf("badger: writing %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys succeed.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dbKey(key))
	})
	if err != nil {
		return fmt.Errorf("badger: deleting %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
