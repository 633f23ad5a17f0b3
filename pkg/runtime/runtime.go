// Package runtime is the composition root of the sync layer: it opens the
// configured storage backend, wires the relay transport, registers the
// declared collections, and owns the application lifecycle.
package runtime

import (
	"context"
	"fmt"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/binder"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/config"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/keylock"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lifecycle"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lookup"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/registry"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/relay"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
	badgerstore "github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage/badger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage/gormkv"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage/memory"
)

// Runtime composes the sync layer for one application.
//
// It implements lifecycle.Bootstrapper: the local bootstrap binds every
// declared collection from its stored snapshot, the remote bootstrap
// refreshes them through the relay.
type Runtime struct {
	cfg    *config.Config
	store  storage.Store
	relay  relay.Relay
	reg    *registry.Registry
	cache  *lookup.Cache
	binder *binder.Binder
	app    *lifecycle.App
}

// New builds a Runtime from configuration. The storage backend is opened
// and the declared collections registered; nothing is synchronized until
// the lifecycle is initialized.
func New(cfg *config.Config) (*Runtime, error) {
	store, err := openStore(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	rel := newRelay(&cfg.Relay)

	reg := registry.NewRegistry()
	for _, col := range cfg.App.Collections {
		err := reg.RegisterCollection(&registry.Collection{
			ID:     col.ID,
			Name:   col.Name,
			Field:  col.Field,
			Relay:  rel,
			Lookup: col.Lookup,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("runtime: %w", err)
		}
	}

	cache, err := lookup.NewCache(cfg.Sync.LookupCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("runtime: creating lookup cache: %w", err)
	}

	b, err := binder.New(binder.Options{
		AppID:            cfg.App.ID,
		Store:            store,
		Registry:         reg,
		SyntheticIDFloor: cfg.Sync.SyntheticIDFloor,
		LookupCache:      cache,
		Locks:            keylock.NewRegistry(),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("runtime: %w", err)
	}

	rt := &Runtime{
		cfg:    cfg,
		store:  store,
		relay:  rel,
		reg:    reg,
		cache:  cache,
		binder: b,
	}

	app, err := lifecycle.New(lifecycle.Options{
		AppID:        cfg.App.ID,
		Store:        store,
		Bootstrapper: rt,
		InitTimeout:  cfg.Sync.InitTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("runtime: %w", err)
	}
	rt.app = app

	logger.Info("runtime assembled",
		"app", cfg.App.ID,
		"backend", cfg.Storage.Backend,
		"collections", reg.CountCollections(),
		"relay", cfg.Relay.URL != "")
	return rt, nil
}

// App returns the application lifecycle.
func (rt *Runtime) App() *lifecycle.App { return rt.app }

// Registry returns the collection registry.
func (rt *Runtime) Registry() *registry.Registry { return rt.reg }

// Binder returns the data collection binder.
func (rt *Runtime) Binder() *binder.Binder { return rt.binder }

// Store returns the persistent key-value store.
func (rt *Runtime) Store() storage.Store { return rt.store }

// LocalData binds every declared collection from its stored snapshot.
// Collections that were never synchronized bind empty.
func (rt *Runtime) LocalData(ctx context.Context) error {
	for _, col := range rt.cfg.App.Collections {
		if err := rt.binder.BindLocal(ctx, col.ID, col.Field); err != nil {
			return err
		}
	}
	return nil
}

// RemoteData refreshes every declared collection through the relay. With no
// relay configured the runtime serves local data only and the remote
// bootstrap is a no-op.
func (rt *Runtime) RemoteData(ctx context.Context) error {
	if rt.cfg.Relay.URL == "" {
		logger.Debug("no relay configured, skipping remote bootstrap", "app", rt.cfg.App.ID)
		return nil
	}
	for _, col := range rt.cfg.App.Collections {
		if _, err := rt.binder.BindRemote(ctx, col.ID, col.Field); err != nil {
			return err
		}
	}
	return nil
}

// LookupIndex returns the label index for a lookup collection, building and
// caching it from the stored snapshot on first use.
func (rt *Runtime) LookupIndex(ctx context.Context, collectionID string) (lookup.Index, error) {
	col, err := rt.reg.FindCollectionByID(collectionID)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	if !col.Lookup {
		return nil, fmt.Errorf("runtime: collection %q is not a lookup collection", collectionID)
	}

	if idx, ok := rt.cache.Get(collectionID); ok {
		return idx, nil
	}

	raw, err := rt.store.Get(ctx, storage.FieldKey(rt.cfg.App.ID, col.Field))
	if err == storage.ErrNotFound {
		raw = []byte("[]")
	} else if err != nil {
		return nil, fmt.Errorf("runtime: loading snapshot for %q: %w", collectionID, err)
	}

	records, err := lookup.FromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("runtime: decoding snapshot for %q: %w", collectionID, err)
	}

	idx, err := lookup.Build(records, lookup.Options{})
	if err != nil {
		// Degraded (empty) index: usable, but not worth caching.
		return idx, err
	}

	rt.cache.Put(collectionID, idx)
	return idx, nil
}

// Close releases the storage backend.
func (rt *Runtime) Close() error {
	return rt.store.Close()
}

// openStore opens the configured storage backend.
func openStore(cfg *config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return memory.NewMemoryStore(), nil
	case config.StorageBadger:
		return badgerstore.NewBadgerStore(badgerstore.Options{Path: cfg.Badger.Path})
	case config.StorageSQLite, config.StoragePostgres:
		return gormkv.New(cfg.GORM())
	default:
		return nil, fmt.Errorf("runtime: unsupported storage backend %q", cfg.Backend)
	}
}

// newRelay builds the relay transport. With no URL configured an in-process
// relay is used so binds against it stay well-defined in local-only mode.
func newRelay(cfg *config.RelayConfig) relay.Relay {
	if cfg.URL == "" {
		return relay.NewMemoryRelay()
	}
	return relay.NewHTTPRelay(relay.HTTPOptions{
		BaseURL: cfg.URL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	})
}
