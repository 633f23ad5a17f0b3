// Package binder connects named local fields to remote and local data
// collections. A bound field holds an in-memory record array that is
// replaced wholesale on every refresh; partial mutation never happens.
package binder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/events"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/keylock"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lookup"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/metrics"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/registry"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/relay"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

// DefaultSyntheticIDFloor is the identifier value above which ids are
// treated as locally synthesized by the UI grid library rather than assigned
// by the server. The floor itself is still a server id; only strictly
// greater values are stripped. Deployments whose grid library uses a
// different auto-id range override this in config.
const DefaultSyntheticIDFloor = 1e15

// Binding is the in-memory state of one bound field. Callers index the
// binder by field name instead of relying on dynamically named members.
type Binding struct {
	mu      sync.RWMutex
	records []relay.Record
}

// Records returns the current record array. The slice is a copy; the
// records themselves are shared.
func (b *Binding) Records() []relay.Record {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]relay.Record, len(b.records))
	copy(out, b.records)
	return out
}

func (b *Binding) set(records []relay.Record) {
	b.mu.Lock()
	b.records = records
	b.mu.Unlock()
}

// Options configures a Binder.
type Options struct {
	// AppID scopes the storage keys snapshots are written under.
	AppID string

	// Store persists collection snapshots.
	Store storage.Store

	// Registry resolves collection ids.
	Registry *registry.Registry

	// SyntheticIDFloor overrides DefaultSyntheticIDFloor.
	SyntheticIDFloor float64

	// LookupCache, when set, has a collection's cached index invalidated
	// whenever its snapshot is replaced.
	LookupCache *lookup.Cache

	// Locks serializes remote binds per field. A private registry is
	// created when nil; inject a shared one to coordinate with other
	// components working on the same fields.
	Locks *keylock.Registry
}

type attachment struct {
	sub     *events.Subscription
	emitter *events.Emitter
}

// Binder binds fields to data collections.
type Binder struct {
	appID string
	store storage.Store
	reg   *registry.Registry
	floor float64
	cache *lookup.Cache
	locks *keylock.Registry

	mu       sync.Mutex
	bindings map[string]*Binding
	attached map[string]attachment
}

// New creates a Binder.
func New(opts Options) (*Binder, error) {
	if opts.AppID == "" {
		return nil, fmt.Errorf("binder: app id is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("binder: store is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("binder: registry is required")
	}

	floor := opts.SyntheticIDFloor
	if floor == 0 {
		floor = DefaultSyntheticIDFloor
	}
	locks := opts.Locks
	if locks == nil {
		locks = keylock.NewRegistry()
	}

	return &Binder{
		appID:    opts.AppID,
		store:    opts.Store,
		reg:      opts.Registry,
		floor:    floor,
		cache:    opts.LookupCache,
		locks:    locks,
		bindings: make(map[string]*Binding),
		attached: make(map[string]attachment),
	}, nil
}

// Binding returns the state of the named field, creating it empty on first
// use.
func (b *Binder) Binding(field string) *Binding {
	b.mu.Lock()
	defer b.mu.Unlock()

	binding, ok := b.bindings[field]
	if !ok {
		binding = &Binding{}
		b.bindings[field] = binding
	}
	return binding
}

// BindLocal populates the field from the local storage snapshot of the
// collection. A missing snapshot yields an empty record array; an
// unresolvable collection id is an error.
func (b *Binder) BindLocal(ctx context.Context, collectionID, field string) error {
	fieldLock := b.locks.Acquire(field)
	fieldLock.Lock()
	defer fieldLock.Unlock()

	if _, err := b.reg.FindCollectionByID(collectionID); err != nil {
		logger.Error("cannot bind local data, collection lookup failed",
			"collection", collectionID, "field", field, "error", err)
		return fmt.Errorf("binder: %w", err)
	}

	var records []relay.Record
	err := storage.GetJSON(ctx, b.store, storage.FieldKey(b.appID, field), &records)
	if err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("binder: loading snapshot for %q: %w", field, err)
	}
	if records == nil {
		records = []relay.Record{}
	}

	b.Binding(field).set(records)
	return nil
}

// BindRemote fetches the collection through its relay and replaces the
// field's records and stored snapshot.
//
// The relay answers on two paths: the request's own return and a pushed
// "data" envelope. Whichever arrives first settles the call; the other is
// ignored by a one-shot gate. The binder's "data" listener is detached and
// re-attached on every call so repeated binds never accumulate listeners.
//
// Synthetic identifiers (numeric ids above the configured floor) are
// stripped from each record before the snapshot is stored, so a record's
// server identity can later be judged by the presence of its id.
//
// Concurrent binds of the same field serialize through the lock registry;
// distinct fields proceed independently.
func (b *Binder) BindRemote(ctx context.Context, collectionID, field string) ([]relay.Record, error) {
	fieldLock := b.locks.Acquire(field)
	fieldLock.Lock()
	defer fieldLock.Unlock()

	col, err := b.reg.FindCollectionByID(collectionID)
	if err != nil {
		logger.Error("cannot bind remote data, collection lookup failed",
			"collection", collectionID, "field", field, "error", err)
		return nil, fmt.Errorf("binder: %w", err)
	}

	emitter := col.Relay.Events()
	job := relay.NewJob(relay.VerbFind)

	type result struct {
		records []relay.Record
		err     error
	}
	done := make(chan result, 1)
	var once sync.Once
	settle := func(records []relay.Record, err error, path string) {
		once.Do(func() {
			metrics.BindFetch(path)
			done <- result{records: records, err: err}
		})
	}

	sub := emitter.On(relay.EventData, func(payload any) {
		env, ok := payload.(relay.Envelope)
		if !ok {
			return
		}
		// Only this request's own response, or a server-initiated find for
		// the collection, may settle the bind. The relay pushes an envelope
		// for every verb, and a delete's or update's envelope carries that
		// operation's records, not the collection contents.
		if env.Job.ID != job.ID {
			if env.Collection != col.ID {
				return
			}
			if env.Job.Verb != relay.VerbFind && env.Job.Verb != "" {
				return
			}
		}
		settle(env.Records, nil, metrics.PathPush)
	})
	b.reattach(field, attachment{sub: sub, emitter: emitter})

	go func() {
		records, err := col.Relay.Find(ctx, relay.Request{Job: job, Collection: col.ID})
		settle(records, err, metrics.PathRequest)
	}()

	res := <-done
	if res.err != nil {
		logger.Error("remote bind failed",
			"collection", col.ID, "field", field, "error", res.err)
		return nil, res.err
	}

	records := b.stripSyntheticIDs(res.records)

	if err := b.store.Set(ctx, storage.FieldKey(b.appID, field), records); err != nil {
		return nil, fmt.Errorf("binder: storing snapshot for %q: %w", field, err)
	}
	b.Binding(field).set(records)

	if b.cache != nil {
		b.cache.Invalidate(col.ID)
	}

	logger.Debug("remote bind complete",
		"collection", col.ID, "field", field, "records", len(records))
	return records, nil
}

// reattach replaces the field's data listener, detaching the previous one.
func (b *Binder) reattach(field string, next attachment) {
	b.mu.Lock()
	prev, ok := b.attached[field]
	b.attached[field] = next
	b.mu.Unlock()

	if ok {
		prev.emitter.Off(prev.sub)
	}
}

// stripSyntheticIDs removes grid-synthesized id values. Records are copied
// before modification; relay responses are never mutated in place.
func (b *Binder) stripSyntheticIDs(records []relay.Record) []relay.Record {
	out := make([]relay.Record, 0, len(records))
	for _, rec := range records {
		id, ok := rec["id"]
		if !ok || !isSynthetic(id, b.floor) {
			out = append(out, rec)
			continue
		}

		clean := make(relay.Record, len(rec))
		for k, v := range rec {
			if k != "id" {
				clean[k] = v
			}
		}
		out = append(out, clean)
	}
	return out
}

func isSynthetic(id any, floor float64) bool {
	switch v := id.(type) {
	case float64:
		return v > floor
	case int:
		return float64(v) > floor
	case int64:
		return float64(v) > floor
	case json.Number:
		f, err := v.Float64()
		return err == nil && f > floor
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return err == nil && f > floor
	default:
		return false
	}
}
