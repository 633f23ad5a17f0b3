package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/config"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lifecycle"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lookup"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.App.ID = "crm"
	cfg.App.Collections = []config.CollectionConfig{
		{ID: "countries", Lookup: true},
		{ID: "contacts"},
	}
	cfg.Storage.Backend = config.StorageMemory
	config.ApplyDefaults(cfg)
	return cfg
}

func TestNewRegistersDeclaredCollections(t *testing.T) {
	rt, err := New(testConfig())
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	assert.Equal(t, 2, rt.Registry().CountCollections())

	col, err := rt.Registry().FindCollectionByID("countries")
	require.NoError(t, err)
	assert.Equal(t, "countries", col.Field, "field defaults to the collection id")
	assert.True(t, col.Lookup)
}

func TestInitializeLocalOnly(t *testing.T) {
	// No relay configured: initialization succeeds on local snapshots alone.
	rt, err := New(testConfig())
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	require.NoError(t, rt.App().Initialize(context.Background()))
	assert.Equal(t, lifecycle.StatusReady, rt.App().Status())

	records := rt.Binder().Binding("countries").Records()
	assert.NotNil(t, records)
	assert.Empty(t, records, "unsynchronized collection binds empty")
}

func TestLookupIndexFromSnapshot(t *testing.T) {
	rt, err := New(testConfig())
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	ctx := context.Background()
	snapshot := json.RawMessage(`[
		{"country_id": 1, "country_label": "Kenya"},
		{"country_id": 2, "country_label": "Uganda"}
	]`)
	require.NoError(t, rt.Store().Set(ctx, storage.FieldKey("crm", "countries"), snapshot))

	idx, err := rt.LookupIndex(ctx, "countries")
	require.NoError(t, err)
	assert.Equal(t, "Kenya", idx["1"].Label)
	assert.Equal(t, "Uganda", idx["2"].Label)

	// Cached on second call.
	again, err := rt.LookupIndex(ctx, "countries")
	require.NoError(t, err)
	assert.Equal(t, idx, again)
}

func TestLookupIndexDegradedOnInferenceFailure(t *testing.T) {
	rt, err := New(testConfig())
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	ctx := context.Background()
	snapshot := json.RawMessage(`[{"name": "no key here"}]`)
	require.NoError(t, rt.Store().Set(ctx, storage.FieldKey("crm", "countries"), snapshot))

	idx, err := rt.LookupIndex(ctx, "countries")
	require.Error(t, err)
	assert.True(t, errors.Is(err, lookup.ErrNoKeyField))
	assert.Empty(t, idx, "degraded index is empty but usable")
}

func TestLookupIndexRejectsNonLookupCollection(t *testing.T) {
	rt, err := New(testConfig())
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	_, err = rt.LookupIndex(context.Background(), "contacts")
	require.Error(t, err)
}
