package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

func TestGetMissingKey(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "crm-Markers", map[string]bool{"seeded": true}))

	var markers map[string]bool
	require.NoError(t, storage.GetJSON(ctx, s, "crm-Markers", &markers))
	assert.True(t, markers["seeded"])
}

func TestSetReplacesWholesale(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", map[string]int{"a": 1, "b": 2}))
	require.NoError(t, s.Set(ctx, "k", map[string]int{"c": 3}))

	var got map[string]int
	require.NoError(t, storage.GetJSON(ctx, s, "k", &got))
	assert.Equal(t, map[string]int{"c": 3}, got)
}

func TestDeleteIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestContextCancellation(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, s.Set(ctx, "k", "v"))
}
