package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPathRequired(t *testing.T) {
	_, err := NewBadgerStore(Options{})
	assert.Error(t, err)
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "crm-init-status", "ready"))

	var status string
	require.NoError(t, storage.GetJSON(ctx, s, "crm-init-status", &status))
	assert.Equal(t, "ready", status)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(Options{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", 42))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(Options{Path: dir})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var got int
	require.NoError(t, storage.GetJSON(ctx, s, "k", &got))
	assert.Equal(t, 42, got)
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInMemoryMode(t *testing.T) {
	s, err := NewBadgerStore(Options{InMemory: true})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []string{"a", "b"}))

	var got []string
	require.NoError(t, storage.GetJSON(ctx, s, "k", &got))
	assert.Equal(t, []string{"a", "b"}, got)
}
