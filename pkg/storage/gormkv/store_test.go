package gormkv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

func newSQLiteStore(t *testing.T) *GORMStore {
	t.Helper()
	s, err := New(&Config{
		Backend: BackendSQLite,
		SQLite:  SQLiteConfig{Path: filepath.Join(t.TempDir(), "appsync.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, BackendSQLite, cfg.Backend)

	pg := &Config{Backend: BackendPostgres}
	pg.ApplyDefaults()
	assert.Equal(t, 5432, pg.Postgres.Port)
	assert.Equal(t, "disable", pg.Postgres.SSLMode)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite without path", Config{Backend: BackendSQLite}, true},
		{"sqlite with path", Config{Backend: BackendSQLite, SQLite: SQLiteConfig{Path: "/tmp/x.db"}}, false},
		{"postgres without host", Config{Backend: BackendPostgres, Postgres: PostgresConfig{Database: "d"}}, true},
		{"postgres without database", Config{Backend: BackendPostgres, Postgres: PostgresConfig{Host: "h"}}, true},
		{"unknown backend", Config{Backend: "etcd"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5432, User: "app", Password: "pw",
		Database: "appsync", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=pw dbname=appsync sslmode=disable",
		cfg.DSN())
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "crm-Markers", map[string]bool{"seeded": true}))

	var markers map[string]bool
	require.NoError(t, storage.GetJSON(ctx, s, "crm-Markers", &markers))
	assert.True(t, markers["seeded"])
}

func TestUpsertReplaces(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "first"))
	require.NoError(t, s.Set(ctx, "k", "second"))

	var got string
	require.NoError(t, storage.GetJSON(ctx, s, "k", &got))
	assert.Equal(t, "second", got)
}

func TestGetMissingAndDeleteIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", 1))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
