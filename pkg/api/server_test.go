package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lifecycle"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/registry"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/relay"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage/memory"
)

type noopBoot struct{}

func (noopBoot) LocalData(context.Context) error  { return nil }
func (noopBoot) RemoteData(context.Context) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *lifecycle.App, *registry.Registry) {
	t.Helper()

	app, err := lifecycle.New(lifecycle.Options{
		AppID:        "crm",
		Store:        memory.NewMemoryStore(),
		Bootstrapper: noopBoot{},
	})
	require.NoError(t, err)

	reg := registry.NewRegistry()
	require.NoError(t, reg.RegisterCollection(&registry.Collection{
		ID: "countries", Field: "countries", Relay: relay.NewMemoryRelay(),
	}))

	return NewRouter(app, reg), app, reg
}

func doRequest(t *testing.T, router http.Handler, method, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealthz(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Status)
}

func TestStatusEndpoint(t *testing.T) {
	router, app, _ := newTestRouter(t)
	require.NoError(t, app.Initialize(context.Background()))

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/status")
	assert.Equal(t, http.StatusOK, rec.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "crm", data["app"])
	assert.Equal(t, string(lifecycle.StatusReady), data["status"])
}

func TestCollectionsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/collections")
	assert.Equal(t, http.StatusOK, rec.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	cols, ok := data["collections"].([]any)
	require.True(t, ok)
	assert.Contains(t, cols, "countries")
}

func TestResetEndpoint(t *testing.T) {
	router, app, _ := newTestRouter(t)
	require.NoError(t, app.Initialize(context.Background()))

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/reset")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, lifecycle.StatusReady, app.Status())
}

func TestUnknownRouteIs404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
