package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/events"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage/memory"
)

// fakeBoot counts bootstrap invocations and optionally fails or stalls.
type fakeBoot struct {
	localCalls  atomic.Int32
	remoteCalls atomic.Int32
	localErr    error
	remoteErr   error
	localDelay  time.Duration
	remoteDelay time.Duration
}

func (b *fakeBoot) LocalData(ctx context.Context) error {
	b.localCalls.Add(1)
	if b.localDelay > 0 {
		time.Sleep(b.localDelay)
	}
	return b.localErr
}

func (b *fakeBoot) RemoteData(ctx context.Context) error {
	b.remoteCalls.Add(1)
	if b.remoteDelay > 0 {
		time.Sleep(b.remoteDelay)
	}
	return b.remoteErr
}

func newTestApp(t *testing.T, store storage.Store, boot Bootstrapper) *App {
	t.Helper()
	app, err := New(Options{
		AppID:        "crm",
		Store:        store,
		Bootstrapper: boot,
	})
	require.NoError(t, err)
	return app
}

func TestNewValidatesOptions(t *testing.T) {
	store := memory.NewMemoryStore()
	boot := &fakeBoot{}

	_, err := New(Options{Store: store, Bootstrapper: boot})
	assert.Error(t, err, "missing app id")

	_, err = New(Options{AppID: "crm", Bootstrapper: boot})
	assert.Error(t, err, "missing store")

	_, err = New(Options{AppID: "crm", Store: store})
	assert.Error(t, err, "missing bootstrapper")
}

func TestInitializeFreshAppRunsBothBootstraps(t *testing.T) {
	store := memory.NewMemoryStore()
	boot := &fakeBoot{}
	app := newTestApp(t, store, boot)

	require.NoError(t, app.Initialize(context.Background()))

	assert.Equal(t, int32(1), boot.remoteCalls.Load())
	assert.Equal(t, int32(1), boot.localCalls.Load())
	assert.Equal(t, StatusReady, app.Status())

	// Status persisted for the next run.
	var persisted string
	require.NoError(t, storage.GetJSON(context.Background(), store, storage.StatusKey("crm"), &persisted))
	assert.Equal(t, string(StatusReady), persisted)
}

func TestInitializeReadySkipsRemoteBootstrap(t *testing.T) {
	store := memory.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.StatusKey("crm"), string(StatusReady)))

	boot := &fakeBoot{}
	app := newTestApp(t, store, boot)

	require.NoError(t, app.Initialize(ctx))

	assert.Equal(t, int32(0), boot.remoteCalls.Load(), "remote bootstrap must not re-run when ready")
	assert.Equal(t, int32(1), boot.localCalls.Load(), "local bootstrap always runs")
}

func TestInitializeEmitsEvents(t *testing.T) {
	store := memory.NewMemoryStore()
	boot := &fakeBoot{}
	emitter := events.NewEmitter()

	app, err := New(Options{
		AppID:        "crm",
		Store:        store,
		Emitter:      emitter,
		Bootstrapper: boot,
	})
	require.NoError(t, err)

	var statusChanges, ready int
	emitter.On(EventStatusChanged, func(any) { statusChanges++ })
	emitter.On(EventDataReady, func(any) { ready++ })

	require.NoError(t, app.Initialize(context.Background()))

	assert.Equal(t, 1, statusChanges)
	assert.Equal(t, 1, ready)
}

func TestInitializeRemoteFailurePropagates(t *testing.T) {
	store := memory.NewMemoryStore()
	boot := &fakeBoot{remoteErr: errors.New("relay unreachable")}
	app := newTestApp(t, store, boot)

	var ready int
	app.Events().On(EventDataReady, func(any) { ready++ })

	err := app.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay unreachable")
	assert.Equal(t, 0, ready, "data-ready must not fire on failure")
	assert.NotEqual(t, StatusReady, app.Status())
}

func TestInitializeLocalFailurePropagates(t *testing.T) {
	store := memory.NewMemoryStore()
	boot := &fakeBoot{localErr: errors.New("snapshot corrupt")}
	app := newTestApp(t, store, boot)

	err := app.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot corrupt")
}

func TestAdvisoryTimeoutDoesNotAbort(t *testing.T) {
	store := memory.NewMemoryStore()
	boot := &fakeBoot{remoteDelay: 50 * time.Millisecond}

	app, err := New(Options{
		AppID:        "crm",
		Store:        store,
		Bootstrapper: boot,
		InitTimeout:  5 * time.Millisecond,
	})
	require.NoError(t, err)

	timeouts := 0
	app.Events().On(EventInitTimeout, func(any) { timeouts++ })

	// Initialization outlives the advisory timeout yet still succeeds.
	require.NoError(t, app.Initialize(context.Background()))
	assert.Equal(t, 1, timeouts)
	assert.Equal(t, StatusReady, app.Status())
}

func TestResetForcesRemoteResync(t *testing.T) {
	store := memory.NewMemoryStore()
	boot := &fakeBoot{}
	app := newTestApp(t, store, boot)

	ctx := context.Background()
	require.NoError(t, app.Initialize(ctx))
	require.Equal(t, int32(1), boot.remoteCalls.Load())

	// A second Initialize is a no-op for remote data...
	require.NoError(t, app.Initialize(ctx))
	assert.Equal(t, int32(1), boot.remoteCalls.Load())

	// ...but Reset forces the remote bootstrap again.
	require.NoError(t, app.Reset(ctx))
	assert.Equal(t, int32(2), boot.remoteCalls.Load())
	assert.Equal(t, StatusReady, app.Status())
}

func TestMarkersPersistAcrossInstances(t *testing.T) {
	store := memory.NewMemoryStore()
	ctx := context.Background()

	app := newTestApp(t, store, &fakeBoot{})
	require.NoError(t, app.Initialize(ctx))

	assert.False(t, app.Marker("welcome-shown"))
	require.NoError(t, app.SetMarker(ctx, "welcome-shown"))
	assert.True(t, app.Marker("welcome-shown"))

	// A new instance over the same store sees the marker after Initialize.
	again := newTestApp(t, store, &fakeBoot{})
	require.NoError(t, again.Initialize(ctx))
	assert.True(t, again.Marker("welcome-shown"))
}

func TestMarkersReturnsCopy(t *testing.T) {
	store := memory.NewMemoryStore()
	app := newTestApp(t, store, &fakeBoot{})
	require.NoError(t, app.SetMarker(context.Background(), "a"))

	m := app.Markers()
	m["a"] = false
	assert.True(t, app.Marker("a"), "mutating the copy must not affect the app")
}
