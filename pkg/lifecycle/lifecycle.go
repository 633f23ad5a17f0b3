// Package lifecycle orchestrates one-time initialization of an application:
// loading persisted markers and status, running the local and remote data
// bootstraps, and emitting readiness events.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/events"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/metrics"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

// Status is the persisted initialization state of an application.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusReady         Status = "ready"
)

// Events emitted on the application's emitter. Payload is the app id.
const (
	// EventStatusChanged fires when the persisted status transitions.
	EventStatusChanged = "app.status-changed"

	// EventDataReady fires when both bootstraps have completed.
	EventDataReady = "app.data-ready"

	// EventInitTimeout fires when initialization outlives the advisory
	// timeout. Purely observational: initialization continues and the
	// Initialize call still returns its real outcome.
	EventInitTimeout = "app.init-timeout"
)

// DefaultInitTimeout is the advisory initialization timeout.
const DefaultInitTimeout = 25 * time.Second

// Bootstrapper supplies the application-specific data bootstraps.
//
// LocalData must tolerate remote data not being present yet and produce
// empty or default data sets in that case; a later remote completion
// supersedes it.
type Bootstrapper interface {
	LocalData(ctx context.Context) error
	RemoteData(ctx context.Context) error
}

// Options configures an App.
type Options struct {
	// AppID scopes all persisted keys.
	AppID string

	// Store is the persistent key-value storage.
	Store storage.Store

	// Emitter carries lifecycle events. A fresh one is created when nil.
	Emitter *events.Emitter

	// Bootstrapper runs the local and remote data bootstraps.
	Bootstrapper Bootstrapper

	// InitTimeout overrides DefaultInitTimeout.
	InitTimeout time.Duration
}

// App owns one application's lifecycle state: its marker set and its
// persisted initialization status. Both are replaced wholesale on mutation,
// never patched in place.
type App struct {
	appID       string
	store       storage.Store
	emitter     *events.Emitter
	boot        Bootstrapper
	initTimeout time.Duration

	mu      sync.Mutex
	status  Status
	markers map[string]bool
}

// New creates an App.
func New(opts Options) (*App, error) {
	if opts.AppID == "" {
		return nil, fmt.Errorf("lifecycle: app id is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("lifecycle: store is required")
	}
	if opts.Bootstrapper == nil {
		return nil, fmt.Errorf("lifecycle: bootstrapper is required")
	}

	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NewEmitter()
	}
	timeout := opts.InitTimeout
	if timeout == 0 {
		timeout = DefaultInitTimeout
	}

	return &App{
		appID:       opts.AppID,
		store:       opts.Store,
		emitter:     emitter,
		boot:        opts.Bootstrapper,
		initTimeout: timeout,
		status:      StatusUninitialized,
		markers:     make(map[string]bool),
	}, nil
}

// ID returns the application id.
func (a *App) ID() string {
	return a.appID
}

// Events returns the emitter carrying lifecycle events.
func (a *App) Events() *events.Emitter {
	return a.emitter
}

// Status returns the current initialization status.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Initialize loads persisted state and runs the data bootstraps.
//
// The remote bootstrap runs only when the persisted status is not ready;
// the local bootstrap always runs. Both run concurrently and are joined
// fail-fast: the first error aborts the wait and is returned, though the
// sibling bootstrap is not cancelled and runs to completion in the
// background. On success EventDataReady fires.
//
// The advisory timeout emits EventInitTimeout and nothing else: in-flight
// work continues and the returned error reflects only bootstrap outcomes.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.loadMarkers(ctx); err != nil {
		return err
	}
	status, err := a.loadStatus(ctx)
	if err != nil {
		return err
	}

	timer := time.AfterFunc(a.initTimeout, func() {
		logger.Warn("initialization exceeded advisory timeout",
			"app", a.appID, "timeout", a.initTimeout)
		metrics.InitTimeout()
		a.emitter.Emit(EventInitTimeout, a.appID)
	})
	defer timer.Stop()

	// Plain errgroup on purpose: the join is fail-fast but must not cancel
	// the sibling bootstrap.
	var g errgroup.Group

	if status != StatusReady {
		g.Go(func() error {
			if err := a.boot.RemoteData(ctx); err != nil {
				metrics.BootstrapRun(metrics.KindRemote, metrics.OutcomeError)
				logger.Error("remote data bootstrap failed", "app", a.appID, "error", err)
				return fmt.Errorf("remote data bootstrap: %w", err)
			}
			metrics.BootstrapRun(metrics.KindRemote, metrics.OutcomeOK)
			return a.setStatus(ctx, StatusReady)
		})
	}

	g.Go(func() error {
		if err := a.boot.LocalData(ctx); err != nil {
			metrics.BootstrapRun(metrics.KindLocal, metrics.OutcomeError)
			logger.Error("local data bootstrap failed", "app", a.appID, "error", err)
			return fmt.Errorf("local data bootstrap: %w", err)
		}
		metrics.BootstrapRun(metrics.KindLocal, metrics.OutcomeOK)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("application data ready", "app", a.appID)
	a.emitter.Emit(EventDataReady, a.appID)
	return nil
}

// Reset clears the persisted status to uninitialized and re-runs
// Initialize, forcing a full remote re-sync.
func (a *App) Reset(ctx context.Context) error {
	if err := a.setStatus(ctx, StatusUninitialized); err != nil {
		return err
	}
	return a.Initialize(ctx)
}

// Marker reports whether a one-time action marker is set.
func (a *App) Marker(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.markers[name]
}

// Markers returns a copy of the marker set.
func (a *App) Markers() map[string]bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]bool, len(a.markers))
	for k, v := range a.markers {
		out[k] = v
	}
	return out
}

// SetMarker records that a one-time action has occurred and persists the
// whole marker set.
func (a *App) SetMarker(ctx context.Context, name string) error {
	a.mu.Lock()
	next := make(map[string]bool, len(a.markers)+1)
	for k, v := range a.markers {
		next[k] = v
	}
	next[name] = true
	a.markers = next
	a.mu.Unlock()

	if err := a.store.Set(ctx, storage.MarkerKey(a.appID), next); err != nil {
		return fmt.Errorf("lifecycle: persisting markers: %w", err)
	}
	return nil
}

func (a *App) loadMarkers(ctx context.Context) error {
	markers := make(map[string]bool)
	err := storage.GetJSON(ctx, a.store, storage.MarkerKey(a.appID), &markers)
	if err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("lifecycle: loading markers: %w", err)
	}

	a.mu.Lock()
	a.markers = markers
	a.mu.Unlock()
	return nil
}

// loadStatus reads the persisted status. Missing or unrecognized values
// default to initializing so a fresh (or reset) application performs the
// remote bootstrap.
func (a *App) loadStatus(ctx context.Context) (Status, error) {
	var raw string
	err := storage.GetJSON(ctx, a.store, storage.StatusKey(a.appID), &raw)
	if err != nil && err != storage.ErrNotFound {
		return "", fmt.Errorf("lifecycle: loading status: %w", err)
	}

	status := Status(raw)
	if status != StatusReady {
		status = StatusInitializing
	}

	a.mu.Lock()
	a.status = status
	a.mu.Unlock()
	return status, nil
}

func (a *App) setStatus(ctx context.Context, status Status) error {
	if err := a.store.Set(ctx, storage.StatusKey(a.appID), string(status)); err != nil {
		return fmt.Errorf("lifecycle: persisting status: %w", err)
	}

	a.mu.Lock()
	a.status = status
	a.mu.Unlock()

	a.emitter.Emit(EventStatusChanged, a.appID)
	return nil
}
