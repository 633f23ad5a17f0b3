package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/api"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/config"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/metrics"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/runtime"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the appsync daemon",
	Long: `Start the appsync daemon with the specified configuration.

The daemon opens the configured storage backend, binds the declared data
collections from their local snapshots, refreshes them through the relay
when one is configured, and serves the admin API.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/appsync/config.yaml.

Examples:
  # Start with default config location
  appsync start

  # Start with custom config file
  appsync start --config /etc/appsync/config.yaml

  # Start with environment variable overrides
  APPSYNC_LOGGING_LEVEL=DEBUG appsync start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	// Metrics (if enabled)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.Init()
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metrics.Handler(),
		}
		go func() {
			logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server error", "error", err)
			}
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Assemble the sync runtime
	rt, err := runtime.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to assemble runtime: %w", err)
	}
	defer func() { _ = rt.Close() }()

	// Hot-reload the logging section when the config file changes
	stopWatch, err := config.Watch(GetConfigFile(), func(next *config.Config) {
		logger.SetLevel(next.Logging.Level)
		logger.SetFormat(next.Logging.Format)
	})
	if err != nil {
		logger.Warn("Config hot-reload unavailable", "error", err)
	} else {
		defer stopWatch()
	}

	// Initialize application data. A failed remote sync is logged, not
	// fatal: the daemon keeps serving the local snapshots.
	if err := rt.App().Initialize(ctx); err != nil {
		logger.Error("Initialization incomplete, serving local data", "error", err)
	}

	// Admin API (if enabled)
	serverDone := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, rt.App(), rt.Registry())
		logger.Info("Admin API configured", "port", apiServer.Port())
		go func() {
			serverDone <- apiServer.Start(ctx)
		}()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("appsync is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if cfg.API.Enabled {
			if err := <-serverDone; err != nil {
				logger.Error("Admin API shutdown error", "error", err)
			}
		}

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Admin API error", "error", err)
			return err
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelShutdown()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	logger.Info("appsync stopped gracefully")
	return nil
}
