package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/binder"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lifecycle"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyAppDefaults(&cfg.App)
	applyLoggingDefaults(&cfg.Logging)
	applyStorageDefaults(&cfg.Storage)
	applyRelayDefaults(&cfg.Relay)
	applySyncDefaults(&cfg.Sync)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(cfg)
	applyShutdownTimeoutDefaults(cfg)
}

// applyAppDefaults fills in collection names and fields from the id.
func applyAppDefaults(cfg *AppConfig) {
	for i := range cfg.Collections {
		col := &cfg.Collections[i]
		if col.Name == "" {
			col.Name = col.ID
		}
		if col.Field == "" {
			col.Field = col.ID
		}
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStorageDefaults sets storage backend defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = StorageSQLite
	}

	switch cfg.Backend {
	case StorageSQLite:
		if cfg.SQLite.Path == "" {
			cfg.SQLite.Path = filepath.Join(getDataDir(), "appsync.db")
		}
	case StorageBadger:
		if cfg.Badger.Path == "" {
			cfg.Badger.Path = filepath.Join(getDataDir(), "badger")
		}
	case StoragePostgres:
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		if cfg.Postgres.SSLMode == "" {
			cfg.Postgres.SSLMode = "disable"
		}
	}
}

// applyRelayDefaults sets relay transport defaults.
func applyRelayDefaults(cfg *RelayConfig) {
	// URL has no default - an empty URL means the relay is not configured
	// and only local data is served.
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
}

// applySyncDefaults sets sync tuning defaults.
func applySyncDefaults(cfg *SyncConfig) {
	if cfg.InitTimeout == 0 {
		cfg.InitTimeout = lifecycle.DefaultInitTimeout
	}
	if cfg.SyntheticIDFloor == 0 {
		cfg.SyntheticIDFloor = binder.DefaultSyntheticIDFloor
	}
	if cfg.LookupCacheSize == 0 {
		cfg.LookupCacheSize = 64
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets admin API server defaults.
func applyAPIDefaults(cfg *Config) {
	// Enabled defaults to false (opt-in)
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.ReadTimeout == 0 {
		cfg.API.ReadTimeout = 10 * time.Second
	}
	if cfg.API.WriteTimeout == 0 {
		cfg.API.WriteTimeout = 10 * time.Second
	}
	if cfg.API.IdleTimeout == 0 {
		cfg.API.IdleTimeout = 60 * time.Second
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		App: AppConfig{
			ID: "app",
		},
		Storage: StorageConfig{
			Backend: StorageSQLite, // Default to SQLite for single-device
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
