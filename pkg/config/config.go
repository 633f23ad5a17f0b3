// Package config loads, validates, and persists the application
// configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/api"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage/gormkv"
)

// Config represents the appsync configuration.
//
// This structure captures the static configuration of the sync runtime:
//   - Application identity (the id all persisted keys are scoped under)
//   - Logging configuration
//   - Storage backend selection (memory, badger, sqlite, postgres)
//   - Relay connection (server URL, credentials, timeout)
//   - Sync tuning (init timeout, synthetic id floor, lookup cache size)
//   - Metrics and admin API servers
//
// Configuration sources (in order of precedence):
//  1. Environment variables (APPSYNC_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// App identifies the application whose data is synchronized.
	App AppConfig `mapstructure:"app" yaml:"app"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Storage selects and configures the persistent key-value backend.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Relay configures the remote data transport.
	Relay RelayConfig `mapstructure:"relay" yaml:"relay"`

	// Sync contains sync-layer tuning knobs.
	Sync SyncConfig `mapstructure:"sync" yaml:"sync"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains admin API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// AppConfig identifies the application and declares its data collections.
type AppConfig struct {
	// ID scopes every persisted key (markers, status, snapshots).
	ID string `mapstructure:"id" validate:"required" yaml:"id"`

	// Collections are the remote data collections the application binds.
	Collections []CollectionConfig `mapstructure:"collections" validate:"dive" yaml:"collections,omitempty"`
}

// CollectionConfig declares one bound data collection.
type CollectionConfig struct {
	// ID is the collection's registry identifier.
	ID string `mapstructure:"id" validate:"required" yaml:"id"`

	// Name is the human-readable collection name.
	// Default: the collection id
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// Field is the local field the collection binds to.
	// Default: the collection id
	Field string `mapstructure:"field" yaml:"field,omitempty"`

	// Lookup marks reference datasets eligible for label indexing.
	Lookup bool `mapstructure:"lookup" yaml:"lookup,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// StorageBackend selects the persistent key-value backend.
type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StorageBadger   StorageBackend = "badger"
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
)

// StorageConfig selects and configures the persistent key-value backend.
type StorageConfig struct {
	// Backend selects the storage implementation.
	// Valid values: memory, badger, sqlite, postgres
	// Default: sqlite
	Backend StorageBackend `mapstructure:"backend" validate:"required,oneof=memory badger sqlite postgres" yaml:"backend"`

	// Badger configures the badger backend.
	Badger BadgerConfig `mapstructure:"badger" yaml:"badger"`

	// SQLite configures the sqlite backend.
	SQLite gormkv.SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`

	// Postgres configures the postgres backend.
	Postgres gormkv.PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// BadgerConfig configures the badger storage backend.
type BadgerConfig struct {
	// Path is the badger database directory.
	Path string `mapstructure:"path" yaml:"path"`
}

// GORM returns the gormkv configuration for the sqlite and postgres
// backends.
func (c *StorageConfig) GORM() *gormkv.Config {
	return &gormkv.Config{
		Backend:  gormkv.Backend(c.Backend),
		SQLite:   c.SQLite,
		Postgres: c.Postgres,
	}
}

// RelayConfig configures the remote data transport.
type RelayConfig struct {
	// URL is the relay server base URL.
	URL string `mapstructure:"url" validate:"omitempty,url" yaml:"url"`

	// Token is the bearer credential presented on every request.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// Timeout bounds each relay HTTP request.
	// Default: 30s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SyncConfig contains sync-layer tuning knobs.
type SyncConfig struct {
	// InitTimeout is the advisory initialization timeout. Initialization is
	// never aborted when it elapses; an event is emitted instead.
	// Default: 25s
	InitTimeout time.Duration `mapstructure:"init_timeout" validate:"omitempty,gt=0" yaml:"init_timeout"`

	// SyntheticIDFloor is the numeric id value above which record ids
	// are treated as locally synthesized and stripped before persisting.
	// Default: 1e15
	SyntheticIDFloor float64 `mapstructure:"synthetic_id_floor" validate:"omitempty,gt=0" yaml:"synthetic_id_floor"`

	// LookupCacheSize is the number of lookup indexes kept in memory.
	// Default: 64
	LookupCacheSize int `mapstructure:"lookup_cache_size" validate:"omitempty,gt=0" yaml:"lookup_cache_size"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages. It checks that
// the config file exists and points at 'appsync init' when it does not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  appsync init\n\n"+
				"Or specify a custom config file:\n"+
				"  appsync <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  appsync init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may carry the relay token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the APPSYNC_ prefix and underscores.
	// Example: APPSYNC_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("APPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/appsync/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// Explicit config paths surface as os.PathError when missing.
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts
// strings to time.Duration. This enables config files to use human-readable
// durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "appsync")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "appsync")
}

// getDataDir returns the directory for backend database files.
//
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share, or falls back to
// current directory (.) if home directory cannot be determined.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "appsync")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share", "appsync")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
