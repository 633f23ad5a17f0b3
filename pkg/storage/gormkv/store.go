// Package gormkv implements the storage.Store interface on a relational
// key-value table through GORM. SQLite serves single-device deployments that
// already carry a SQLite runtime; PostgreSQL serves shared test rigs. Both
// backends run the same code path, selected by config.
package gormkv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/storage"
)

// Backend selects the SQL dialect.
type Backend string

const (
	// BackendSQLite uses a local SQLite file (default).
	BackendSQLite Backend = "sqlite"

	// BackendPostgres uses PostgreSQL.
	BackendPostgres Backend = "postgres"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	SSLMode  string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config contains the gormkv backend configuration.
type Config struct {
	Backend  Backend        `mapstructure:"backend" yaml:"backend"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Backend == BackendPostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("gormkv: sqlite path is required")
		}
	case BackendPostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("gormkv: postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("gormkv: postgres database is required")
		}
	default:
		return fmt.Errorf("gormkv: unsupported backend %q", c.Backend)
	}
	return nil
}

// entry is the key-value row. Values are the JSON payloads the sync layer
// stores; the table never interprets them.
type entry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value"`
}

func (entry) TableName() string { return "appsync_kv" }

// GORMStore is a Store over a SQL key-value table. Safe for concurrent use.
type GORMStore struct {
	db *gorm.DB
}

// New opens the configured database and migrates the key-value table.
func New(cfg *Config) (*GORMStore, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Backend {
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("gormkv: creating database directory: %w", err)
		}
		// WAL for concurrent readers, busy_timeout to ride out writer locks.
		dsn := cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case BackendPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormkv: connecting: %w", err)
	}

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("gormkv: migrating: %w", err)
	}

	return &GORMStore{db: db}, nil
}

// Get returns the payload stored under key, or storage.ErrNotFound.
func (s *GORMStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var e entry
	err := s.db.WithContext(ctx).First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormkv: reading %q: %w", key, err)
	}
	return json.RawMessage(e.Value), nil
}

// Set stores value under key with upsert semantics.
func (s *GORMStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("gormkv: encoding %q: %w", key, err)
	}

	err = s.db.WithContext(ctx).Save(&entry{Key: key, Value: raw}).Error
	if err != nil {
		return fmt.Errorf("gormkv: writing %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys succeed.
func (s *GORMStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&entry{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("gormkv: deleting %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
