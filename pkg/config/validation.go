package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Struct tags cover field-level rules (required values, enumerations, port
// ranges); backend-specific requirements that depend on which storage
// backend is selected are checked explicitly.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	return validateStorage(&cfg.Storage)
}

// validateStorage enforces the requirements of the selected backend only.
// Settings for unselected backends are ignored.
func validateStorage(cfg *StorageConfig) error {
	switch cfg.Backend {
	case StorageMemory:
		return nil
	case StorageBadger:
		if cfg.Badger.Path == "" {
			return fmt.Errorf("storage: badger path is required")
		}
	case StorageSQLite:
		if cfg.SQLite.Path == "" {
			return fmt.Errorf("storage: sqlite path is required")
		}
	case StoragePostgres:
		if cfg.Postgres.Host == "" {
			return fmt.Errorf("storage: postgres host is required")
		}
		if cfg.Postgres.Database == "" {
			return fmt.Errorf("storage: postgres database is required")
		}
	default:
		return fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
	return nil
}
