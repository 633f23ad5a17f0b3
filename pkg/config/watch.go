package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
)

// Watch watches the configuration file and invokes onChange with the freshly
// loaded configuration every time the file is rewritten. A file that fails
// to load is logged and skipped; the previous configuration stays in effect.
//
// The parent directory is watched rather than the file itself because
// editors and config management tools replace files atomically via rename,
// which drops a watch registered on the file.
//
// Returns a stop function that releases the watcher.
func Watch(configPath string, onChange func(*Config)) (func(), error) {
	if configPath == "" {
		configPath = GetDefaultConfigPath()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				cfg, err := Load(configPath)
				if err != nil {
					logger.Error("config reload failed, keeping previous configuration",
						"path", configPath, "error", err)
					continue
				}

				logger.Info("configuration reloaded", "path", configPath)
				onChange(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher error", "error", err)

			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		_ = watcher.Close()
	}
	return stop, nil
}
