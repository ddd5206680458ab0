package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch blocks watching the resolved config.toml and invokes onChange
// with the freshly loaded config after every write. Chat sessions use
// this to rebuild their service client when settings change, instead of
// reading mutable shared state.
//
// Watch returns nil when ctx is done. Events for other files in the
// .inkling/ directory are ignored, as are config loads that fail
// mid-edit; those are logged and skipped.
func (c *Configer) Watch(ctx context.Context, log *slog.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace config.toml
	// on save, which drops a watch held on the file itself.
	if err := watcher.Add(filepath.Dir(c.targetPath)); err != nil {
		return fmt.Errorf("watching config dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(c.targetPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := c.LoadConfig()
			if err != nil {
				log.Warn("ignoring unreadable config change",
					slog.String("path", c.targetPath),
					slog.Any("error", err),
				)
				continue
			}

			log.Debug("config changed", slog.String("path", c.targetPath))
			onChange(cfg)

		case err := <-watcher.Errors:
			return fmt.Errorf("config watcher: %w", err)
		}
	}
}
