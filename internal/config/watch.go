package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"docarchive/internal/archive"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// WatchArchiveFile re-applies path to settings whenever the file changes,
// until ctx is done. The parent directory is watched so atomic
// rename-on-save is picked up. A file that fails to parse is logged and the
// previous settings stay in effect. onChange, if set, receives every
// successfully applied configuration.
func WatchArchiveFile(ctx context.Context, path string, settings *archive.Settings, onChange func(archive.Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("archive config watcher error", "path", abs, "error", err)
			case <-fire:
				fire = nil
				cfg, err := ApplyArchiveFile(abs, settings)
				if err != nil {
					slog.Warn("archive config reload rejected", "path", abs, "error", err)
					continue
				}
				slog.Info("archive config reloaded", "path", abs, "name", cfg.Name, "override_remove", cfg.InterceptDelete)
				if onChange != nil {
					onChange(cfg)
				}
			}
		}
	}()

	return nil
}

// ApplyArchiveFile loads path and merges it into settings.
func ApplyArchiveFile(path string, settings *archive.Settings) (archive.Config, error) {
	opts, err := LoadArchiveFile(path)
	if err != nil {
		return archive.Config{}, err
	}
	return settings.Configure(opts)
}
