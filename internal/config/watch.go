// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
)

// WatchTargets reloads the server-targets file whenever it changes on disk
// and delivers the new list via onChange. Editors often replace files via
// rename, so the parent directory is watched rather than the file itself.
// The watcher stops when ctx is cancelled.
func WatchTargets(ctx context.Context, path string, onChange func([]ServerTarget)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	logger := log.WithComponent("config")

	go func() {
		defer func() {
			if cerr := watcher.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("failed to close targets watcher")
			}
		}()

		// Debounce: editors emit several events per save.
		var pending <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(250 * time.Millisecond)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Str("event", "targets.watch_error").Msg("targets watcher error")
			case <-pending:
				pending = nil
				targets, err := LoadTargets(path)
				if err != nil {
					logger.Error().
						Err(err).
						Str("event", "targets.reload_failed").
						Str("path", path).
						Msg("targets file changed but could not be reloaded, keeping previous list")
					continue
				}
				logger.Info().
					Str("event", "targets.reloaded").
					Str("path", path).
					Int("servers", len(targets)).
					Msg("server targets reloaded")
				onChange(targets)
			}
		}
	}()

	return nil
}
