// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// HOT RELOAD
// =============================================================================

// DefaultDebounce coalesces the burst of events editors emit per save.
const DefaultDebounce = 150 * time.Millisecond

// ReloadFunc receives the reloaded configuration, or the error that
// prevented loading it. It runs on the watcher goroutine.
type ReloadFunc func(cfg *Config, err error)

// Watch reloads the config file at path whenever it changes and passes the
// result to fn. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which save by renaming a temp file over the original are seen.
func Watch(ctx context.Context, path string, fn ReloadFunc) error {
	return WatchWithDebounce(ctx, path, DefaultDebounce, fn)
}

// WatchWithDebounce is Watch with an explicit debounce delay.
func WatchWithDebounce(ctx context.Context, path string, debounce time.Duration, fn ReloadFunc) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("config watcher: %w", err))

		case <-timer.C:
			// Renames leave a window where the file is absent.
			if _, err := os.Stat(absPath); err != nil {
				continue
			}
			fn(LoadFromPath(absPath))
		}
	}
}
