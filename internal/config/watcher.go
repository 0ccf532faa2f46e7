// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// DefaultReloadDebounce coalesces the burst of events editors produce when
// saving a file.
const DefaultReloadDebounce = 250 * time.Millisecond

// ReloadFunc receives a freshly loaded config, or the error that prevented
// loading it.
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads a config file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// atomic-rename saves (which replace the inode) keep being observed.
type Watcher struct {
	path     string
	onReload ReloadFunc
	debounce time.Duration

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
	wg    sync.WaitGroup
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(path string, onReload ReloadFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     filepath.Clean(path),
		onReload: onReload,
		debounce: DefaultReloadDebounce,
		watcher:  fsw,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// WithDebounce overrides the reload debounce.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Start begins watching. The directory containing the file must exist.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher error: %v", err)
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		log.Printf("config: reload of %s failed: %v", w.path, err)
	}
	if w.onReload != nil {
		w.onReload(cfg, err)
	}
}
