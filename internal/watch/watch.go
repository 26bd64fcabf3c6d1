// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch re-runs a conversion whenever its input file is rewritten,
// supporting the edit-in-CAD, re-export, re-convert loop.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events a CAD export produces into
// one rebuild.
const DefaultDebounce = 200 * time.Millisecond

// File watches path and calls fn after each change, debounced. Editors and
// CAD exporters replace files rather than writing in place, so the watch is
// on the parent directory and filters events by name. fn errors are the
// callback's concern; File only stops when ctx is canceled or the watcher
// itself fails.
func File(ctx context.Context, path string, debounce time.Duration, fn func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			pending = true
			timer.Reset(debounce)

		case <-timer.C:
			pending = false
			fn()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}
