package templates

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the layout whenever an override file in the templates
// directory changes, until ctx is done. onReload, if set, is called after
// every reload attempt with its error.
func (r *Renderer) Watch(ctx context.Context, debounce time.Duration, onReload func(error)) error {
	if r.dir == "" {
		return fmt.Errorf("no templates directory configured")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch templates directory %s: %w", r.dir, err)
	}
	r.logger.Info("Watching templates for changes", "dir", r.dir)

	go func() {
		defer func() { _ = watcher.Close() }()
		var timer *time.Timer
		reload := func() {
			err := r.Reload()
			if err != nil {
				r.logger.Error("Template reload failed, keeping previous templates", "error", err)
			} else {
				r.logger.Info("Templates reloaded", "dir", r.dir)
			}
			if onReload != nil {
				onReload(err)
			}
		}
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".html" {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				r.logger.Debug("Template change detected", "file", event.Name, "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Error("Template watcher error", "error", err)
			}
		}
	}()
	return nil
}
