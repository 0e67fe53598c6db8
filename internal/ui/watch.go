package ui

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// watchDebounce coalesces the burst of events a single write or rename produces
const watchDebounce = 150 * time.Millisecond

// watchVault calls notify after the database file at path is created,
// written or renamed over. The directory is watched because restore
// replaces the file by rename. The returned function stops the watcher.
func watchVault(ctx context.Context, path string, notify func()) (func() error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	target := filepath.Clean(path)
	var mu sync.Mutex
	var timer *time.Timer

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, notify)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("vault watcher error")
			}
		}
	}()

	return w.Close, nil
}
