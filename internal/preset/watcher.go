// SPDX-License-Identifier: MIT
package preset

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	applog "equalizer/internal/log"
	"equalizer/internal/params"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events editors produce per save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a preset file into a store whenever it changes. The
// directory is watched rather than the file so saves that replace the file
// are seen too.
type Watcher struct {
	path     string
	store    *params.Store
	debounce time.Duration

	// OnReload, if set before Start, is called after every reload attempt.
	OnReload func(err error)

	mu       sync.Mutex
	watching bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher returns a watcher for path. It does nothing until Start.
func NewWatcher(path string, store *params.Store) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		debounce: DefaultDebounce,
	}
}

// Start begins watching. Calling Start while watching is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watching = true
	w.stop = make(chan struct{})
	w.wg.Add(1)
	go w.run(fw, w.stop)

	applog.Infof("Preset: Watching %s", w.path)
	return nil
}

// Stop ends watching and waits for the watch goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return
	}
	close(w.stop)
	w.watching = false
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) run(fw *fsnotify.Watcher, stop <-chan struct{}) {
	defer w.wg.Done()
	defer fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := Load(w.path, w.store)
			if err != nil {
				applog.Warnf("Preset: Reload rejected, keeping current values: %v", err)
			}
			if w.OnReload != nil {
				w.OnReload(err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			applog.Errorf("Preset: Watcher error: %v", err)

		case <-stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
