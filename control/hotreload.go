// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Reloader watches one configuration file and runs its hooks after the file
// changes. The parent directory is watched, since editors and config
// management usually replace a file rather than write it in place. Bursts
// of events are coalesced into one reload.

package control

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce coalesces the event burst of a single save.
const DefaultReloadDebounce = 100 * time.Millisecond

// Reloader dispatches reload hooks for one watched file.
type Reloader struct {
	path     string
	debounce time.Duration
	log      *slog.Logger
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	hooks []func()
}

// NewReloader starts watching path. The file itself need not exist yet.
func NewReloader(path string, debounce time.Duration, logger *slog.Logger) (*Reloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("reloader: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("reloader: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("reloader: watch %s: %w", filepath.Dir(abs), err)
	}
	return &Reloader{
		path:     abs,
		debounce: debounce,
		log:      logger.With("component", "reloader", "path", abs),
		watcher:  w,
	}, nil
}

// Path returns the absolute path being watched.
func (r *Reloader) Path() string {
	return r.path
}

// OnReload adds a hook. Hooks run in registration order on the Run goroutine.
func (r *Reloader) OnReload(fn func()) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// TriggerSync runs all hooks on the calling goroutine.
func (r *Reloader) TriggerSync() {
	r.mu.Lock()
	hooks := append([]func(){}, r.hooks...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Run delivers reloads until ctx is done or the watcher is closed.
func (r *Reloader) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != r.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			r.log.Info("file changed, reloading")
			r.TriggerSync()
		}
	}
}

// Close stops watching.
func (r *Reloader) Close() error {
	return r.watcher.Close()
}
