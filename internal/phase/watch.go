package phase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay batches bursts of editor writes into one reload.
const reloadDelay = 500 * time.Millisecond

// Watcher reloads a registry when override files under dir change.
type Watcher struct {
	reg     *Registry
	loader  *Loader
	dir     string
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
}

// NewWatcher watches dir on the real filesystem. The directory must exist.
func NewWatcher(reg *Registry, dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		reg:     reg,
		loader:  NewOsLoader(dir),
		dir:     dir,
		watcher: fw,
		delay:   reloadDelay,
	}, nil
}

// Run handles events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		_ = w.watcher.Close()
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if isPhaseFile(event.Name) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("phase watch error", "dir", w.dir, "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.reload)
}

// reload keeps the current phases when the new files do not load.
func (w *Watcher) reload() {
	overrides, err := w.loader.LoadAll()
	if err == nil {
		err = w.reg.Reload(overrides)
	}
	if err != nil {
		slog.Warn("phase overrides not reloaded", "dir", w.dir, "error", err)
		return
	}
	slog.Info("phase overrides reloaded", "dir", w.dir, "phases", len(w.reg.Keys()))
}

func isPhaseFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
