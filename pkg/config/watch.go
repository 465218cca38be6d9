package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher holds a live Config that is swapped in place whenever the backing
// YAML file changes on disk, so MAX_OUTER_STEPS and friends can be tuned
// without restarting the orchestrator.
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	onErr   func(error)
}

// NewWatcher loads path once and begins watching it for changes.
func NewWatcher(path string, onErr func(error)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, onErr: onErr}
	w.current.Store(cfg)

	if path == "" {
		return w, nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return w, nil // no file yet; watcher is a best-effort convenience
	}
	w.fsw = fsw
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onErr != nil {
				w.onErr(err)
			}
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	cfg, err := Load(w.path)
	if err != nil {
		if w.onErr != nil {
			w.onErr(err)
		}
		return
	}
	w.current.Store(cfg)
}

// Get returns the current snapshot. Safe for concurrent use; the returned
// value is never mutated in place, only replaced.
func (w *Watcher) Get() *Config {
	return w.current.Load()
}

// Close stops watching the file.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}
