package modelmgr

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// modelWatcher watches model directories and calls onChange, debounced per file, when a file
// is written, created, removed or renamed.
type modelWatcher struct {
	watcher     *fsnotify.Watcher
	debounce    time.Duration
	onChange    func(path string)
	logger      *zap.Logger
	mu          sync.Mutex
	dirs        map[string]bool
	debounceMap map[string]*time.Timer
	closed      bool
}

func newModelWatcher(fw *fsnotify.Watcher, debounce time.Duration, onChange func(string), logger *zap.Logger) *modelWatcher {
	return &modelWatcher{
		watcher:     fw,
		debounce:    debounce,
		onChange:    onChange,
		logger:      logger,
		dirs:        make(map[string]bool),
		debounceMap: make(map[string]*time.Timer),
	}
}

// addDir starts watching dir if it is not watched yet.
func (w *modelWatcher) addDir(dir string) {
	dir = filepath.Clean(dir)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Debug("model watcher failed to add directory", zap.String("path", dir), zap.Error(err))
		return
	}
	w.dirs[dir] = true
	w.logger.Debug("model watcher added directory", zap.String("path", dir))
}

func (w *modelWatcher) run(ctx context.Context) {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("model watcher error", zap.Error(err))
			}
		}
	}
}

func (w *modelWatcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("model watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	w.debounceChange(filepath.Clean(ev.Name))
}

func (w *modelWatcher) debounceChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			w.onChange(path)
		}
	})
}

func (w *modelWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	for p, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, p)
	}
	_ = w.watcher.Close()
	w.logger.Debug("model watcher stopped")
}
