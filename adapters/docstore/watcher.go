package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"trialtab/internal"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Watcher invalidates cache entries when their backing files change
type Watcher struct {
	fs       *fsnotify.Watcher
	cache    *Cache
	source   *FileSource
	logger   *internal.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher watches every directory the file source reads from
func NewWatcher(cache *Cache, source *FileSource, logger *internal.Logger) (*Watcher, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range source.Dirs() {
		if err := fw.Add(dir); err != nil {
			logger.Warn("not watching %s: %v", dir, err)
		}
	}
	return &Watcher{
		fs:       fw,
		cache:    cache,
		source:   source,
		logger:   logger,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// SetDebounce changes the settle delay; call before Run
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes file events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				w.stopTimers()
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				w.stopTimers()
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

// Close stops the underlying fsnotify watcher
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	id, ok := w.source.IDForPath(event.Name)
	if !ok {
		return
	}
	w.logger.Trace("file event %s on %s", event.Op, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() { w.expire(id, t) })
	w.pending[id] = t
}

// expire runs when t fires. A timer that fired while a newer event replaced
// it still invalidates but leaves the newer entry alone.
func (w *Watcher) expire(id string, t *time.Timer) {
	w.mu.Lock()
	if w.pending[id] == t {
		delete(w.pending, id)
	}
	w.mu.Unlock()
	w.cache.Invalidate(id)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.pending {
		t.Stop()
		delete(w.pending, id)
	}
}
