// Package watcher monitors a project's tide.toml for changes so sessions
// can be restarted with fresh settings. Events are debounced; editors often
// produce several writes per save.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned by Watch after the watcher has been closed.
var ErrClosed = errors.New("watcher closed")

// DefaultDebounce is the quiet period required before a change fires.
const DefaultDebounce = 200 * time.Millisecond

// Handler is invoked with the config file path after a debounced change.
type Handler func(path string)

// Watcher watches config files and invokes a handler on change.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	timers   map[string]*time.Timer
	watched  map[string]bool
	closed   bool
	doneWg   sync.WaitGroup
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a watcher delivering change notifications to handler.
func New(handler Handler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		handler:  handler,
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
		watched:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.doneWg.Add(1)
	go w.loop()
	return w, nil
}

// Watch starts watching a config file. The containing directory is watched
// rather than the file itself: save-by-rename replaces the inode and a
// direct file watch would go quiet after the first save.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.watched[abs] {
		return nil
	}

	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	w.watched[abs] = true
	return nil
}

// Close stops the watcher and cancels pending notifications.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.doneWg.Wait()
	return err
}

// loop consumes fsnotify events until the underlying watcher closes.
func (w *Watcher) loop() {
	defer w.doneWg.Done()
	for {
		select {
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(evt)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are transient; the next event delivers normally.
		}
	}
}

// handleEvent schedules a debounced notification for watched paths.
func (w *Watcher) handleEvent(evt fsnotify.Event) {
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	abs, err := filepath.Abs(evt.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.watched[abs] {
		return
	}

	if timer, exists := w.timers[abs]; exists {
		timer.Stop()
	}
	w.timers[abs] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, abs)
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.handler(abs)
		}
	})
}
