// Package watch reports when the open file is rewritten by another program.
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change describes an outside modification of the watched file.
type Change struct {
	Path    string
	Removed bool
}

type stamp struct {
	mod  time.Time
	size int64
	ok   bool
}

func statStamp(path string) stamp {
	fi, err := os.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stamp{mod: fi.ModTime(), size: fi.Size(), ok: true}
}

// Watcher follows a single file by watching its directory, so editors that
// save through rename are still seen.
type Watcher struct {
	fs  *fsnotify.Watcher
	log *slog.Logger

	mu   sync.Mutex
	path string
	dir  string
	seen stamp

	events chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func New(log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	w := &Watcher{
		fs:     fsw,
		log:    log,
		events: make(chan Change, 4),
		done:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events delivers changes. Bursts are coalesced when the reader lags.
func (w *Watcher) Events() <-chan Change { return w.events }

// Watch switches to path. An empty path stops watching.
func (w *Watcher) Watch(path string) error {
	abs := ""
	if path != "" {
		var err error
		if abs, err = filepath.Abs(path); err != nil {
			return err
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	dir := ""
	if abs != "" {
		dir = filepath.Dir(abs)
	}
	if dir != w.dir {
		if w.dir != "" {
			_ = w.fs.Remove(w.dir)
		}
		if dir != "" {
			if err := w.fs.Add(dir); err != nil {
				w.dir, w.path = "", ""
				return err
			}
		}
		w.dir = dir
	}
	w.path = abs
	w.seen = statStamp(abs)
	return nil
}

// Saving runs fn, typically the editor writing the file itself, and accepts
// the resulting state so it is not reported as an outside change.
func (w *Watcher) Saving(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := fn()
	if w.path != "" {
		w.seen = statStamp(w.path)
	}
	return err
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Debug("watch error", "err", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	w.mu.Lock()
	if w.path == "" || filepath.Clean(ev.Name) != w.path {
		w.mu.Unlock()
		return
	}
	now := statStamp(w.path)
	if now == w.seen {
		w.mu.Unlock()
		return
	}
	w.seen = now
	change := Change{Path: w.path, Removed: !now.ok}
	w.mu.Unlock()

	w.log.Debug("file changed on disk", "path", change.Path, "op", ev.Op.String())
	select {
	case w.events <- change:
	default:
	}
}
