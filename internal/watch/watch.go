// Package watch re-runs work when a snapshot file changes on disk.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when a Watcher is created with a zero debounce.
const DefaultDebounce = 300 * time.Millisecond

// ChangeKind describes what happened to the watched file.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota // written, created or renamed into place
	ChangeRemoved                    // gone after the debounce window
)

func (k ChangeKind) String() string {
	if k == ChangeRemoved {
		return "removed"
	}
	return "modified"
}

// Change is one debounced event for the watched file.
type Change struct {
	Kind ChangeKind
	File string
}

// Watcher reports debounced changes to a single file. It watches the
// parent directory so editors that replace the file by rename are seen.
type Watcher struct {
	File     string
	Debounce time.Duration
	Changes  <-chan Change

	changes  chan Change
	done     chan struct{}
	watcher  *fsnotify.Watcher
	started  bool
	stopOnce sync.Once
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// One pending change is enough: receivers re-read the file anyway.
	ch := make(chan Change, 1)
	return &Watcher{
		File:     abs,
		Debounce: debounce,
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.File)); err != nil {
		return err
	}
	w.started = true
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. It is safe to call more
// than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.watcher.Close()
		if w.started {
			<-w.done
		}
		close(w.changes)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	var last time.Time
	pending := false
	ticker := time.NewTicker(w.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending {
					w.emit()
				}
				return
			}
			if filepath.Clean(event.Name) != w.File {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = true
				last = time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(last) >= w.Debounce {
				w.emit()
				pending = false
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) emit() {
	c := Change{Kind: ChangeModified, File: w.File}
	if _, err := os.Stat(w.File); err != nil {
		c.Kind = ChangeRemoved
	}
	select {
	case w.changes <- c:
	default:
		// A change is already queued.
	}
}

// Run calls fn once, then again after every debounced modification of
// path, until ctx is done. Errors from fn are logged and do not stop the
// loop.
func Run(ctx context.Context, path string, debounce time.Duration, logger *log.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	w, err := NewWatcher(path, debounce)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	if err := fn(ctx); err != nil {
		logger.Error("run failed", "file", path, "error", err)
	}
	logger.Info("watching", "file", w.File, "debounce", w.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if c.Kind == ChangeRemoved {
				logger.Warn("file removed, waiting for it to come back", "file", c.File)
				continue
			}
			logger.Debug("file changed", "file", c.File)
			if err := fn(ctx); err != nil {
				logger.Error("run failed", "file", path, "error", err)
			}
		}
	}
}
