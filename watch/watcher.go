// Package watch reloads the module store when YAML files in the modules
// directory change. Bursts of events are coalesced with a debounce timer so
// an editor's write-then-rename produces a single reload.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/gateway/yamldir"
)

// DefaultDebounce is used when no positive debounce is configured.
const DefaultDebounce = 500 * time.Millisecond

var (
	ErrNoReload       = errors.New("watch: reload function is required")
	ErrAlreadyRunning = errors.New("watch: Run called more than once")
	ErrEventsClosed   = errors.New("watch: fsnotify channel closed unexpectedly")
)

// ReloadFunc is invoked after the debounce window with the changed files.
// modgraph.Store.Load fits through a small closure.
type ReloadFunc func(ctx context.Context, changed []string) error

// Watcher monitors a single modules directory. It is not recursive: the
// yamldir backend only reads the top level.
type Watcher struct {
	dir      string
	debounce time.Duration
	reload   ReloadFunc
	logger   modgraph.Logger

	fsw     *fsnotify.Watcher
	started atomic.Bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger modgraph.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New starts watching dir. The watch is active as soon as New returns, so
// changes made before Run is called are still reported.
func New(dir string, reload ReloadFunc, opts ...Option) (*Watcher, error) {
	if reload == nil {
		return nil, ErrNoReload
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", abs, err)
	}

	w := &Watcher{
		dir:      abs,
		debounce: DefaultDebounce,
		reload:   reload,
		logger:   nopLogger{},
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// StoreReloader adapts a Store to a ReloadFunc.
func StoreReloader(store *modgraph.Store) ReloadFunc {
	return func(ctx context.Context, _ []string) error {
		return store.Load(ctx)
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and closes the underlying watcher on exit.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		// A reload slower than the debounce window must not overlap the next.
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := make([]string, 0, len(pending))
		for path := range pending {
			changed = append(changed, path)
		}
		clear(pending)
		mu.Unlock()

		w.logger.Info("Module files changed, reloading", "files", len(changed))
		if err := w.reload(ctx, changed); err != nil {
			w.logger.Error("Reload failed", "error", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("Closing fsnotify watcher failed", "error", err)
		}
	}()

	w.logger.Debug("Watching modules directory", "dir", w.dir, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return ErrEventsClosed
			}
			if !relevant(evt) {
				continue
			}

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrEventsClosed
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// relevant drops chmod-only events and anything that is not a module file,
// including the .tmp files yamldir writes before renaming.
func relevant(evt fsnotify.Event) bool {
	if evt.Op == fsnotify.Chmod {
		return false
	}
	return yamldir.IsModuleFile(evt.Name)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
