package bangs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce batches bursts of editor writes into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the bang table when dataset files change.
// It watches the static directory prefix of the dataset pattern.
type Watcher struct {
	pattern  string
	dir      string
	debounce time.Duration
	onReload func(*Table)
	onError  func(error)
	log      *zap.Logger
}

// NewWatcher creates a watcher for pattern. onReload receives the freshly
// loaded table after every settled change.
func NewWatcher(pattern string, onReload func(*Table), log *zap.Logger) (*Watcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("watch bangs: empty dataset pattern")
	}
	if log == nil {
		log = zap.NewNop()
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return &Watcher{
		pattern:  pattern,
		dir:      filepath.FromSlash(base),
		debounce: DefaultDebounce,
		onReload: onReload,
		log:      log.Named("bangs.watch"),
	}, nil
}

// SetDebounce overrides the settle delay.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// OnError registers fn to receive reload failures.
func (w *Watcher) OnError(fn func(error)) {
	w.onError = fn
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching", zap.String("dir", w.dir), zap.String("pattern", w.pattern))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("dataset changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	ok, err := doublestar.PathMatch(w.pattern, ev.Name)
	return err == nil && ok
}

func (w *Watcher) reload() {
	start := time.Now()
	t, files, err := LoadFiles(w.pattern)
	if err != nil {
		w.log.Warn("reload failed, keeping previous table", zap.Error(err))
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.log.Info("reloaded",
		zap.Int("bangs", t.Len()),
		zap.Int("files", len(files)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	if w.onReload != nil {
		w.onReload(t)
	}
}
