package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	corecatalog "github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/infra/logger"
)

// DefaultDebounce groups the bursts of events editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a catalog file when it changes and swaps the snapshot held
// by an Atomic provider. A reload that fails keeps the previous snapshot.
type Watcher struct {
	path     string
	target   *corecatalog.Atomic
	log      logger.Logger
	debounce time.Duration
	onReload func(*corecatalog.Catalog)
}

// NewWatcher watches path and stores reloaded catalogs in target. onReload,
// when not nil, is called after every successful swap.
func NewWatcher(path string, target *corecatalog.Atomic, log logger.Logger, onReload func(*corecatalog.Catalog)) *Watcher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Watcher{path: path, target: target, log: log, debounce: DefaultDebounce, onReload: onReload}
}

// Run blocks until ctx is canceled. The parent directory is watched so
// that files replaced by rename are picked up too.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}

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
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("catalog watcher: %v", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cat, err := LoadFile(w.path, w.log)
	if err != nil {
		w.log.Errorf("catalog reload failed, keeping %d vehicles: %v", w.target.Snapshot().Len(), err)
		return
	}
	w.target.Store(cat)
	if w.onReload != nil {
		w.onReload(cat)
	}
}
