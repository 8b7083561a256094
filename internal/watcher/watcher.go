// Package watcher re-imports a roster file whenever it changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"patientdesk/internal/codec"
	"patientdesk/internal/domain"
	"patientdesk/internal/service"
)

// DefaultDebounce coalesces the burst of events editors emit on save
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
}

// New creates a new file watcher
func New(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directory so replaced files (editor save-by-rename) are seen
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	slog.Info("watching roster", "path", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				slog.Debug("roster changed", "path", w.path)
				w.onChange()
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "path", w.path, "error", err)

		case <-ctx.Done():
			stop()
			return ctx.Err()
		}
	}
}

// RosterImporter loads a parsed roster into the registry
type RosterImporter interface {
	ImportRoster(ctx context.Context, patients []domain.Patient, strategy service.Strategy) (*service.ImportResult, error)
}

// SyncRoster parses the roster at path, choosing the codec by extension,
// and imports it
func SyncRoster(ctx context.Context, path string, strategy service.Strategy, importer RosterImporter) (*service.ImportResult, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	patients, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}

	return importer.ImportRoster(ctx, patients, strategy)
}

// WatchRoster imports the roster once, then again on every change, until
// ctx is cancelled. Failed imports are logged and do not stop the watch.
func WatchRoster(ctx context.Context, path string, strategy service.Strategy, importer RosterImporter, debounce time.Duration) error {
	reimport := func() {
		res, err := SyncRoster(ctx, path, strategy, importer)
		if err != nil {
			slog.Error("roster import failed", "path", path, "error", err)
			return
		}
		slog.Info("roster imported",
			"path", path,
			"strategy", res.Strategy,
			"created", res.Created,
			"updated", res.Updated,
			"unchanged", res.Unchanged,
			"skipped", res.Skipped,
			"duplicates", res.Duplicates,
		)
	}

	reimport()

	w := New(path, reimport)
	if debounce > 0 {
		w.WithDebounce(debounce)
	}
	return w.Watch(ctx)
}
