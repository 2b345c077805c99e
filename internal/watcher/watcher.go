// Package watcher notices new video files landing in the flat source
// folder. A file being copied in fires a burst of filesystem events, so
// arrivals are debounced per file and only reported once writes settle.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/vonshlovens/clipkeep/internal/library"
)

// Watcher monitors one source folder for arriving media files. Only the
// folder itself is watched; the library never nests source media.
type Watcher struct {
	sourceFolder   string
	watcher        *fsnotify.Watcher
	debouncer      *Debouncer
	ignorePatterns []string
	stopCh         chan struct{}
}

// New creates a watcher over sourceFolder. Files matching an ignore
// pattern or carrying an unsupported extension never surface as arrivals.
func New(sourceFolder string, debounceMs int, ignorePatterns []string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		sourceFolder:   sourceFolder,
		watcher:        fsWatcher,
		debouncer:      NewDebouncer(debounceMs),
		ignorePatterns: ignorePatterns,
		stopCh:         make(chan struct{}),
	}, nil
}

// Start begins watching and launches the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.sourceFolder); err != nil {
		return err
	}

	go w.processEvents(ctx)

	slog.Info("watching source folder",
		"path", w.sourceFolder,
		"ignore_patterns", len(w.ignorePatterns))
	return nil
}

// Arrivals returns the channel of settled media arrivals.
func (w *Watcher) Arrivals() <-chan Arrival {
	return w.debouncer.Arrivals()
}

// Stop stops the watcher and drops pending arrivals.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.debouncer.Stop()
	return w.watcher.Close()
}

// Flush immediately emits all pending arrivals.
func (w *Watcher) Flush() {
	w.debouncer.Flush()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// handleEvent turns create and write events for supported media into
// debounced arrivals. Removes and renames are irrelevant here: once a
// file is imported, its source copy no longer matters.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	name := filepath.Base(event.Name)
	if !library.IsSupportedExtension(filepath.Ext(name)) {
		return
	}
	if w.shouldIgnore(name) {
		return
	}

	w.debouncer.Add(name)
}

func (w *Watcher) shouldIgnore(name string) bool {
	for _, pattern := range w.ignorePatterns {
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}
