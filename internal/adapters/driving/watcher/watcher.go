// Package watcher uploads files that appear in a directory.
//
// Created and modified regular files are ingested for one user once their
// events have been quiet for the debounce interval. Hidden files and
// subdirectories are ignored. Removing a file does not delete the document
// that was ingested from it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultDebounce is how long a file must be quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// MetaSourcePath records the watched file a document was ingested from.
const MetaSourcePath = "source_path"

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher: closed")

// Event reports the outcome of one ingestion.
type Event struct {
	Path     string
	Document *domain.Document
	Err      error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet interval before ingestion.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithInitialScan ingests the files already in the directory on start.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) {
		w.initialScan = enabled
	}
}

// fileStamp identifies a file version so unchanged rewrites are skipped.
type fileStamp struct {
	size    int64
	modTime time.Time
}

// Watcher ingests files from a directory into a user's documents.
type Watcher struct {
	dir         string
	userID      string
	docs        driving.DocumentService
	debounce    time.Duration
	initialScan bool

	mu     sync.Mutex
	closed bool
	fsw    *fsnotify.Watcher
	seen   map[string]fileStamp
}

// New creates a watcher for dir that ingests as userID.
func New(dir, userID string, docs driving.DocumentService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		userID:   userID,
		docs:     docs,
		debounce: DefaultDebounce,
		seen:     make(map[string]fileStamp),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching and returns a channel of ingestion events.
// The channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if w.fsw != nil {
		return nil, errors.New("watcher: already watching")
	}

	info, err := os.Stat(w.dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: %w: not a directory", w.dir, domain.ErrInvalidInput)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	events := make(chan Event, 16)
	go w.loop(ctx, fsw, events)

	logger.Debug("Watching %s for user %s", w.dir, w.userID)
	return events, nil
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer close(out)
	defer fsw.Close() //nolint:errcheck

	pending := make(map[string]time.Time)
	if w.initialScan {
		for _, path := range w.existingFiles() {
			pending[path] = time.Time{}
		}
	}

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleFsEvent(ev); ok {
				pending[path] = time.Now()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)

		case now := <-ticker.C:
			for path, at := range pending {
				if now.Sub(at) < w.debounce {
					continue
				}
				delete(pending, path)

				ev, ok := w.ingest(ctx, path)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleFsEvent returns the path to ingest for a create or write event on a
// visible regular file.
func (w *Watcher) handleFsEvent(ev fsnotify.Event) (string, bool) {
	if isHidden(ev.Name) {
		return "", false
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}

	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

// ingest uploads path unless it is unchanged since the last ingestion.
func (w *Watcher) ingest(ctx context.Context, path string) (Event, bool) {
	info, err := os.Stat(path)
	if err != nil {
		// Removed before it settled.
		return Event{}, false
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	prev, seen := w.seen[path]
	w.mu.Unlock()
	if seen && prev == stamp {
		return Event{}, false
	}

	if info.Size() > domain.MaxUploadSize {
		return Event{Path: path, Err: fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, domain.MaxUploadSize)}, true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Event{Path: path, Err: fmt.Errorf("read %s: %w", path, err)}, true
	}

	doc, err := w.docs.Ingest(ctx, driving.IngestRequest{
		OwnerID:  w.userID,
		Filename: filepath.Base(path),
		Data:     data,
		Metadata: map[string]string{MetaSourcePath: path},
	})
	if err != nil {
		return Event{Path: path, Err: err}, true
	}

	w.mu.Lock()
	w.seen[path] = stamp
	w.mu.Unlock()

	logger.Debug("Ingested %s as %s", path, doc.ID)
	return Event{Path: path, Document: doc}, true
}

// existingFiles lists the visible regular files directly in the directory.
func (w *Watcher) existingFiles() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("watcher: scan %s: %v", w.dir, err)
		return nil
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) || !e.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, e.Name()))
	}
	return paths
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
