package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

const testDebounce = 30 * time.Millisecond

// recordingDocs records ingestions.
type recordingDocs struct {
	mu       sync.Mutex
	requests []driving.IngestRequest
	err      error
}

func (r *recordingDocs) Ingest(_ context.Context, req driving.IngestRequest) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Document{ID: "doc-" + req.Filename, OwnerID: req.OwnerID, Filename: req.Filename}, nil
}

func (r *recordingDocs) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recordingDocs) Get(context.Context, string, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingDocs) List(context.Context, string, driving.ListOptions) (*domain.DocumentPage, error) {
	return &domain.DocumentPage{}, nil
}

func (r *recordingDocs) GetDetails(context.Context, string, string) (*driving.DocumentDetails, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingDocs) Delete(context.Context, string, string) error { return nil }

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ingestion event")
		return Event{}
	}
}

func TestWatch_IngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	docs := &recordingDocs{}
	w := New(dir, "user-1", docs, WithDebounce(testDebounce))
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "invoice.txt")
	require.NoError(t, os.WriteFile(path, []byte("Invoice #42\nTotal due: $1,234.00"), 0o644))

	ev := waitEvent(t, events)
	require.NoError(t, ev.Err)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, "doc-invoice.txt", ev.Document.ID)

	require.Equal(t, 1, docs.count())
	req := docs.requests[0]
	assert.Equal(t, "user-1", req.OwnerID)
	assert.Equal(t, "invoice.txt", req.Filename)
	assert.Equal(t, "Invoice #42\nTotal due: $1,234.00", string(req.Data))
	assert.Equal(t, path, req.Metadata[MetaSourcePath])
}

func TestWatch_InitialScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.md"), []byte("# Notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	docs := &recordingDocs{}
	w := New(dir, "user-1", docs, WithDebounce(testDebounce), WithInitialScan(true))
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	require.NoError(t, err)

	ev := waitEvent(t, events)
	require.NoError(t, ev.Err)
	assert.Equal(t, "existing.md", filepath.Base(ev.Path))

	time.Sleep(4 * testDebounce)
	assert.Equal(t, 1, docs.count(), "hidden files and directories are not ingested")
}

func TestWatch_ReportsIngestFailure(t *testing.T) {
	dir := t.TempDir()
	docs := &recordingDocs{err: domain.ErrUnsupportedType}
	w := New(dir, "user-1", docs, WithDebounce(testDebounce))
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	ev := waitEvent(t, events)
	assert.ErrorIs(t, ev.Err, domain.ErrUnsupportedType)
	assert.Nil(t, ev.Document)
}

func TestIngest_SkipsUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("same"), 0o644))

	docs := &recordingDocs{}
	w := New(dir, "user-1", docs)

	_, ok := w.ingest(context.Background(), path)
	require.True(t, ok)
	_, ok = w.ingest(context.Background(), path)
	assert.False(t, ok)
	assert.Equal(t, 1, docs.count())

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte("changed content"), 0o644))
	require.NoError(t, os.Chtimes(path, later, later))

	_, ok = w.ingest(context.Background(), path)
	assert.True(t, ok)
	assert.Equal(t, 2, docs.count())
}

func TestIngest_FailedIngestIsRetried(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o644))

	docs := &recordingDocs{err: errors.New("embedding provider down")}
	w := New(dir, "user-1", docs)

	ev, ok := w.ingest(context.Background(), path)
	require.True(t, ok)
	require.Error(t, ev.Err)

	docs.err = nil
	ev, ok = w.ingest(context.Background(), path)
	require.True(t, ok)
	assert.NoError(t, ev.Err)
}

func TestIngest_RemovedFile(t *testing.T) {
	w := New(t.TempDir(), "user-1", &recordingDocs{})

	_, ok := w.ingest(context.Background(), "/does/not/exist.txt")
	assert.False(t, ok)
}

func TestWatch_Errors(t *testing.T) {
	t.Run("non-existent directory", func(t *testing.T) {
		w := New("/non/existent/path", "user-1", &recordingDocs{})

		events, err := w.Watch(context.Background())
		assert.Error(t, err)
		assert.Nil(t, events)
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "f.txt")
		require.NoError(t, os.WriteFile(file, nil, 0o644))

		_, err := New(file, "user-1", &recordingDocs{}).Watch(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("closed watcher", func(t *testing.T) {
		w := New(t.TempDir(), "user-1", &recordingDocs{})
		require.NoError(t, w.Close())

		events, err := w.Watch(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
		assert.Nil(t, events)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		w := New(t.TempDir(), "user-1", &recordingDocs{})
		assert.NoError(t, w.Close())
		assert.NoError(t, w.Close())
	})
}

func TestWatch_ChannelClosesOnCancel(t *testing.T) {
	w := New(t.TempDir(), "user-1", &recordingDocs{}, WithDebounce(testDebounce))
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := w.Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel did not close after context cancellation")
	}
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0o644))
	hidden := filepath.Join(dir, ".hidden.txt")
	require.NoError(t, os.WriteFile(hidden, []byte("hidden"), 0o644))
	subdir := filepath.Join(dir, "testdir")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create file", file, fsnotify.Create, true},
		{"write file", file, fsnotify.Write, true},
		{"write and chmod", file, fsnotify.Write | fsnotify.Chmod, true},
		{"chmod only", file, fsnotify.Chmod, false},
		{"remove", filepath.Join(dir, "removed.txt"), fsnotify.Remove, false},
		{"rename", filepath.Join(dir, "old.txt"), fsnotify.Rename, false},
		{"create directory", subdir, fsnotify.Create, false},
		{"hidden file", hidden, fsnotify.Create, false},
	}

	w := New(dir, "user-1", &recordingDocs{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := w.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.path, path)
			}
		})
	}
}
