package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// ==================== Vector Index ====================

// VectorIndex is a flat (exhaustive) cosine similarity index persisted in
// its own SQLite file. Every search scores all entries, which keeps results
// exact and deterministic.
//
// Writers are serialised by writeMu around load, append and commit. Readers
// use the snapshot published after the commit, so a search never observes
// a partially applied write. Entries committed by other processes sharing
// the file are picked up on the next Load or AddDocuments.
type VectorIndex struct {
	path string

	writeMu sync.Mutex

	mu   sync.RWMutex
	db   *sql.DB
	snap *vectorSnapshot
}

var _ driven.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex returns an index stored at dataDir/index.db.
// Nothing is created on disk until the first AddDocuments call.
func NewVectorIndex(dataDir string) (*VectorIndex, error) {
	if dataDir == "" {
		var err error
		if dataDir, err = DefaultDataDir(); err != nil {
			return nil, err
		}
	}
	return &VectorIndex{path: filepath.Join(dataDir, "index.db")}, nil
}

// Path returns the index file path.
func (ix *VectorIndex) Path() string {
	return ix.path
}

// Load returns the current snapshot. ok is false when no index exists yet.
// While a local write is in progress the last published snapshot is
// returned without waiting.
func (ix *VectorIndex) Load(ctx context.Context) (driven.VectorSnapshot, bool, error) {
	if !ix.writeMu.TryLock() {
		ix.mu.RLock()
		snap := ix.snap
		ix.mu.RUnlock()
		if snap != nil {
			return snap, true, nil
		}
		ix.writeMu.Lock()
	}
	defer ix.writeMu.Unlock()

	snap, err := ix.refreshLocked(ctx)
	if err != nil {
		return nil, false, err
	}
	if snap == nil {
		return nil, false, nil
	}
	return snap, true, nil
}

// refreshLocked brings the snapshot up to date with the file, reading only
// entries appended since the last refresh. Callers hold writeMu.
// Returns nil, nil when the index has never been created.
func (ix *VectorIndex) refreshLocked(ctx context.Context) (*vectorSnapshot, error) {
	ix.mu.RLock()
	current := ix.snap
	ix.mu.RUnlock()

	if _, err := os.Stat(ix.path); errors.Is(err, os.ErrNotExist) {
		return current, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrIndexCorrupt, ix.path, err)
	}

	db, err := ix.openLocked()
	if err != nil {
		return nil, err
	}

	dimension, after := 0, int64(0)
	if current != nil {
		dimension, after = current.dimension, current.lastSeq
	} else {
		err := db.QueryRowContext(ctx, "SELECT dimension FROM index_meta WHERE id = 1").Scan(&dimension)
		switch {
		case errors.Is(err, sql.ErrNoRows), isMissingTable(err):
			// File exists but the creating transaction never committed.
			return nil, nil
		case err != nil:
			return nil, fmt.Errorf("%w: reading index metadata: %w", domain.ErrIndexCorrupt, err)
		case dimension <= 0:
			return nil, fmt.Errorf("%w: invalid dimension %d", domain.ErrIndexCorrupt, dimension)
		}
	}

	tail, lastSeq, err := readEntries(ctx, db, dimension, after)
	if err != nil {
		return nil, err
	}
	if current != nil && len(tail) == 0 {
		return current, nil
	}

	next := &vectorSnapshot{dimension: dimension, lastSeq: lastSeq}
	if current != nil {
		// Full slice expression forces a copy, leaving the old snapshot untouched.
		next.entries = append(current.entries[:len(current.entries):len(current.entries)], tail...)
	} else {
		next.entries = tail
	}
	ix.publish(next)
	return next, nil
}

// readEntries returns the entries with seq > after in insertion order, and
// the highest seq read (after when there are none).
func readEntries(ctx context.Context, db *sql.DB, dimension int, after int64) ([]indexedEntry, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, chunk_id, document_id, position, filename, content, embedding
		FROM index_entries WHERE seq > ? ORDER BY seq
	`, after)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading index entries: %w", domain.ErrIndexCorrupt, err)
	}
	defer rows.Close()

	lastSeq := after
	var entries []indexedEntry
	for rows.Next() {
		var e domain.VectorEntry
		var blob []byte
		if err := rows.Scan(&lastSeq, &e.ChunkID, &e.DocumentID, &e.Position, &e.Filename, &e.Content, &blob); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning entry: %w", domain.ErrIndexCorrupt, err)
		}
		if len(blob) != dimension*4 {
			return nil, 0, fmt.Errorf("%w: entry %s has %d bytes, want %d",
				domain.ErrIndexCorrupt, e.ChunkID, len(blob), dimension*4)
		}
		e.Embedding = bytesToFloat32Slice(blob)
		entries = append(entries, newIndexedEntry(e))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating entries: %w", domain.ErrIndexCorrupt, err)
	}
	return entries, lastSeq, nil
}

// AddDocuments creates or appends to the index and commits before returning.
func (ix *VectorIndex) AddDocuments(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	dimension := len(entries[0].Embedding)
	for _, e := range entries {
		if len(e.Embedding) == 0 || len(e.Embedding) != dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, want %d",
				domain.ErrInvalidInput, e.ChunkID, len(e.Embedding), dimension)
		}
	}

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	current, err := ix.refreshLocked(ctx)
	if err != nil {
		return err
	}
	if current != nil && current.dimension != dimension {
		return fmt.Errorf("%w: index dimension is %d, entries have %d",
			domain.ErrIndexDimension, current.dimension, dimension)
	}

	if err := os.MkdirAll(filepath.Dir(ix.path), 0700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	db, err := ix.openLocked()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if current == nil {
		// Another process may have created the index since the refresh.
		if err := ensureIndexSchema(ctx, tx, dimension); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries (chunk_id, document_id, position, filename, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ChunkID, e.DocumentID, e.Position, e.Filename,
			e.Content, float32SliceToBytes(e.Embedding)); err != nil {
			return fmt.Errorf("saving index entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}

	// The write is durable; publish it even if ctx ends now.
	if _, err := ix.refreshLocked(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("reloading index: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (ix *VectorIndex) Close() error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.snap = nil
	if ix.db == nil {
		return nil
	}
	err := ix.db.Close()
	ix.db = nil
	return err
}

func (ix *VectorIndex) publish(snap *vectorSnapshot) {
	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()
}

// openLocked opens the database handle once. Callers hold writeMu.
func (ix *VectorIndex) openLocked() (*sql.DB, error) {
	if ix.db != nil {
		return ix.db, nil
	}
	db, err := openDB(ix.path)
	if err != nil {
		return nil, err
	}
	ix.db = db
	return db, nil
}

// ensureIndexSchema creates the index tables if needed and checks that the
// recorded dimension matches. The first writer records the dimension.
func ensureIndexSchema(ctx context.Context, tx *sql.Tx, dimension int) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS index_meta (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			dimension   INTEGER NOT NULL,
			created_at  DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS index_entries (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id    TEXT NOT NULL,
			document_id TEXT NOT NULL,
			position    INTEGER NOT NULL,
			filename    TEXT NOT NULL,
			content     TEXT NOT NULL,
			embedding   BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating index schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO index_meta (id, dimension, created_at) VALUES (1, ?, ?)",
		dimension, time.Now()); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, "SELECT dimension FROM index_meta WHERE id = 1").Scan(&stored); err != nil {
		return fmt.Errorf("%w: reading index metadata: %w", domain.ErrIndexCorrupt, err)
	}
	if stored != dimension {
		return fmt.Errorf("%w: index dimension is %d, entries have %d",
			domain.ErrIndexDimension, stored, dimension)
	}
	return nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such table")
}

// ==================== Snapshot ====================

// indexedEntry is an entry with its precomputed vector norm.
type indexedEntry struct {
	entry domain.VectorEntry
	norm  float64
}

func newIndexedEntry(e domain.VectorEntry) indexedEntry {
	return indexedEntry{entry: e, norm: norm(e.Embedding)}
}

// vectorSnapshot is an immutable view of the index.
type vectorSnapshot struct {
	dimension int
	entries   []indexedEntry

	// lastSeq is the seq of the newest entry read from the file.
	lastSeq int64
}

var _ driven.VectorSnapshot = (*vectorSnapshot)(nil)

// Len returns the number of entries.
func (s *vectorSnapshot) Len() int {
	return len(s.entries)
}

// Dimension returns the vector size of the index.
func (s *vectorSnapshot) Dimension() int {
	return s.dimension
}

// SimilaritySearch scores every entry and returns the top k.
// Entries with equal scores keep their insertion order.
func (s *vectorSnapshot) SimilaritySearch(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			domain.ErrInvalidInput, len(query), s.dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qNorm := norm(query)
	scored := make([]driven.VectorHit, len(s.entries))
	for i, ie := range s.entries {
		entry := ie.entry
		entry.Embedding = nil
		scored[i] = driven.VectorHit{
			Entry:      entry,
			Similarity: cosine(query, ie.entry.Embedding, qNorm, ie.norm),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns dot(a,b)/(|a||b|), or 0 when either vector is zero.
func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}
