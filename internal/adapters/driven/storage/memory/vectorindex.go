package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory flat cosine index.
type VectorIndex struct {
	mu   sync.Mutex
	snap *snapshot
}

// NewVectorIndex creates an empty in-memory index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Load returns the current snapshot; ok is false until the first add.
func (ix *VectorIndex) Load(_ context.Context) (driven.VectorSnapshot, bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.snap == nil {
		return nil, false, nil
	}
	return ix.snap, true, nil
}

// AddDocuments appends entries, creating the index on first use.
func (ix *VectorIndex) AddDocuments(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dimension := len(entries[0].Embedding)
	for _, e := range entries {
		if len(e.Embedding) == 0 || len(e.Embedding) != dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, want %d",
				domain.ErrInvalidInput, e.ChunkID, len(e.Embedding), dimension)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	next := &snapshot{dimension: dimension}
	if ix.snap != nil {
		if ix.snap.dimension != dimension {
			return fmt.Errorf("%w: index dimension is %d, entries have %d",
				domain.ErrIndexDimension, ix.snap.dimension, dimension)
		}
		next.entries = append(next.entries, ix.snap.entries...)
	}
	for _, e := range entries {
		e.Embedding = append([]float32(nil), e.Embedding...)
		next.entries = append(next.entries, e)
	}
	ix.snap = next
	return nil
}

// Close is a no-op.
func (ix *VectorIndex) Close() error {
	return nil
}

type snapshot struct {
	dimension int
	entries   []domain.VectorEntry
}

func (s *snapshot) Len() int       { return len(s.entries) }
func (s *snapshot) Dimension() int { return s.dimension }

func (s *snapshot) SimilaritySearch(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
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

	hits := make([]driven.VectorHit, len(s.entries))
	for i, e := range s.entries {
		hits[i] = driven.VectorHit{Similarity: cosine(query, e.Embedding)}
		e.Embedding = nil
		hits[i].Entry = e
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
