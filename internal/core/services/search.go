package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/metrics"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultCandidateMultiplier is how many times k candidates are fetched
// from the index before the ownership filter runs.
const DefaultCandidateMultiplier = 4

// SearchService is the retriever: vector search scoped to one user.
//
// The index is shared by all users, so the top entries may belong to
// someone else. The service fetches k*multiplier candidates, keeps those
// whose document the user owns, and truncates to k. A multiplier of 1
// searches a fixed global top-k and can therefore return fewer than k
// results even when the user has more relevant chunks.
type SearchService struct {
	docStore   driven.DocumentStore
	index      driven.VectorIndex
	embedder   driven.EmbeddingService
	multiplier int
}

// NewSearchService creates a new search service.
// A multiplier below 1 uses DefaultCandidateMultiplier.
func NewSearchService(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	multiplier int,
) *SearchService {
	if multiplier < 1 {
		multiplier = DefaultCandidateMultiplier
	}
	return &SearchService{
		docStore:   docStore,
		index:      index,
		embedder:   embedder,
		multiplier: multiplier,
	}
}

// Search returns up to opts.Limit of the user's chunks, most similar first.
// An index that has never been written yields no results and no error.
func (s *SearchService) Search(
	ctx context.Context, query, userID string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	k := opts.Limit
	if k <= 0 {
		k = domain.DefaultTopK
	}
	if k > domain.MaxTopK {
		return nil, fmt.Errorf("%w: k must be at most %d, got %d", domain.ErrInvalidInput, domain.MaxTopK, k)
	}

	metrics.SearchRequestsTotal.Add(1)
	logger.Section("Retrieve")

	snap, ok, err := s.index.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || snap.Len() == 0 {
		logger.Debug("No index yet, returning no results")
		return []domain.SearchResult{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) != snap.Dimension() {
		return nil, fmt.Errorf("%w: query has dimension %d but the index has %d; re-ingest after changing the embedding model",
			domain.ErrIndexDimension, len(vector), snap.Dimension())
	}

	hits, err := snap.SimilaritySearch(ctx, vector, candidateCount(k, s.multiplier, snap.Len()))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	owned, err := s.ownedDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, min(k, len(hits)))
	for _, hit := range hits {
		if len(results) == k {
			break
		}
		if _, ok := owned[hit.Entry.DocumentID]; !ok {
			s.checkStale(ctx, hit.Entry)
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID:    hit.Entry.ChunkID,
			DocumentID: hit.Entry.DocumentID,
			Filename:   hit.Entry.Filename,
			Position:   hit.Entry.Position,
			Content:    hit.Entry.Content,
			Score:      hit.Similarity,
		})
	}

	logger.Debug("Search %q: %d candidates, %d owned by %s", query, len(hits), len(results), userID)
	return results, nil
}

// candidateCount returns min(k*multiplier, size) without overflowing.
func candidateCount(k, multiplier, size int) int {
	if k > size/multiplier {
		return size
	}
	return k * multiplier
}

func (s *SearchService) ownedDocuments(ctx context.Context, userID string) (map[string]struct{}, error) {
	ids, err := s.docStore.DocumentIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned documents: %w", err)
	}
	owned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		owned[id] = struct{}{}
	}
	return owned, nil
}

// checkStale logs index entries whose document no longer exists.
// Such entries are left behind by deletes since the index cannot remove them.
func (s *SearchService) checkStale(ctx context.Context, entry domain.VectorEntry) {
	_, err := s.docStore.GetDocument(ctx, entry.DocumentID)
	if !errors.Is(err, domain.ErrNotFound) {
		return
	}
	metrics.ScopeViolationsTotal.Add(1)
	logger.WithFields(logger.Fields{
		"chunk":    entry.ChunkID,
		"document": entry.DocumentID,
	}).Debug(domain.ErrScopeViolation.Error())
}
