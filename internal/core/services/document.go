package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/metrics"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Listing defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DocumentService ingests uploads and manages a user's documents.
type DocumentService struct {
	docStore driven.DocumentStore
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	now      func() time.Time
}

// NewDocumentService creates a new document service.
// embedder may be nil, in which case Ingest fails with ErrEmbeddingUnavailable.
func NewDocumentService(
	docStore driven.DocumentStore,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		index:    index,
		now:      time.Now,
	}
}

// Ingest runs the 5-step ingestion pipeline:
// normalise, chunk, embed, persist document and chunks, index.
//
// Embedding happens before anything is written. When a later step fails the
// chunks and the document are deleted again, so a failed upload leaves no
// trace in the store.
func (s *DocumentService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.Document, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if len(req.Data) > domain.MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, domain.MaxUploadSize)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Ingest")
	log := logger.WithFields(logger.Fields{"owner": req.OwnerID, "filename": req.Filename})

	// 1. NORMALISE
	result, err := s.registry.Normalise(ctx, &domain.RawDocument{
		OwnerID:  req.OwnerID,
		Filename: req.Filename,
		MIMEType: req.MIMEType,
		Content:  req.Data,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, s.failed(fmt.Errorf("normalise: %w", err))
	}

	doc := result.Document
	doc.ID = uuid.New().String()
	doc.OwnerID = req.OwnerID
	doc.Filename = req.Filename
	doc.CreatedAt = s.now()
	doc.Metadata = buildMetadata(doc.Metadata, req)

	// 2. CHUNK
	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, s.failed(fmt.Errorf("chunk: %w", err))
	}
	log.Debugf("%d chunks", len(chunks))

	// 3. EMBED
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, s.failed(fmt.Errorf("embed: %w", err))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	// 4. PERSIST
	if err := s.docStore.SaveDocument(ctx, &doc); err != nil {
		return nil, s.failed(fmt.Errorf("save document: %w", err))
	}
	stored, err := s.docStore.InsertChunks(ctx, chunks)
	if err != nil {
		s.rollback(ctx, doc.ID)
		return nil, s.failed(fmt.Errorf("save chunks: %w", err))
	}

	// 5. INDEX
	entries := make([]domain.VectorEntry, len(stored))
	for i, c := range stored {
		entries[i] = domain.VectorEntry{
			ChunkID:    c.ID,
			DocumentID: doc.ID,
			Position:   c.Position,
			Filename:   doc.Filename,
			Content:    c.Content,
			Embedding:  c.Embedding,
		}
	}
	if err := s.index.AddDocuments(ctx, entries); err != nil {
		s.rollback(ctx, doc.ID)
		return nil, s.failed(fmt.Errorf("index: %w", err))
	}

	metrics.DocumentsIngestedTotal.Add(1)
	metrics.ChunksIndexedTotal.Add(int64(len(entries)))
	log.WithField("document", doc.ID).Infof("ingested %d chunks", len(entries))
	return &doc, nil
}

// failed counts a rejected ingestion and passes err through.
func (s *DocumentService) failed(err error) error {
	metrics.DocumentsFailedTotal.Add(1)
	return err
}

// rollback removes a partially ingested document.
// It runs even when ctx is cancelled since the writes already happened.
func (s *DocumentService) rollback(ctx context.Context, documentID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.docStore.DeleteChunks(ctx, documentID); err != nil {
		logger.Error("Rollback of chunks for %s failed: %v", documentID, err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Error("Rollback of document %s failed: %v", documentID, err)
	}
}

// buildMetadata merges normaliser, caller and upload metadata.
// Upload facts (type, size) take precedence.
func buildMetadata(extracted map[string]string, req driving.IngestRequest) map[string]string {
	md := make(map[string]string, len(extracted)+len(req.Metadata)+3)
	for k, v := range extracted {
		md[k] = v
	}
	for k, v := range req.Metadata {
		md[k] = v
	}
	md[domain.MetaFileType] = strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Filename)), ".")
	md[domain.MetaFileSize] = strconv.Itoa(len(req.Data))
	if req.MIMEType != "" {
		md[domain.MetaMIMEType] = req.MIMEType
	}
	return md
}

// Get retrieves one of the user's documents.
func (s *DocumentService) Get(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != userID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// List returns a page of the user's documents, newest first.
func (s *DocumentService) List(
	ctx context.Context, userID string, opts driving.ListOptions,
) (*domain.DocumentPage, error) {
	page := max(opts.Page, 1)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	docs, total, err := s.docStore.FindDocuments(ctx, domain.DocumentFilter{
		OwnerID: userID,
		Query:   strings.TrimSpace(opts.Query),
		Offset:  (page - 1) * limit,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	return &domain.DocumentPage{
		Documents: docs,
		Total:     total,
		Page:      page,
		Pages:     (total + limit - 1) / limit,
	}, nil
}

// GetDetails returns a document with its chunk count.
func (s *DocumentService) GetDetails(
	ctx context.Context, userID, documentID string,
) (*driving.DocumentDetails, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &driving.DocumentDetails{Document: *doc, ChunkCount: len(chunks)}, nil
}

// Delete removes the document and its chunks.
// Its index entries stay; retrieval drops them because the document is gone.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	if _, err := s.Get(ctx, userID, documentID); err != nil {
		return err
	}
	if err := s.docStore.DeleteChunks(ctx, documentID); err != nil {
		return err
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	logger.Debug("Deleted document %s", documentID)
	return nil
}
