package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

// --- Mock implementations ---

// bagOfWordsEmbedder embeds text as word counts over a fixed vocabulary,
// plus a small bias so no vector is zero.
type bagOfWordsEmbedder struct {
	vocab []string
	calls atomic.Int32
	err   error
}

func newBagOfWordsEmbedder() *bagOfWordsEmbedder {
	return &bagOfWordsEmbedder{vocab: []string{
		"invoice", "total", "due", "customer",
		"weather", "rain", "sunny",
		"recipe", "flour", "sugar",
	}}
}

func (e *bagOfWordsEmbedder) vector(text string) []float32 {
	v := make([]float32, len(e.vocab)+1)
	v[len(e.vocab)] = 0.1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for i, term := range e.vocab {
			if w == term {
				v[i]++
			}
		}
	}
	return v
}

func (e *bagOfWordsEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (e *bagOfWordsEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *bagOfWordsEmbedder) Dimensions() int              { return len(e.vocab) + 1 }
func (e *bagOfWordsEmbedder) ModelName() string            { return "bag-of-words" }
func (e *bagOfWordsEmbedder) Ping(_ context.Context) error { return nil }
func (e *bagOfWordsEmbedder) Close() error                 { return nil }

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct {
	vec []float32
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return e.vec, nil }

func (e *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int              { return len(e.vec) }
func (e *fixedEmbedder) ModelName() string            { return "fixed" }
func (e *fixedEmbedder) Ping(_ context.Context) error { return nil }
func (e *fixedEmbedder) Close() error                 { return nil }

// mockLLM records the messages of every call.
type mockLLM struct {
	mu     sync.Mutex
	calls  [][]driven.ChatMessage
	reply  string
	err    error
	before func()
}

func (m *mockLLM) Chat(_ context.Context, msgs []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]driven.ChatMessage(nil), msgs...))
	m.mu.Unlock()
	if m.before != nil {
		m.before()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) lastCall() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// textRegistry treats every upload as plain text except *.bin.
type textRegistry struct{}

func (textRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if strings.HasSuffix(raw.Filename, ".bin") {
		return nil, domain.ErrUnsupportedType
	}
	return &driven.NormaliseResult{Document: domain.Document{
		Content:  string(raw.Content),
		Metadata: map[string]string{domain.MetaFormat: "text"},
	}}, nil
}

func (textRegistry) Register(driven.Normaliser)   {}
func (textRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }

// failingIndex wraps an index and fails every write.
type failingIndex struct {
	driven.VectorIndex
	err error
}

func (f *failingIndex) AddDocuments(_ context.Context, _ []domain.VectorEntry) error {
	return f.err
}

// stubRetriever returns canned results.
type stubRetriever struct {
	results []domain.SearchResult
	err     error
}

func (s *stubRetriever) Search(_ context.Context, _, _ string, _ domain.SearchOptions) ([]domain.SearchResult, error) {
	return s.results, s.err
}

// --- Harness ---

type harness struct {
	docStore *memory.DocumentStore
	sessions *memory.SessionStore
	index    *memory.VectorIndex
	embedder *bagOfWordsEmbedder
	llm      *mockLLM
	docs     *DocumentService
	search   *SearchService
	chat     *ChatService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	pipeline, err := postprocessors.NewChunkingPipeline(domain.ChunkingSettings{Size: 200, Overlap: 40})
	require.NoError(t, err)

	h := &harness{
		docStore: memory.NewDocumentStore(),
		sessions: memory.NewSessionStore(),
		index:    memory.NewVectorIndex(),
		embedder: newBagOfWordsEmbedder(),
		llm:      &mockLLM{reply: "The total due is $1,234.00."},
	}
	h.docs = NewDocumentService(h.docStore, textRegistry{}, pipeline, h.embedder, h.index)
	h.search = NewSearchService(h.docStore, h.index, h.embedder, DefaultCandidateMultiplier)
	h.chat = NewChatService(h.sessions, h.docStore, h.search, h.llm, nil, ChatConfig{TopK: 5})
	return h
}

const invoiceText = "Invoice #42\nCustomer: ACME Corp\nTotal due: $1,234.00\nDue date: 2024-01-31"

func (h *harness) ingest(t *testing.T, owner, filename, content string) *domain.Document {
	t.Helper()
	doc, err := h.docs.Ingest(context.Background(), ingestRequest(owner, filename, content))
	require.NoError(t, err)
	return doc
}
