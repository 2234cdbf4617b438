package chunker

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.ChunkSize() != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.ChunkSize())
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(100))
		if p.Overlap() != 100 {
			t.Errorf("expected overlap 100, got %d", p.Overlap())
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

// reconstruct rebuilds the source text from segments using their offsets,
// dropping the overlapping prefix of each segment.
func reconstruct(t *testing.T, segs []Segment) string {
	t.Helper()
	var out []rune
	covered := 0
	for i, s := range segs {
		if s.Start > covered {
			t.Fatalf("gap before segment %d: covered %d, start %d", i, covered, s.Start)
		}
		r := []rune(s.Content)
		if len(r) != s.End-s.Start {
			t.Fatalf("segment %d content length %d does not match offsets [%d,%d)", i, len(r), s.Start, s.End)
		}
		out = append(out, r[covered-s.Start:]...)
		covered = s.End
	}
	return string(out)
}

func assertChunkInvariants(t *testing.T, p *Processor, text string, segs []Segment) {
	t.Helper()
	if got := reconstruct(t, segs); got != text {
		t.Errorf("reconstruction mismatch:\nwant %q\ngot  %q", text, got)
	}
	for i, s := range segs {
		if n := utf8.RuneCountInString(s.Content); n > p.chunkSize {
			t.Errorf("segment %d has %d characters, max %d", i, n, p.chunkSize)
		}
		if i == 0 {
			continue
		}
		shared := segs[i-1].End - s.Start
		if shared < 0 || shared > p.overlap {
			t.Errorf("segment %d shares %d characters with previous, want 0..%d", i, shared, p.overlap)
		}
		if s.Start <= segs[i-1].Start {
			t.Errorf("segment %d does not advance: start %d after %d", i, s.Start, segs[i-1].Start)
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	segs, err := New().Split("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 0 {
		t.Errorf("expected no segments, got %d", len(segs))
	}
}

func TestSplit_ShorterThanOverlap(t *testing.T) {
	segs, err := New().Split("hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].Content != "hi" {
		t.Errorf("expected single chunk 'hi', got %+v", segs)
	}
}

func TestSplit_ExactChunkSize(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	text := strings.Repeat("a", 100)

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 {
		t.Errorf("expected 1 segment for exact chunk size, got %d", len(segs))
	}
}

func TestSplit_HardCut(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	text := strings.Repeat("x", 250)

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	wantBounds := [][2]int{{0, 100}, {80, 180}, {160, 250}}
	for i, w := range wantBounds {
		if segs[i].Start != w[0] || segs[i].End != w[1] {
			t.Errorf("segment %d: expected [%d,%d), got [%d,%d)", i, w[0], w[1], segs[i].Start, segs[i].End)
		}
	}
	assertChunkInvariants(t, p, text, segs)
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(10))
	text := strings.Repeat("a ", 30) + "\n\n" + strings.Repeat("b ", 30) + "\nc. d " + strings.Repeat("e", 40)

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(segs[0].Content, "\n\n") {
		t.Errorf("expected first chunk to end at the paragraph break, got %q", segs[0].Content)
	}
	assertChunkInvariants(t, p, text, segs)
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	p := New(WithChunkSize(30), WithOverlap(5))
	text := "First sentence here. Second sentence here. Third."

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if segs[0].Content != "First sentence here. " {
		t.Errorf("expected first chunk to end after the sentence, got %q", segs[0].Content)
	}
	if !strings.HasPrefix(segs[1].Content, "Second") {
		t.Errorf("expected second chunk to start on a word, got %q", segs[1].Content)
	}
	assertChunkInvariants(t, p, text, segs)
}

func TestSplit_WordBoundaries(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(8))
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu"

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) < 3 {
		t.Fatalf("expected several segments, got %d", len(segs))
	}
	runes := []rune(text)
	for i, s := range segs {
		if i < len(segs)-1 && !strings.HasSuffix(s.Content, " ") {
			t.Errorf("segment %d should end on whitespace: %q", i, s.Content)
		}
		if i > 0 && runes[s.Start-1] != ' ' {
			t.Errorf("segment %d starts mid-word: %q", i, s.Content)
		}
	}
	assertChunkInvariants(t, p, text, segs)
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	p := New(WithChunkSize(40), WithOverlap(15))
	text := "one two three four five six seven eight nine ten eleven twelve"

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("expected at least 2 segments, got %d", len(segs))
	}
	if segs[0].End-segs[1].Start <= 0 {
		t.Errorf("expected consecutive segments to share context")
	}
	assertChunkInvariants(t, p, text, segs)
}

func TestSplit_MultiByte(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(10))
	text := strings.Repeat("é", 150) + " " + strings.Repeat("日本語 ", 40)

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertChunkInvariants(t, p, text, segs)
}

func TestSplit_InvalidUTF8(t *testing.T) {
	_, err := New().Split("valid\xff\xfe")
	if !errors.Is(err, domain.ErrChunking) {
		t.Errorf("expected ErrChunking, got %v", err)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	p := New(WithChunkSize(120), WithOverlap(30))
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
		if i%7 == 0 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()

	first, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical segments for identical input")
	}
	assertChunkInvariants(t, p, text, first)
}

func TestSplit_DefaultsOnLongDocument(t *testing.T) {
	p := New()
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("Invoices are due thirty days after issue. Late payments accrue interest.\n")
	}
	text := b.String()

	segs, err := p.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) < 20 {
		t.Errorf("expected at least 20 segments, got %d", len(segs))
	}
	assertChunkInvariants(t, p, text, segs)
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := New()
	doc := &domain.Document{
		ID:      "test-doc",
		Content: "",
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_Positions(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(10))
	doc := &domain.Document{
		ID:      "test-doc",
		Content: strings.Repeat("word ", 60),
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, c.Position)
		}
		if c.DocumentID != "test-doc" {
			t.Errorf("chunk %d: expected document ID test-doc, got %s", i, c.DocumentID)
		}
		if c.ID != "" {
			t.Errorf("chunk %d: expected empty ID for the store to assign, got %s", i, c.ID)
		}
	}
}

func TestProcessor_Process_IgnoresInputChunks(t *testing.T) {
	p := New()
	doc := &domain.Document{ID: "test-doc", Content: "Hello"}
	input := []domain.Chunk{{ID: "old", Content: "stale"}}

	chunks, err := p.Process(context.Background(), doc, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content != "Hello" {
		t.Errorf("expected one fresh chunk, got %+v", chunks)
	}
}

func TestProcessor_Process_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Process(ctx, &domain.Document{Content: "text"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
