// Package chunker splits document text into overlapping, size-bounded chunks.
package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document content into chunks of at most chunkSize
// characters, preferring paragraph, line, sentence and word boundaries
// before a hard cut. It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured maximum chunk length.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Chunk IDs are left empty for the chunk store to assign.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segments, err := p.Split(doc.Content)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.Chunk{
			DocumentID: doc.ID,
			Content:    seg.Content,
			Position:   i,
		}
	}
	return chunks, nil
}

// Segment is one chunk of text with its rune offsets in the source.
// Content equals the source runes in [Start, End).
type Segment struct {
	Content string
	Start   int
	End     int
}

// Split divides text into ordered segments.
// Empty text yields no segments; invalid UTF-8 yields domain.ErrChunking.
func (p *Processor) Split(text string) ([]Segment, error) {
	if text == "" {
		return nil, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", domain.ErrChunking)
	}

	runes := []rune(text)
	n := len(runes)

	segments := make([]Segment, 0, n/(p.chunkSize-p.overlap)+1)
	start := 0
	for {
		if n-start <= p.chunkSize {
			segments = append(segments, segment(runes, start, n))
			return segments, nil
		}

		end := p.cutPoint(runes, start)
		segments = append(segments, segment(runes, start, end))
		start = p.nextStart(runes, start, end)
	}
}

func segment(runes []rune, start, end int) Segment {
	return Segment{Content: string(runes[start:end]), Start: start, End: end}
}

// separators in order of preference. A cut is placed directly after one.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
	[]rune("\t"),
}

// cutPoint returns the end of the chunk starting at start.
// The end lies in (start+overlap, start+chunkSize] so the following chunk
// always starts after start.
func (p *Processor) cutPoint(runes []rune, start int) int {
	lo := start + p.overlap + 1
	hi := start + p.chunkSize

	for _, sep := range separators {
		for end := hi; end >= lo; end-- {
			if endsWith(runes[:end], sep) {
				return end
			}
		}
	}
	return hi
}

// nextStart steps back overlap characters from end, then forward to the
// next word start so a chunk never begins mid-word. The resulting overlap
// is at most p.overlap; it falls back to a mid-word start only when the
// overlap window holds no word start at all.
func (p *Processor) nextStart(runes []rune, start, end int) int {
	next := end - p.overlap
	if next <= start {
		next = start + 1
	}
	for i := next; i <= end; i++ {
		if isWordStart(runes, i) {
			return i
		}
	}
	return next
}

func isWordStart(runes []rune, i int) bool {
	return !isSpace(runes[i]) && isSpace(runes[i-1])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

func endsWith(runes, suffix []rune) bool {
	if len(runes) < len(suffix) {
		return false
	}
	offset := len(runes) - len(suffix)
	for i, r := range suffix {
		if runes[offset+i] != r {
			return false
		}
	}
	return true
}
