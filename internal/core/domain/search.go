package domain

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// MaxTopK is the largest k a query may ask for.
const MaxTopK = 100

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// Limit is the maximum number of results (k). Defaults to DefaultTopK.
	Limit int
}

// SearchResult is a retrieved chunk annotated with its relevance.
type SearchResult struct {
	// ChunkID identifies the chunk in the index.
	ChunkID string

	// DocumentID is the owning document.
	DocumentID string

	// Filename is the owning document's upload name.
	Filename string

	// Position is the chunk's sequence index within the document.
	Position int

	// Content is the chunk text.
	Content string

	// Score is the cosine similarity to the query.
	Score float64
}

// VectorEntry is a chunk embedding as stored in the vector index.
// Its lifecycle is independent from the chunk row in the document store.
type VectorEntry struct {
	ChunkID    string
	DocumentID string
	Position   int
	Filename   string
	Content    string
	Embedding  []float32
}

// Citation is a source reference returned with an answer.
type Citation struct {
	DocumentID     string
	Filename       string
	RelevanceScore float64
}

// Answer is the assistant reply for a chat message.
type Answer struct {
	// SessionID is the session the exchange was appended to.
	SessionID string

	// Text is the model output.
	Text string

	// Citations references the documents used as context.
	// Documents deleted since indexing are omitted.
	Citations []Citation

	// Context is the context block sent to the model.
	Context string
}
