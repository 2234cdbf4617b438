// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded document owned by a single user
//   - Chunk: A retrievable unit within a document
//   - VectorEntry: A chunk embedding as held by the vector index
//   - Session: A chat conversation and its ordered messages
//   - RawDocument: Uploaded bytes before text extraction
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
