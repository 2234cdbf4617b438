// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document and chunk persistence
//   - SessionStore: Chat session persistence
//   - VectorIndex: Persistent embedding index with similarity search
//   - EmbeddingService: Generates vector embeddings
//   - NormaliserRegistry: Extracts text from uploads
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil; the application degrades gracefully:
//
//   - LLMService: Language model. Without it, chat is disabled but search works.
//   - PromptStore: Custom prompts. Without it, built-in defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
