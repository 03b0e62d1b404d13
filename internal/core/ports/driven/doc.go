// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Store: Documents, chunks and chat history, accessed through sessions
//   - VectorIndex: Partitioned vector storage and nearest-neighbour search
//   - EmbeddingService: Generates vector embeddings
//   - NormaliserRegistry: Extracts text from uploads
//   - PostProcessorPipeline: Splits text into chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Generation. Without it, chat returns ErrLLMUnavailable
//     and the digital twin reports "Unable to analyze at this time".
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
