// Package domain defines the core business entities for PulseIQ.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested file owned by the global scope or one user
//   - Chunk: A retrievable slice of a document
//   - ChatEntry: One question/answer exchange in a user's log
//   - Telemetry: Live wearable readings attached to a single question
//   - RiskAssessment: The digital twin signal derived from chat history
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
