package domain

import (
	"strings"
	"time"
)

// GlobalScope is the owner scope of reference documents shared by all users.
const GlobalScope Scope = "global"

// Scope identifies who owns a document: the global reference corpus
// or one specific user. The scope doubles as the vector index partition key.
type Scope string

// UserScope returns the scope for a user's personal documents.
func UserScope(userID string) Scope {
	return Scope(userID)
}

// IsGlobal returns true for the shared reference scope.
func (s Scope) IsGlobal() bool {
	return s == GlobalScope
}

// IsValid returns true if the scope can be used as a partition key.
func (s Scope) IsValid() bool {
	return strings.TrimSpace(string(s)) != ""
}

// String returns the partition key.
func (s Scope) String() string {
	return string(s)
}

// Document is an ingested file, either a user's medical record or a
// global reference document.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Scope is "global" or the owning user's ID.
	Scope Scope

	// FileName is the uploaded file name.
	FileName string

	// DiseaseName labels global reference documents. Empty for user documents.
	DiseaseName string

	// Content is the extracted text before chunking. Not persisted.
	Content string

	// Metadata contains arbitrary key-value pairs from extraction.
	Metadata map[string]any

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Chunk is a contiguous slice of a document's text and the unit of retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Scope always matches the parent document's scope.
	Scope Scope

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation, when known.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// ChunkTexts returns the content of each chunk, preserving order.
func ChunkTexts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	return texts
}
