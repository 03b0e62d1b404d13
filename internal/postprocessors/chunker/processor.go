// Package chunker provides a boundary-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators are tried in order when looking for a place to end a chunk.
var separators = []string{"\n\n", "\n", ". ", " "}

// Processor splits document content into chunks of at most chunkSize
// characters. A chunk ends at the strongest boundary found in the back
// half of its window: a blank line, a line break, a sentence end or a
// space. Consecutive chunks share about overlap characters, starting on
// a word boundary.
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

	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	runes := []rune(doc.Content)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, n/(p.chunkSize-p.overlap)+1)
	start := 0
	for start < n {
		end := min(start+p.chunkSize, n)
		if end < n {
			end = p.breakPoint(runes, start, end)
		}

		if text := strings.TrimSpace(string(runes[start:end])); text != "" {
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				Scope:      doc.Scope,
				Content:    text,
				Position:   len(chunks),
				Metadata:   make(map[string]any),
			})
		}
		if end >= n {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = wordStart(runes, next, end)
	}

	return chunks, nil
}

// breakPoint returns the index just past the strongest separator in the
// back half of runes[start:end], or end when there is none.
func (p *Processor) breakPoint(runes []rune, start, end int) int {
	floor := start + p.chunkSize/2
	window := string(runes[start:end])
	for _, sep := range separators {
		i := strings.LastIndex(window, sep)
		if i < 0 {
			continue
		}
		cut := start + len([]rune(window[:i+len(sep)]))
		if cut > floor {
			return cut
		}
	}
	return end
}

// wordStart moves i forward to the start of a word, stopping at limit.
func wordStart(runes []rune, i, limit int) int {
	for i < limit && i > 0 && !unicode.IsSpace(runes[i-1]) {
		i++
	}
	return i
}
