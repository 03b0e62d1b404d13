package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"text/markdown", "text/x-markdown"}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		FileName: "visit.md",
		Content:  []byte("# Cardiology Follow-up\n\nPatient reports **no chest pain**.\r\n"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Cardiology Follow-up\n\nPatient reports no chest pain.", doc.Content)
	assert.Equal(t, "Cardiology Follow-up", doc.Metadata["title"])
	assert.Equal(t, "markdown", doc.Metadata["format"])
	assert.Equal(t, "text/markdown", doc.Metadata["mime_type"])
}

func TestNormalise_TitleFallsBackToFileName(t *testing.T) {
	raw := &domain.RawDocument{FileName: "allergy_list.md", Content: []byte("## Penicillin\n")}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "allergy list", result.Document.Metadata["title"])
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"headings", "# Title\n## Subtitle\n### Third", "Title\nSubtitle\nThird"},
		{"bold", "This is **bold** text", "This is bold text"},
		{"italic", "Take *twice* daily", "Take twice daily"},
		{"links keep text", "Click [here](https://example.com)", "Click here"},
		{"images keep alt text", "See ![x-ray](scan.png) here", "See x-ray here"},
		{"fenced code keeps body", "Before\n```go\ncode here\n```\nAfter", "Before\ncode here\n\nAfter"},
		{"inline code keeps body", "Use `metformin` here", "Use metformin here"},
		{"blockquote", "> This is a quote", "This is a quote"},
		{"bullets", "- Item 1\n* Item 2", "Item 1\nItem 2"},
		{"numbered lists are kept", "1. First\n2. Second", "1. First\n2. Second"},
		{"horizontal rule", "Above\n\n---\n\nBelow", "Above\n\nBelow"},
		{"table divider", "| a | b |\n|---|---|\n| 1 | 2 |", "| a | b |\n| 1 | 2 |"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, strip(tt.input))
		})
	}
}
