package pdf

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func fakePDF() *domain.RawDocument {
	return &domain.RawDocument{
		FileName: "lab_report.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake pdf content"),
	}
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"application/pdf"}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("Lipid Panel\n\nLDL 3.1 mmol/L\n\fPage two\n\f")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), fakePDF())
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Lipid Panel\n\nLDL 3.1 mmol/L\n\n\nPage two", doc.Content)
	assert.Equal(t, "Lipid Panel", doc.Metadata["title"])
	assert.Equal(t, 2, doc.Metadata["pages"])
	assert.Equal(t, "pdf", doc.Metadata["format"])
	assert.Equal(t, "application/pdf", doc.Metadata["mime_type"])

	assert.Equal(t, Tool, runner.name)
	require.Len(t, runner.args, 5)
	assert.Equal(t, "-", runner.args[4])
	_, statErr := os.Stat(runner.args[3])
	assert.True(t, os.IsNotExist(statErr), "temp file is removed")
}

func TestNormalise_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), fakePDF())

	assert.ErrorContains(t, err, "pdftotext failed")
	assert.Nil(t, result)
}

func TestNormalise_NotAPDF(t *testing.T) {
	runner := &mockRunner{}
	raw := fakePDF()
	raw.Content = []byte("PK\x03\x04 zip data")

	_, err := NewWithRunner(runner).Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, runner.name, "runner is not invoked")
}

func TestNormalise_ToolMissing(t *testing.T) {
	n := NewWithRunner(&mockRunner{})
	n.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := n.Normalise(context.Background(), fakePDF())

	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestExtractTitle(t *testing.T) {
	raw := &domain.RawDocument{FileName: "/uploads/my_document.pdf"}
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"first line", "Document Title\n\nSome content here.", "Document Title"},
		{"skips blank lines", "\n\n\nActual Title\nContent", "Actual Title"},
		{"falls back to file name", "", "my document"},
		{"skips very long lines", string(make([]byte, 250)) + "\nShort Title\nContent", "Short Title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractTitle(tt.content, raw))
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

// Only runs where pdftotext is installed.
func TestNormalise_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available")
	}

	_, err := New().Normalise(context.Background(), fakePDF())
	if err != nil {
		assert.ErrorContains(t, err, "pdftotext failed")
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
