package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawDocument_ResolveMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawDocument
		expected string
	}{
		{
			name:     "declared type wins",
			raw:      RawDocument{FileName: "report.bin", MIMEType: "application/pdf"},
			expected: "application/pdf",
		},
		{
			name:     "parameters are stripped",
			raw:      RawDocument{FileName: "notes", MIMEType: "text/plain; charset=utf-8"},
			expected: "text/plain",
		},
		{
			name:     "octet-stream falls back to extension",
			raw:      RawDocument{FileName: "Lab_Results.PDF", MIMEType: "application/octet-stream"},
			expected: "application/pdf",
		},
		{
			name:     "missing type falls back to extension",
			raw:      RawDocument{FileName: "history.txt"},
			expected: "text/plain",
		},
		{
			name:     "markdown extension",
			raw:      RawDocument{FileName: "summary.md"},
			expected: "text/markdown",
		},
		{
			name:     "word document",
			raw:      RawDocument{FileName: "discharge.docx", MIMEType: "application/octet-stream"},
			expected: DOCXMIMEType,
		},
		{
			name:     "unknown extension",
			raw:      RawDocument{FileName: "scan.zzz"},
			expected: "application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.raw.ResolveMIMEType())
		})
	}
}
