package domain

import (
	"mime"
	"path/filepath"
	"strings"
)

// DOCXMIMEType is the content type of Word documents.
const DOCXMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// RawDocument is an uploaded file before text extraction.
type RawDocument struct {
	// FileName is the name supplied by the uploader.
	FileName string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata carries upload-specific key-value pairs.
	Metadata map[string]any
}

// ResolveMIMEType returns the declared MIME type, falling back to the
// file extension when the uploader sent none or a generic one.
func (r *RawDocument) ResolveMIMEType() string {
	declared := strings.TrimSpace(r.MIMEType)
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	ext := strings.ToLower(filepath.Ext(r.FileName))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".txt", ".text":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".docx":
		return DOCXMIMEType
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if i := strings.Index(byExt, ";"); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return "application/octet-stream"
}
