package normalisers

import (
	"maps"
	"path/filepath"
	"strings"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// Metadata copies the upload's metadata and records its MIME type and
// extraction format.
func Metadata(raw *domain.RawDocument, format string) map[string]any {
	m := make(map[string]any, len(raw.Metadata)+2)
	maps.Copy(m, raw.Metadata)
	m["mime_type"] = raw.ResolveMIMEType()
	m["format"] = format
	return m
}

// TitleFromFileName turns "lab_results-2024.pdf" into "lab results 2024".
func TitleFromFileName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

// Title prefers an uploader-supplied "title" and falls back to the file name.
func Title(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata["title"].(string); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return TitleFromFileName(raw.FileName)
}
