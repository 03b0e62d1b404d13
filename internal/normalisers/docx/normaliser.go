// Package docx extracts text from Word (.docx) uploads.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.DOCXMIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise reads the main document part. Paragraphs, including those
// inside table cells, become lines.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a docx archive: %w", domain.ErrInvalidInput, raw.FileName, err)
	}

	content := ""
	if part, err := readPart(archive, documentPart); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.FileName, err)
	} else if part != nil {
		if content, err = documentText(part); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.FileName, err)
		}
	}

	metadata := normalisers.Metadata(raw, "docx")
	metadata["title"] = title(archive, raw)

	return &driven.NormaliseResult{
		Document: domain.Document{
			Content:  content,
			Metadata: metadata,
		},
	}, nil
}

// readPart returns the named part, or nil when the archive lacks it.
func readPart(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// documentText walks the WordprocessingML token stream.
func documentText(part []byte) (string, error) {
	var (
		out    strings.Builder
		inText bool
	)

	dec := xml.NewDecoder(bytes.NewReader(part))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// title reads dc:title from the core properties, falling back to the upload.
func title(archive *zip.Reader, raw *domain.RawDocument) string {
	part, err := readPart(archive, corePart)
	if err != nil || part == nil {
		return normalisers.Title(raw)
	}

	var core struct {
		Title string `xml:"title"`
	}
	if err := xml.Unmarshal(part, &core); err == nil && strings.TrimSpace(core.Title) != "" {
		return strings.TrimSpace(core.Title)
	}
	return normalisers.Title(raw)
}
