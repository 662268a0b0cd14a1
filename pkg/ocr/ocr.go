// Package ocr extracts plain text from uploaded document files. PDF
// goes through the poppler pdftotext binary; docx is unpacked directly.
// Plain text passes through as-is.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

// Extractor implements pipeline.TextExtractor over the local
// filesystem.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText reads the document's file and converts it to plain text
// based on its extension. Unsupported formats and unreadable content
// are reported as errors; the caller decides whether they are
// retryable.
func (e *Extractor) ExtractText(ctx context.Context, doc common.Document) (string, error) {
	content, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", doc.FilePath, err)
	}

	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(doc.FilePath))
	}

	var text string
	switch ext {
	case ".pdf":
		text, err = parsePDF(ctx, content)
	case ".docx":
		text, err = parseDocx(content)
	case ".txt", ".md":
		text = string(content)
	default:
		return "", fmt.Errorf("unsupported document format %q", ext)
	}
	if err != nil {
		return "", err
	}

	logger.Debug("Extracted text", "document", doc.ID, "format", ext, "bytes", len(text))
	return normalizeText(text), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	return collapseBlankLines(text)
}

func collapseBlankLines(text string) string {
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}
