// Package extract reads reference documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for extensions that name a binary format we cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor extracts plain text from reference documents.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content with surrounding
// whitespace removed.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown text-like extensions
// fall back to plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".odt", ".rtf":
		text, err = extractOffice(content)
	case ".doc", ".xlsx", ".xls", ".pptx", ".zip":
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	default:
		text, err = extractPlain(content)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Supported reports whether ext can be read by ExtractBytes.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".doc", ".xlsx", ".xls", ".pptx", ".zip":
		return false
	}
	return true
}
