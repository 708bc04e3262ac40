package library

import (
	"errors"
	"fmt"

	"github.com/hyperjump/paperselect/internal/extract"
)

// ErrEmptyReference is returned when a reference document holds no text.
var ErrEmptyReference = errors.New("reference text is empty")

// LoadReference reads the reference description at path as trimmed text.
func LoadReference(path string) (string, error) {
	text, err := extract.NewExtractor().Extract(path)
	if err != nil {
		return "", fmt.Errorf("load reference %s: %w", path, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyReference, path)
	}
	return text, nil
}
