package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperjump/paperselect/internal/export"
	"github.com/hyperjump/paperselect/internal/library"
	"github.com/hyperjump/paperselect/pkg/utils"
	"go.uber.org/zap"
)

// convertBibTeX writes every record of the library at input as a BibTeX entry to output.
// The output directory is created when missing. Returns the number of entries written.
func convertBibTeX(input, output string) (int, error) {
	lib, err := library.Load(input)
	if err != nil {
		return 0, err
	}
	if lib.Len() == 0 {
		return 0, library.ErrEmptyLibrary
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	if err := writeFile(output, func(w io.Writer) error {
		return export.WriteBibTeX(w, lib.Records)
	}); err != nil {
		return 0, err
	}
	return lib.Len(), nil
}

func runBibTeX() {
	fs := flag.NewFlagSet("bibtex", flag.ExitOnError)
	var input, output string
	fs.StringVar(&input, "input", "", "input CSV (library export or selection)")
	fs.StringVar(&input, "i", "", "shorthand for --input")
	fs.StringVar(&output, "output", "", "output .bib file")
	fs.StringVar(&output, "o", "", "shorthand for --output")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if input == "" || output == "" {
		fmt.Fprintln(os.Stderr, "Usage: paperselect bibtex -i <input.csv> -o <output.bib>")
		os.Exit(2)
	}
	logger, err := utils.NewCLILogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if _, err := os.Stat(input); errors.Is(err, os.ErrNotExist) {
		logger.Fatal("input file not found", zap.String("path", input))
	}
	n, err := convertBibTeX(input, output)
	if err != nil {
		logger.Fatal("conversion failed", zap.String("input", input), zap.Error(err))
	}
	logger.Info("bibtex written", zap.Int("entries", n), zap.String("output", output))
	fmt.Printf("Converted %d entries to %s\n", n, output)
}
