// Package library loads bibliographic exports (Zotero CSV or XLSX) and reference documents.
package library

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/paperselect/internal/models"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyLibrary is returned when an export has a header but no records.
	ErrEmptyLibrary = errors.New("library is empty")
	// ErrNoTitles is returned when every record has a blank title.
	ErrNoTitles = errors.New("all titles are missing")
	// ErrColumnNotFound is returned when none of the candidate column names is present.
	ErrColumnNotFound = errors.New("column not found")
	// ErrUnsupportedFormat is returned for library files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported library format")
)

// Load reads the library export at path. The format is chosen from the extension.
func Load(path string) (*models.Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	defer f.Close()

	var lib *models.Library
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
		lib, err = ReadCSV(f, delimiterFor(ext))
	case ".xlsx":
		lib, err = ReadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	lib.Filename = filepath.Base(path)
	lib.Path = path
	return lib, nil
}

func delimiterFor(ext string) rune {
	if ext == ".tsv" {
		return '\t'
	}
	return ','
}

// ReadCSV parses a delimited export whose first row is the header. A UTF-8 byte
// order mark, as written by Zotero, is dropped. Short rows are padded with empty values.
func ReadCSV(r io.Reader, delimiter rune) (*models.Library, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRows(rows)
}

// ReadXLSX parses the first sheet of a workbook whose first row is the header.
func ReadXLSX(r io.Reader) (*models.Library, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyLibrary
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (*models.Library, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyLibrary
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	lib := &models.Library{Columns: header}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(models.Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if _, dup := rec[col]; dup {
				continue
			}
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		lib.Records = append(lib.Records, rec)
	}
	lib.PaperCount = len(lib.Records)
	return lib, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
