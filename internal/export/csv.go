// Package export writes selected papers back out as CSV or BibTeX for re-import into Zotero.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hyperjump/paperselect/internal/models"
)

// ScoreColumn is appended to the library's columns in CSV output.
const ScoreColumn = "similarity_score"

// WriteCSV writes the selected papers with every library column plus ScoreColumn,
// ordered by descending score. It returns the number of rows written.
func WriteCSV(w io.Writer, lib *models.Library, papers []models.ScoredPaper) (int, error) {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), lib.Columns...), ScoreColumn)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	selected := models.SelectedByScore(papers)
	row := make([]string, len(header))
	for _, p := range selected {
		for i, col := range lib.Columns {
			row[i] = p.Record.Get(col)
		}
		row[len(row)-1] = FormatScore(p.Score)
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write csv row %d: %w", p.Index, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(selected), nil
}

// FormatScore renders a score with the shortest representation that round-trips.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
