// Package models defines core data structures for libraries, papers, and selection runs.
package models

import (
	"sort"
	"time"
)

// Record is one row of a library export, keyed by column name.
type Record map[string]string

// Get returns the raw value of column, or "" when absent.
func (r Record) Get(column string) string {
	if r == nil {
		return ""
	}
	return r[column]
}

// Library is an ordered collection of bibliographic records loaded from an export file.
type Library struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path,omitempty"`
	Columns    []string  `json:"columns,omitempty"`
	Records    []Record  `json:"-"`
	PaperCount int       `json:"paper_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Len returns the number of records.
func (l *Library) Len() int {
	return len(l.Records)
}

// HasColumn reports whether column is part of the header.
func (l *Library) HasColumn(column string) bool {
	for _, c := range l.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ScoredPaper joins a record back onto its similarity score and selection flag.
// Index is the record's position in the source library.
type ScoredPaper struct {
	Index    int     `json:"index"`
	Record   Record  `json:"record"`
	Score    float64 `json:"similarity_score"`
	Selected bool    `json:"selected"`
}

// SelectedByScore returns the selected papers ordered by descending score. Ties keep input order.
func SelectedByScore(papers []ScoredPaper) []ScoredPaper {
	out := make([]ScoredPaper, 0, len(papers))
	for _, p := range papers {
		if p.Selected {
			out = append(out, p)
		}
	}
	SortByScore(out)
	return out
}

// SortByScore orders papers by descending score, stable for ties.
func SortByScore(papers []ScoredPaper) {
	sort.SliceStable(papers, func(i, j int) bool { return papers[i].Score > papers[j].Score })
}
