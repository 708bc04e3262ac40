package library

import (
	"fmt"
	"strings"

	"github.com/hyperjump/paperselect/internal/models"
)

// DefaultTitleColumns and DefaultAbstractColumns match Zotero's CSV export, in
// order of preference.
var (
	DefaultTitleColumns    = []string{"Title", "title", "Publication Title"}
	DefaultAbstractColumns = []string{"Abstract Note", "Abstract", "abstract", "Summary"}
)

// DefaultSeparator joins title and abstract before embedding.
const DefaultSeparator = " [SEP] "

// Columns names the title and abstract columns of a library.
type Columns struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// ValidationReport counts records carrying each text field.
type ValidationReport struct {
	Total        int `json:"total"`
	WithTitle    int `json:"with_title"`
	WithAbstract int `json:"with_abstract"`
}

// MissingTitles returns the number of records without a title.
func (r ValidationReport) MissingTitles() int { return r.Total - r.WithTitle }

// MissingAbstracts returns the number of records without an abstract.
func (r ValidationReport) MissingAbstracts() int { return r.Total - r.WithAbstract }

// DetectColumns picks the first title and abstract candidates present in the header.
func DetectColumns(lib *models.Library, titleCandidates, abstractCandidates []string) (Columns, error) {
	title, ok := firstPresent(lib, titleCandidates)
	if !ok {
		return Columns{}, fmt.Errorf("%w: no title column among %v; available columns: %v",
			ErrColumnNotFound, titleCandidates, lib.Columns)
	}
	abstract, ok := firstPresent(lib, abstractCandidates)
	if !ok {
		return Columns{}, fmt.Errorf("%w: no abstract column among %v; available columns: %v",
			ErrColumnNotFound, abstractCandidates, lib.Columns)
	}
	return Columns{Title: title, Abstract: abstract}, nil
}

func firstPresent(lib *models.Library, candidates []string) (string, bool) {
	for _, c := range candidates {
		if lib.HasColumn(c) {
			return c, true
		}
	}
	return "", false
}

// Validate fails on an empty library or one where every title is blank.
func Validate(lib *models.Library, cols Columns) (ValidationReport, error) {
	report := ValidationReport{Total: lib.Len()}
	if report.Total == 0 {
		return report, ErrEmptyLibrary
	}
	for _, rec := range lib.Records {
		if strings.TrimSpace(rec.Get(cols.Title)) != "" {
			report.WithTitle++
		}
		if strings.TrimSpace(rec.Get(cols.Abstract)) != "" {
			report.WithAbstract++
		}
	}
	if report.WithTitle == 0 {
		return report, ErrNoTitles
	}
	return report, nil
}

// CombineTitleAbstract collapses whitespace in each part and joins them with sep.
// A part that is empty is dropped along with the separator.
func CombineTitleAbstract(title, abstract, sep string) string {
	title = strings.Join(strings.Fields(title), " ")
	abstract = strings.Join(strings.Fields(abstract), " ")
	switch {
	case title != "" && abstract != "":
		return title + sep + abstract
	case title != "":
		return title
	default:
		return abstract
	}
}

// Texts returns the combined text of every record, in library order.
func Texts(lib *models.Library, cols Columns, sep string) []string {
	texts := make([]string, lib.Len())
	for i, rec := range lib.Records {
		texts[i] = CombineTitleAbstract(rec.Get(cols.Title), rec.Get(cols.Abstract), sep)
	}
	return texts
}
