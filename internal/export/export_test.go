package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/hyperjump/paperselect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_SelectedSortedWithScore(t *testing.T) {
	lib := &models.Library{Columns: []string{"Key", "Title"}}
	papers := []models.ScoredPaper{
		{Index: 0, Record: models.Record{"Key": "A", "Title": "Low"}, Score: 0.2, Selected: true},
		{Index: 1, Record: models.Record{"Key": "B", "Title": "Skipped"}, Score: 0.99, Selected: false},
		{Index: 2, Record: models.Record{"Key": "C", "Title": "High, with comma"}, Score: 0.75, Selected: true},
	}
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, lib, papers)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Key", "Title", "similarity_score"},
		{"C", "High, with comma", "0.75"},
		{"A", "Low", "0.2"},
	}, rows)
}

func TestWriteCSV_NoneSelected(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, &models.Library{Columns: []string{"Title"}}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "Title,similarity_score\n", buf.String())
}

func TestEntryType(t *testing.T) {
	tests := map[string]string{
		"journalArticle":   "article",
		"conferencePaper":  "inproceedings",
		"book":             "book",
		"bookSection":      "incollection",
		"thesis":           "phdthesis",
		"report":           "techreport",
		"webpage":          "misc",
		"preprint":         "article",
		"manuscript":       "unpublished",
		"Conference Paper": "inproceedings",
		"patent":           "article",
		"":                 "article",
	}
	for in, want := range tests {
		assert.Equal(t, want, EntryType(in), "EntryType(%q)", in)
	}
}

func TestCitationKey(t *testing.T) {
	tests := []struct {
		name string
		rec  models.Record
		want string
	}{
		{"last first", models.Record{"Author": "Smith, John; Doe, Jane", "Publication Year": "2021"}, "Smith2021_3"},
		{"first last", models.Record{"Author": "Jane van Doe; Other Person", "Year": "May 2019"}, "Doe2019_3"},
		{"single name", models.Record{"Author": "Aristotle"}, "Aristotle_3"},
		{"punctuation stripped", models.Record{"Author": "O'Neil, Cathy", "Publication Year": "2016"}, "ONeil2016_3"},
		{"no author", models.Record{"Publication Year": "2020"}, "Unknown2020_3"},
		{"no digits in year", models.Record{"Author": "Smith, J", "Year": "n.d."}, "Smithn.d._3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CitationKey(tt.rec, 3))
		})
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `50\% of \{A\} \& B\_c`, Escape("50% of {A} & B_c"))
}

func TestWriteBibTeX(t *testing.T) {
	records := []models.Record{
		{
			"Item Type":         "journalArticle",
			"Author":            "Smith, John; Doe, Jane",
			"Title":             "Graphs & molecules",
			"Publication Year":  "2021",
			"Year":              "1999",
			"Publication Title": "J. Chem_Inf",
			"DOI":               "10.1/abc",
			"Notes":             "ignored",
		},
		{"Item Type": "book", "Title": "Plain"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBibTeX(&buf, records))

	want := strings.Join([]string{
		"@article{Smith2021_1,",
		"  title = {Graphs \\& molecules},",
		"  author = {Smith, John and Doe, Jane},",
		"  year = {2021},",
		"  doi = {10.1/abc},",
		"  journal = {J. Chem\\_Inf},",
		"}",
		"",
		"@book{Unknown_2,",
		"  title = {Plain},",
		"}",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteSelectedBibTeX(t *testing.T) {
	papers := []models.ScoredPaper{
		{Record: models.Record{"Title": "Second"}, Score: 0.4, Selected: true},
		{Record: models.Record{"Title": "Dropped"}, Score: 0.9},
		{Record: models.Record{"Title": "First"}, Score: 0.8, Selected: true},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSelectedBibTeX(&buf, papers))
	out := buf.String()
	assert.NotContains(t, out, "Dropped")
	assert.Less(t, strings.Index(out, "First"), strings.Index(out, "Second"))
	assert.Contains(t, out, "@article{Unknown_1,\n  title = {First},")
}
