package export

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/paperselect/internal/models"
)

// bibField maps a Zotero CSV column onto a BibTeX field. Order is output order; when
// several columns map to one field the first non-empty wins.
type bibField struct {
	column string
	field  string
}

var fieldMapping = []bibField{
	{"Title", "title"},
	{"Author", "author"},
	{"Publication Year", "year"},
	{"Year", "year"},
	{"Abstract Note", "abstract"},
	{"Abstract", "abstract"},
	{"DOI", "doi"},
	{"URL", "url"},
	{"Publication Title", "journal"},
	{"Journal", "journal"},
	{"Publisher", "publisher"},
	{"Volume", "volume"},
	{"Issue", "number"},
	{"Pages", "pages"},
	{"Book Title", "booktitle"},
	{"Conference Name", "booktitle"},
	{"Series", "series"},
	{"Edition", "edition"},
	{"Place", "address"},
	{"ISBN", "isbn"},
	{"ISSN", "issn"},
}

var entryTypes = map[string]string{
	"journalarticle":  "article",
	"conferencepaper": "inproceedings",
	"book":            "book",
	"booksection":     "incollection",
	"thesis":          "phdthesis",
	"report":          "techreport",
	"webpage":         "misc",
	"preprint":        "article",
	"manuscript":      "unpublished",
}

var (
	yearRe     = regexp.MustCompile(`\d{4}`)
	nonLetter  = regexp.MustCompile(`[^a-zA-Z]`)
	nonLowerAZ = regexp.MustCompile(`[^a-z]`)
	escaper    = strings.NewReplacer(`{`, `\{`, `}`, `\}`, `%`, `\%`, `&`, `\&`, `_`, `\_`)
)

// WriteBibTeX writes one entry per record. Citation keys carry the 1-based record
// position so they are unique within the file.
func WriteBibTeX(w io.Writer, records []models.Record) error {
	bw := bufio.NewWriter(w)
	for i, rec := range records {
		if i > 0 {
			bw.WriteByte('\n')
		}
		writeEntry(bw, rec, i+1)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write bibtex: %w", err)
	}
	return nil
}

// WriteSelectedBibTeX writes the selected papers by descending score.
func WriteSelectedBibTeX(w io.Writer, papers []models.ScoredPaper) error {
	selected := models.SelectedByScore(papers)
	records := make([]models.Record, len(selected))
	for i, p := range selected {
		records[i] = p.Record
	}
	return WriteBibTeX(w, records)
}

func writeEntry(bw *bufio.Writer, rec models.Record, n int) {
	fmt.Fprintf(bw, "@%s{%s,\n", EntryType(rec.Get("Item Type")), CitationKey(rec, n))
	seen := make(map[string]bool, len(fieldMapping))
	for _, m := range fieldMapping {
		raw := strings.TrimSpace(rec.Get(m.column))
		if raw == "" || seen[m.field] {
			continue
		}
		seen[m.field] = true
		value := Escape(raw)
		switch m.field {
		case "author":
			value = strings.ReplaceAll(value, ";", " and")
		case "year":
			if y := yearRe.FindString(value); y != "" {
				value = y
			}
		}
		fmt.Fprintf(bw, "  %s = {%s},\n", m.field, value)
	}
	bw.WriteString("}\n")
}

// Escape backslash-escapes the characters BibTeX treats specially.
func Escape(s string) string {
	return escaper.Replace(s)
}

// EntryType maps a Zotero item type such as "journalArticle" to a BibTeX entry type.
// Unknown or empty types become "article".
func EntryType(itemType string) string {
	key := nonLowerAZ.ReplaceAllString(strings.ToLower(itemType), "")
	if t, ok := entryTypes[key]; ok {
		return t
	}
	return "article"
}

// CitationKey builds <LastName><Year>_<n> from the first author and publication year.
func CitationKey(rec models.Record, n int) string {
	key := lastName(rec.Get("Author"))
	year := strings.TrimSpace(rec.Get("Publication Year"))
	if year == "" {
		year = strings.TrimSpace(rec.Get("Year"))
	}
	if year != "" {
		if y := yearRe.FindString(year); y != "" {
			year = y
		}
		key += year
	}
	return fmt.Sprintf("%s_%d", key, n)
}

// lastName extracts the first author's surname from "Last, First; Last2, First2"
// or "First Last" forms, reduced to ASCII letters.
func lastName(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return "Unknown"
	}
	first, _, _ := strings.Cut(author, ";")
	first = strings.TrimSpace(first)
	var name string
	if before, _, ok := strings.Cut(first, ","); ok {
		name = strings.TrimSpace(before)
	} else if parts := strings.Fields(first); len(parts) > 0 {
		name = parts[len(parts)-1]
	}
	name = nonLetter.ReplaceAllString(name, "")
	if name == "" {
		return "Unknown"
	}
	return name
}
