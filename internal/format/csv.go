// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/nasa-ads/pkg/types"
)

// CSVColumns is the fixed column order of the CSV export.
var CSVColumns = []string{
	"bibcode",
	"title",
	"year",
	"pub",
	"abstract",
	"citation_count",
	"keywords",
	"ADS_URL",
}

// abstractLimit is the abstract length kept in CSV rows before truncation.
const abstractLimit = 100

// CSV writes one row per paper under a header row.
type CSV struct {
	writer
}

func (*CSV) Name() string { return "csv" }

// Format renders the header and one row per paper. Values containing a
// comma, quote, or newline are quoted with internal quotes doubled. The
// header is present even when there are no papers.
func (f *CSV) Format(results *types.Results) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVColumns); err != nil {
		return "", fmt.Errorf("writing CSV header: %w", err)
	}
	for _, p := range results.Papers {
		if err := w.Write(csvRow(p)); err != nil {
			return "", fmt.Errorf("writing CSV row for %s: %w", p.Bibcode, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.String(), nil
}

func (f *CSV) Save(results *types.Results, path string) error {
	return f.save(f, results, path)
}

func csvRow(p types.Paper) []string {
	return []string{
		p.Bibcode,
		p.Title,
		strconv.Itoa(p.Year),
		p.Pub,
		truncateAbstract(p.Abstract),
		strconv.Itoa(p.CitationCount),
		strings.Join(p.Keyword, "; "),
		p.ADSURL(),
	}
}

// truncateAbstract keeps the first 100 characters and appends "..." when
// the abstract is longer.
func truncateAbstract(s string) string {
	r := []rune(s)
	if len(r) <= abstractLimit {
		return s
	}
	return string(r[:abstractLimit]) + "..."
}
