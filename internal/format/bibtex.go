// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/nasa-ads/pkg/types"
)

// BibTeX writes one entry per paper, separated by a blank line.
type BibTeX struct {
	writer
}

func (*BibTeX) Name() string { return "bibtex" }

// Format emits each paper's fetched BibTeX verbatim, or a minimal
// generated @article entry when none was fetched. An empty page yields "".
func (f *BibTeX) Format(results *types.Results) (string, error) {
	entries := make([]string, 0, len(results.Papers))
	for _, p := range results.Papers {
		if p.BibTeX != "" {
			entries = append(entries, p.BibTeX)
			continue
		}
		entries = append(entries, GenerateBibTeX(p))
	}
	return strings.Join(entries, "\n\n"), nil
}

func (f *BibTeX) Save(results *types.Results, path string) error {
	return f.save(f, results, path)
}

// GenerateBibTeX builds a minimal @article entry keyed by bibcode. The
// author field is only the initial derived by AuthorFromBibcode, not a
// real author list.
func GenerateBibTeX(p types.Paper) string {
	title := strings.NewReplacer("{", "", "}", "").Replace(p.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "@article{%s,\n", p.Bibcode)
	fmt.Fprintf(&b, "    title = {%s},\n", title)
	fmt.Fprintf(&b, "    author = {%s},\n", AuthorFromBibcode(p.Bibcode))
	fmt.Fprintf(&b, "    year = {%d},\n", p.Year)
	fmt.Fprintf(&b, "    journal = {%s}\n", p.Pub)
	b.WriteString("}")
	return b.String()
}

// bibcodeLength is the length of a standard ADS bibcode.
const bibcodeLength = 19

// AuthorFromBibcode returns the upper-cased trailing letter of a bibcode,
// which ADS uses for the first author's initial (2021ApJ...919..136K ->
// "K"). A full-length bibcode of exactly 19 characters qualifies; shorter
// bibcodes or a non-letter ending give "Unknown".
func AuthorFromBibcode(bibcode string) string {
	if len(bibcode) < bibcodeLength {
		return "Unknown"
	}
	last := rune(bibcode[len(bibcode)-1])
	if !unicode.IsLetter(last) {
		return "Unknown"
	}
	return string(unicode.ToUpper(last))
}
