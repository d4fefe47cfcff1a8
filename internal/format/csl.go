// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"bytes"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nasa-ads/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID             string   `yaml:"id"`
	Type           string   `yaml:"type"`
	Title          string   `yaml:"title"`
	ContainerTitle string   `yaml:"container-title,omitempty"`
	Abstract       string   `yaml:"abstract,omitempty"`
	Keyword        string   `yaml:"keyword,omitempty"`
	Issued         *CSLDate `yaml:"issued,omitempty"`
	URL            string   `yaml:"URL,omitempty"`
	Note           string   `yaml:"note,omitempty"`
}

// CSLDate is a CSL date using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// CSL writes the page as a CSL-YAML list.
type CSL struct {
	writer
}

func (*CSL) Name() string { return "csl" }

// Format encodes one CSLItem per paper. An empty page encodes as "[]".
func (f *CSL) Format(results *types.Results) (string, error) {
	items := make([]CSLItem, 0, len(results.Papers))
	for _, p := range results.Papers {
		items = append(items, toCSLItem(p))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("encoding CSL-YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding CSL-YAML: %w", err)
	}
	return buf.String(), nil
}

func (f *CSL) Save(results *types.Results, path string) error {
	return f.save(f, results, path)
}

func toCSLItem(p types.Paper) CSLItem {
	item := CSLItem{
		ID:             p.Bibcode,
		Type:           "article-journal",
		Title:          p.Title,
		ContainerTitle: p.Pub,
		Abstract:       p.Abstract,
		Keyword:        strings.Join(p.Keyword, ", "),
		URL:            p.ADSURL(),
	}
	if p.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{p.Year}}}
	}
	if p.CitationCount > 0 {
		item.Note = fmt.Sprintf("citations: %d", p.CitationCount)
	}
	return item
}
