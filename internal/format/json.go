// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/nasa-ads/pkg/types"
)

// JSONMetadata describes the page in a JSON export.
type JSONMetadata struct {
	TotalPapers    int    `json:"total_papers"`
	PapersReturned int    `json:"papers_returned"`
	Start          int    `json:"start"`
	Timestamp      string `json:"timestamp"`
}

// JSONDocument is the top-level object of a JSON export.
type JSONDocument struct {
	Metadata JSONMetadata        `json:"metadata"`
	Papers   []types.PaperRecord `json:"papers"`
}

// JSON writes a metadata block and the full paper records.
type JSON struct {
	writer
}

func (*JSON) Name() string { return "json" }

// Format renders the page with a stable two-space indent.
func (f *JSON) Format(results *types.Results) (string, error) {
	doc := JSONDocument{
		Metadata: JSONMetadata{
			TotalPapers:    results.TotalCount,
			PapersReturned: results.ReturnedCount,
			Start:          results.Start,
			Timestamp:      results.Timestamp.Format(time.RFC3339Nano),
		},
		Papers: make([]types.PaperRecord, 0, len(results.Papers)),
	}
	for i := range results.Papers {
		doc.Papers = append(doc.Papers, results.Papers[i].Record())
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return string(data), nil
}

func (f *JSON) Save(results *types.Results, path string) error {
	return f.save(f, results, path)
}
