// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ads

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

// parseSearchResponse turns a search response body into a Results page.
// Documents are decoded one at a time so a bad field in one record only
// drops that record.
func parseSearchResponse(body []byte, logger *zap.Logger) (*types.Results, error) {
	if !gjson.ValidBytes(body) {
		return nil, &APIError{Kind: KindDecode, Message: "failed to parse API response", Err: fmt.Errorf("body is not valid JSON")}
	}

	resp := gjson.GetBytes(body, "response")
	if !resp.IsObject() {
		return nil, &APIError{Kind: KindDecode, Message: "failed to parse API response", Err: fmt.Errorf("missing response object")}
	}

	results := types.NewResults(int(resp.Get("numFound").Int()), int(resp.Get("start").Int()))

	index := 0
	resp.Get("docs").ForEach(func(_, doc gjson.Result) bool {
		p, err := paperFromDoc(doc)
		if err != nil {
			logger.Warn("skipping malformed document",
				zap.Int("index", index),
				zap.String("bibcode", doc.Get("bibcode").String()),
				zap.Error(err),
			)
		} else {
			results.Add(*p)
		}
		index++
		return true
	})
	return results, nil
}

// paperFromDoc maps one ADS document onto a validated Paper. The title is
// the first element of the title array; keyword defaults to empty; year
// may arrive as a number or a numeric string.
func paperFromDoc(doc gjson.Result) (*types.Paper, error) {
	if !doc.IsObject() {
		return nil, &validate.ValidationError{Field: "document", Message: "document is not an object"}
	}

	year, err := intField(doc.Get("year"))
	if err != nil {
		return nil, &validate.ValidationError{Field: "year", Message: err.Error()}
	}
	citations, err := intField(doc.Get("citation_count"))
	if err != nil {
		return nil, &validate.ValidationError{Field: "citation_count", Message: err.Error()}
	}

	keywords := []string{}
	for _, kw := range doc.Get("keyword").Array() {
		keywords = append(keywords, kw.String())
	}

	return types.NewPaper(types.Paper{
		Bibcode:       doc.Get("bibcode").String(),
		Title:         firstString(doc.Get("title")),
		Year:          year,
		Pub:           doc.Get("pub").String(),
		Abstract:      doc.Get("abstract").String(),
		Keyword:       keywords,
		CitationCount: citations,
	})
}

// firstString returns the first element of an array field, a plain string
// field as-is, or "" otherwise.
func firstString(v gjson.Result) string {
	switch {
	case v.IsArray():
		if arr := v.Array(); len(arr) > 0 {
			return arr[0].String()
		}
		return ""
	case v.Type == gjson.String:
		return v.String()
	}
	return ""
}

// intField reads an integer from a number or numeric string. A missing
// field reads as zero.
func intField(v gjson.Result) (int, error) {
	switch v.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		if v.Num != float64(int64(v.Num)) {
			return 0, fmt.Errorf("not an integer: %s", v.Raw)
		}
		return int(v.Int()), nil
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", v.Str)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected value %s", v.Raw)
}

// parseExportResponse splits the export blob on entry boundaries ("@") and
// attributes each fragment to the first requested bibcode it contains.
// Attribution is by substring, so it is not guaranteed to be injective.
func parseExportResponse(body []byte, bibcodes []string) (map[string]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, &APIError{Kind: KindDecode, Message: "failed to parse export response", Err: fmt.Errorf("body is not valid JSON")}
	}

	entries := map[string]string{}
	text := gjson.GetBytes(body, "export").String()
	if text == "" {
		return entries, nil
	}

	for _, fragment := range strings.Split(text, "@") {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		for _, bibcode := range bibcodes {
			if strings.Contains(fragment, bibcode) {
				entries[bibcode] = "@" + fragment
				break
			}
		}
	}
	return entries, nil
}
