// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/nasa-ads/internal/validate"
)

// Query defaults.
const (
	DefaultRows   = 100
	DefaultFields = "bibcode,title,year,pub,abstract,keyword,citation_count"
	DefaultSort   = "citation_count desc"
)

// Query holds the parameters of one ADS search request. Start may be
// advanced by the caller between calls to page through results; nothing
// advances it automatically.
type Query struct {
	// Q is an ADS query-language expression.
	Q string `json:"q" yaml:"q"`

	// Rows is the page size (1-2000).
	Rows int `json:"rows" yaml:"rows"`

	// Start is the pagination offset.
	Start int `json:"start" yaml:"start"`

	// Fields is the comma-separated field list sent as fl.
	Fields string `json:"fl" yaml:"fl"`

	// Sort is the sort spec (e.g. "citation_count desc").
	Sort string `json:"sort" yaml:"sort"`
}

// QueryOption adjusts a Query before it is validated.
type QueryOption func(*Query)

// WithRows sets the page size.
func WithRows(rows int) QueryOption {
	return func(q *Query) { q.Rows = rows }
}

// WithStart sets the pagination offset.
func WithStart(start int) QueryOption {
	return func(q *Query) { q.Start = start }
}

// WithFields sets the fl field list.
func WithFields(fl string) QueryOption {
	return func(q *Query) { q.Fields = fl }
}

// WithSort sets the sort spec.
func WithSort(sort string) QueryOption {
	return func(q *Query) { q.Sort = sort }
}

// NewQuery builds a Query with defaults, applies opts, and validates it.
func NewQuery(q string, opts ...QueryOption) (*Query, error) {
	query := &Query{
		Q:      q,
		Rows:   DefaultRows,
		Fields: DefaultFields,
		Sort:   DefaultSort,
	}
	for _, opt := range opts {
		opt(query)
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return query, nil
}

// Validate checks the query string, rows, and start bounds.
func (q *Query) Validate() error {
	if err := validate.Query(q.Q); err != nil {
		return err
	}
	if err := validate.Rows(q.Rows); err != nil {
		return err
	}
	return validate.Start(q.Start)
}

// Advance moves Start forward by one page.
func (q *Query) Advance() {
	q.Start += q.Rows
}

// Params returns the URL parameters sent to the search endpoint.
func (q *Query) Params() url.Values {
	return url.Values{
		"q":     {q.Q},
		"rows":  {strconv.Itoa(q.Rows)},
		"start": {strconv.Itoa(q.Start)},
		"fl":    {q.Fields},
		"sort":  {q.Sort},
	}
}

// BuildOptions are the components combined by BuildQuery.
type BuildOptions struct {
	Terms        []string
	Author       string
	YearMin      int
	YearMax      int
	MinCitations int
	Sort         string
	Rows         int
}

// BuildQuery joins terms and filters with AND into an ADS query. An empty
// term list matches everything ("*"). The year filter applies only when
// both bounds are set.
func BuildQuery(opts BuildOptions) (*Query, error) {
	var parts []string
	for _, t := range opts.Terms {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		parts = []string{"*"}
	}

	if opts.Author != "" {
		parts = append(parts, `author:"`+opts.Author+`"`)
	}
	if opts.YearMin != 0 && opts.YearMax != 0 {
		if err := validate.YearRange(opts.YearMin, opts.YearMax); err != nil {
			return nil, err
		}
		parts = append(parts, fmt.Sprintf("year:[%d TO %d]", opts.YearMin, opts.YearMax))
	}
	if opts.MinCitations > 0 {
		if err := validate.CitationCount(opts.MinCitations); err != nil {
			return nil, err
		}
		parts = append(parts, fmt.Sprintf("citation_count:[%d TO *]", opts.MinCitations))
	}

	sortSpec := opts.Sort
	if sortSpec == "" {
		sortSpec = DefaultSort
	}
	rows := opts.Rows
	if rows == 0 {
		rows = DefaultRows
	}
	return NewQuery(strings.Join(parts, " AND "), WithSort(sortSpec), WithRows(rows))
}

// Results is one page of papers returned by a search, in API order.
type Results struct {
	Papers []Paper `json:"papers" yaml:"papers"`

	// TotalCount is the server-reported number of matches.
	TotalCount int `json:"total_count" yaml:"total_count"`

	// ReturnedCount always equals len(Papers).
	ReturnedCount int `json:"returned_count" yaml:"returned_count"`

	// Start is the offset of this page.
	Start int `json:"start" yaml:"start"`

	// Timestamp is when the page was captured.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewResults returns an empty page stamped with the current time.
func NewResults(totalCount, start int) *Results {
	return &Results{
		Papers:     []Paper{},
		TotalCount: totalCount,
		Start:      start,
		Timestamp:  time.Now(),
	}
}

// Add appends a paper and keeps ReturnedCount in step.
func (r *Results) Add(p Paper) {
	r.Papers = append(r.Papers, p)
	r.ReturnedCount = len(r.Papers)
}

// Len returns the number of papers in the page.
func (r *Results) Len() int { return len(r.Papers) }

// HasMore reports whether the server holds results past this page. It
// trusts TotalCount as reported for this page; changes to the index
// between calls are not detected.
func (r *Results) HasMore() bool {
	return r.Start+r.ReturnedCount < r.TotalCount
}

// Bibcodes returns the bibcodes of all papers in order.
func (r *Results) Bibcodes() []string {
	out := make([]string, len(r.Papers))
	for i, p := range r.Papers {
		out[i] = p.Bibcode
	}
	return out
}

// Statistics summarizes a result set.
type Statistics struct {
	TotalPapers  int       `json:"total_papers" yaml:"total_papers"`
	AvgCitations float64   `json:"avg_citations" yaml:"avg_citations"`
	MinCitations int       `json:"min_citations" yaml:"min_citations"`
	MaxCitations int       `json:"max_citations" yaml:"max_citations"`
	MinYear      int       `json:"min_year" yaml:"min_year"`
	MaxYear      int       `json:"max_year" yaml:"max_year"`
	RetrievedAt  time.Time `json:"retrieved_at" yaml:"retrieved_at"`
}

// Statistics computes citation and year ranges over the page. All fields
// except RetrievedAt are zero for an empty page.
func (r *Results) Statistics() Statistics {
	s := Statistics{RetrievedAt: r.Timestamp}
	if len(r.Papers) == 0 {
		return s
	}

	s.TotalPapers = len(r.Papers)
	s.MinCitations, s.MaxCitations = r.Papers[0].CitationCount, r.Papers[0].CitationCount
	s.MinYear, s.MaxYear = r.Papers[0].Year, r.Papers[0].Year
	sum := 0
	for _, p := range r.Papers {
		sum += p.CitationCount
		s.MinCitations = min(s.MinCitations, p.CitationCount)
		s.MaxCitations = max(s.MaxCitations, p.CitationCount)
		s.MinYear = min(s.MinYear, p.Year)
		s.MaxYear = max(s.MaxYear, p.Year)
	}
	s.AvgCitations = float64(sum) / float64(len(r.Papers))
	return s
}
