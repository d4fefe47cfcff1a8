// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paginate walks multi-page ADS result sets, either one page at a
// time or with a bounded pool of concurrent page fetches, and attaches
// exported BibTeX entries to collected papers.
package paginate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/nasa-ads/pkg/types"
)

// DefaultWorkers is the concurrent page fetch limit used by FetchParallel
// when workers is not positive.
const DefaultWorkers = 4

// DefaultBibTeXBatch is the number of bibcodes sent per export request.
const DefaultBibTeXBatch = 100

// Searcher runs one page of a search. *ads.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query *types.Query) (*types.Results, error)
}

// BibTeXFetcher exports BibTeX entries keyed by bibcode. *ads.Client
// satisfies it.
type BibTeXFetcher interface {
	GetBibTeX(ctx context.Context, bibcodes []string) (map[string]string, error)
}

// Collect fetches pages sequentially starting at query.Start until the
// server reports no more results, the next offset passes the reported
// total, or maxPapers papers are collected. A page whose documents were
// all skipped during parsing does not end the walk. maxPapers <= 0 means no limit. The query is not
// modified. The returned Results carries the first page's metadata and
// every paper in API order.
func Collect(ctx context.Context, s Searcher, query *types.Query, maxPapers int) (*types.Results, error) {
	q := *query
	var all *types.Results
	for {
		page, err := s.Search(ctx, &q)
		if err != nil {
			return nil, fmt.Errorf("fetching page at start %d: %w", q.Start, err)
		}
		if all == nil {
			all = types.NewResults(page.TotalCount, page.Start)
			all.Timestamp = page.Timestamp
		}
		for _, p := range page.Papers {
			if maxPapers > 0 && all.Len() >= maxPapers {
				return all, nil
			}
			all.Add(p)
		}
		if !page.HasMore() {
			return all, nil
		}
		if maxPapers > 0 && all.Len() >= maxPapers {
			return all, nil
		}
		q.Advance()
		if q.Start >= page.TotalCount {
			return all, nil
		}
	}
}

// FetchParallel fetches the first page of base, then fetches the rest of
// the first min(maxPapers, total) results concurrently with at most
// workers requests in flight. Pages are merged in offset order regardless
// of completion order. The first failing page cancels the others and its
// error is returned. maxPapers <= 0 means every result the server reports.
func FetchParallel(ctx context.Context, s Searcher, base types.Query, maxPapers, workers int) (*types.Results, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	first, err := s.Search(ctx, &base)
	if err != nil {
		return nil, fmt.Errorf("fetching page at start %d: %w", base.Start, err)
	}

	limit := max(first.TotalCount-base.Start, 0)
	if maxPapers > 0 && maxPapers < limit {
		limit = maxPapers
	}

	var starts []int
	for off := base.Rows; off < limit; off += base.Rows {
		starts = append(starts, base.Start+off)
	}
	pages := make([]*types.Results, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, start := range starts {
		g.Go(func() error {
			q := base
			q.Start = start
			page, err := s.Search(gctx, &q)
			if err != nil {
				return fmt.Errorf("fetching page at start %d: %w", start, err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := types.NewResults(first.TotalCount, first.Start)
	all.Timestamp = first.Timestamp
	for _, page := range append([]*types.Results{first}, pages...) {
		for _, p := range page.Papers {
			if all.Len() >= limit {
				return all, nil
			}
			all.Add(p)
		}
	}
	return all, nil
}

// AttachBibTeX exports BibTeX for every paper in results, batchSize
// bibcodes per request, and stores each entry on its paper. Papers the
// export did not cover keep an empty BibTeX field.
func AttachBibTeX(ctx context.Context, f BibTeXFetcher, results *types.Results, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBibTeXBatch
	}
	bibcodes := results.Bibcodes()
	for lo := 0; lo < len(bibcodes); lo += batchSize {
		hi := min(lo+batchSize, len(bibcodes))
		entries, err := f.GetBibTeX(ctx, bibcodes[lo:hi])
		if err != nil {
			return fmt.Errorf("exporting BibTeX batch %d-%d: %w", lo, hi, err)
		}
		for i := lo; i < hi; i++ {
			if entry, ok := entries[results.Papers[i].Bibcode]; ok {
				results.Papers[i].BibTeX = entry
			}
		}
	}
	return nil
}
