// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/ads"
	"github.com/pdiddy/nasa-ads/internal/paginate"
	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

// defaultMaxPapers keeps a single fetch well inside the ADS daily quota.
const defaultMaxPapers = 500

var fetchCmd = &cobra.Command{
	Use:   "fetch <query>",
	Short: "Page through a search and export every collected paper",
	Long: `Fetch pages through the results of one query, up to --max-papers, and
exports them together. With --workers 1 pages are requested one after
another; with more workers the remaining pages are requested concurrently,
still spaced by the configured rate limit, and merged in result order.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	addQueryFlags(fetchCmd)
	addOutputFlags(fetchCmd)
	fetchCmd.Flags().Int("max-papers", defaultMaxPapers, "stop after this many papers (0 for all)")
	fetchCmd.Flags().Int("workers", paginate.DefaultWorkers, "concurrent page requests (1 for sequential)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	query, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	maxPapers, _ := cmd.Flags().GetInt("max-papers")
	workers, _ := cmd.Flags().GetInt("workers")
	if maxPapers < 0 {
		return &validate.ValidationError{Field: "max-papers", Message: "max-papers must not be negative"}
	}
	if workers < 1 {
		return &validate.ValidationError{Field: "workers", Message: "workers must be at least 1"}
	}

	formatName, output, err := outputSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	return withClient(func(c *ads.Client) error {
		logger.Info("fetching",
			zap.String("q", query.Q),
			zap.Int("max_papers", maxPapers),
			zap.Int("workers", workers),
		)

		var results *types.Results
		if workers == 1 {
			results, err = paginate.Collect(ctx, c, query, maxPapers)
		} else {
			results, err = paginate.FetchParallel(ctx, c, *query, maxPapers, workers)
		}
		if err != nil {
			return err
		}

		stats := results.Statistics()
		logger.Info("fetch complete",
			zap.Int("total", results.TotalCount),
			zap.Int("collected", results.Len()),
			zap.Float64("avg_citations", stats.AvgCitations),
			zap.Int("min_year", stats.MinYear),
			zap.Int("max_year", stats.MaxYear),
		)
		if err := attachBibTeX(ctx, cmd, c, results); err != nil {
			return err
		}
		return emit(cmd, results, formatName, output)
	})
}
