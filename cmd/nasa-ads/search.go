// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/ads"
	"github.com/pdiddy/nasa-ads/internal/config"
	"github.com/pdiddy/nasa-ads/internal/format"
	"github.com/pdiddy/nasa-ads/internal/paginate"
	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search NASA ADS and export one page of results",
	Long: `Search runs one ADS query and writes the returned page in the chosen
format, to --output or to stdout. The query uses ADS syntax; --author,
--year-min/--year-max, and --min-citations are ANDed onto it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	addQueryFlags(searchCmd)
	addOutputFlags(searchCmd)
	searchCmd.Flags().Int("start", 0, "offset of the first result")

	rootCmd.AddCommand(searchCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("author", "", "filter by author name")
	cmd.Flags().Int("year-min", 0, "minimum publication year (requires --year-max)")
	cmd.Flags().Int("year-max", 0, "maximum publication year (requires --year-min)")
	cmd.Flags().Int("min-citations", 0, "minimum citation count")
	cmd.Flags().String("sort", types.DefaultSort, "sort specification")
	cmd.Flags().Int("rows", 0, "results per request, 1-2000 (default from config, 100)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "", "output format: csv, json, bibtex, csl (default from config, csv)")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	cmd.Flags().Bool("with-bibtex", false, "fetch BibTeX entries from the export API")
}

// queryFromFlags builds the ADS query from the positional query and the
// filter flags.
func queryFromFlags(cmd *cobra.Command, args []string) (*types.Query, error) {
	author, _ := cmd.Flags().GetString("author")
	yearMin, _ := cmd.Flags().GetInt("year-min")
	yearMax, _ := cmd.Flags().GetInt("year-max")
	minCitations, _ := cmd.Flags().GetInt("min-citations")
	sortSpec, _ := cmd.Flags().GetString("sort")
	rows, _ := cmd.Flags().GetInt("rows")

	if err := validate.Query(args[0]); err != nil {
		return nil, err
	}
	for _, y := range []int{yearMin, yearMax} {
		if y != 0 {
			if err := validate.Year(y); err != nil {
				return nil, err
			}
		}
	}
	if (yearMin == 0) != (yearMax == 0) {
		logger.Warn("year filter needs both --year-min and --year-max; ignoring it",
			zap.Int("year_min", yearMin), zap.Int("year_max", yearMax))
	}
	if minCitations < 0 {
		return nil, validate.CitationCount(minCitations)
	}
	if rows == 0 {
		rows = appConfig.RowsPerRequest
	}

	return types.BuildQuery(types.BuildOptions{
		Terms:        []string{args[0]},
		Author:       author,
		YearMin:      yearMin,
		YearMax:      yearMax,
		MinCitations: minCitations,
		Sort:         sortSpec,
		Rows:         rows,
	})
}

// outputSettings returns the format name and output path, checking both
// before any network call.
func outputSettings(cmd *cobra.Command) (string, string, error) {
	name, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	if name == "" {
		name = appConfig.OutputFormat
	}
	if err := validate.OutputFormat(name); err != nil {
		return "", "", err
	}
	if output != "" {
		if err := validate.OutputPath(output); err != nil {
			return "", "", err
		}
	}
	return name, output, nil
}

// withClient validates the configuration and runs fn with a client that
// is closed when fn returns.
func withClient(fn func(*ads.Client) error) error {
	if err := config.Validate(appConfig); err != nil {
		return err
	}
	opts := append(config.ClientOptions(appConfig, logger), ads.WithUserAgent("nasa-ads/"+version))
	return ads.With(appConfig.APIKey, opts, fn)
}

// emit renders results and writes them to output, or to stdout when
// output is empty.
func emit(cmd *cobra.Command, results *types.Results, formatName, output string) error {
	f, err := format.New(formatName, logger)
	if err != nil {
		return err
	}
	if output != "" {
		return f.Save(results, output)
	}
	text, err := f.Format(results)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func attachBibTeX(ctx context.Context, cmd *cobra.Command, c *ads.Client, results *types.Results) error {
	if ok, _ := cmd.Flags().GetBool("with-bibtex"); !ok {
		return nil
	}
	return paginate.AttachBibTeX(ctx, c, results, paginate.DefaultBibTeXBatch)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	start, _ := cmd.Flags().GetInt("start")
	if err := validate.Start(start); err != nil {
		return err
	}
	query.Start = start

	formatName, output, err := outputSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	return withClient(func(c *ads.Client) error {
		logger.Info("executing query", zap.String("q", query.Q))
		results, err := c.Search(ctx, query)
		if err != nil {
			return err
		}
		logger.Info("search complete",
			zap.Int("total", results.TotalCount),
			zap.Int("returned", results.ReturnedCount),
			zap.Bool("has_more", results.HasMore()),
		)
		if err := attachBibTeX(ctx, cmd, c, results); err != nil {
			return err
		}
		return emit(cmd, results, formatName, output)
	})
}
