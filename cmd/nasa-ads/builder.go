// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

var builderCmd = &cobra.Command{
	Use:   "builder",
	Short: "Build an ADS query interactively",
	Long: `Builder prompts for search terms and filters on stdin and prints the
resulting ADS query string and request parameters. Press Enter to skip an
optional field.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nGenerated Query: %s\n", q.Q)
		fmt.Fprintf(cmd.OutOrStdout(), "Parameters: rows=%d, sort=%s\n", q.Rows, q.Sort)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(builderCmd)
}

// buildInteractive reads one answer per prompt from in. Missing input is
// treated as an empty answer.
func buildInteractive(in io.Reader, out io.Writer) (*types.Query, error) {
	sc := bufio.NewScanner(in)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			return ""
		}
		return strings.TrimSpace(sc.Text())
	}

	fmt.Fprintln(out, "\n=== NASA ADS Query Builder ===")
	fmt.Fprintln(out, "Enter query parameters (press Enter to skip optional fields):")
	fmt.Fprintln(out)

	opts := types.BuildOptions{}
	for _, t := range strings.Split(ask("Search terms (comma-separated): "), ",") {
		if t = strings.TrimSpace(t); t != "" {
			opts.Terms = append(opts.Terms, t)
		}
	}
	opts.Author = ask("Author (optional): ")

	var err error
	if opts.YearMin, err = optionalInt("year_min", ask("Min year (optional): ")); err != nil {
		return nil, err
	}
	if opts.YearMax, err = optionalInt("year_max", ask("Max year (optional): ")); err != nil {
		return nil, err
	}
	if opts.MinCitations, err = optionalInt("min_citations", ask("Min citations (optional, default: 0): ")); err != nil {
		return nil, err
	}
	if opts.MinCitations < 0 {
		return nil, validate.CitationCount(opts.MinCitations)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return types.BuildQuery(opts)
}

func optionalInt(field, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &validate.ValidationError{Field: field, Message: fmt.Sprintf("%s must be a whole number, got %q", field, s)}
	}
	return n, nil
}
