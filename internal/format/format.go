// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format renders search results as CSV, JSON, BibTeX, or CSL-YAML
// text and writes them to export files.
package format

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

// Formatter renders a Results page. Every variant has the same contract;
// only the serialization differs.
type Formatter interface {
	// Name is the format name used on the command line (e.g. "csv").
	Name() string

	// Format returns the serialized page.
	Format(results *types.Results) (string, error)

	// Save writes exactly the Format output to path, creating parent
	// directories as needed.
	Save(results *types.Results, path string) error
}

// Extension returns the conventional file extension for a format name.
func Extension(name string) string {
	switch name {
	case "bibtex":
		return ".bib"
	case "csl":
		return ".yaml"
	default:
		return "." + name
	}
}

// New returns the formatter registered under name. Unknown names yield a
// *validate.ValidationError.
func New(name string, logger *zap.Logger) (Formatter, error) {
	if err := validate.OutputFormat(name); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := writer{logger: logger}
	switch name {
	case "csv":
		return &CSV{writer: w}, nil
	case "json":
		return &JSON{writer: w}, nil
	case "bibtex":
		return &BibTeX{writer: w}, nil
	case "csl":
		return &CSL{writer: w}, nil
	}
	return nil, fmt.Errorf("no formatter for %q", name)
}

// writer implements Save for every formatter.
type writer struct {
	logger *zap.Logger
}

func (w writer) save(f Formatter, results *types.Results, path string) error {
	text, err := f.Format(results)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.logger.Info("saved papers",
		zap.String("format", f.Name()),
		zap.Int("papers", results.Len()),
		zap.String("path", path),
	)
	return nil
}
