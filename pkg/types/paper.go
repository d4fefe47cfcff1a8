// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the value objects shared by the ADS client, the
// formatters, and the CLI: Paper, Query, Results, and configuration.
package types

import (
	"github.com/pdiddy/nasa-ads/internal/validate"
)

// ADSAbstractBase is the fixed prefix of a paper's page on the ADS website.
const ADSAbstractBase = "https://ui.adsabs.harvard.edu/abs/"

// Paper is one bibliographic record returned by the ADS search API.
// Build instances with NewPaper so every field constraint is checked.
type Paper struct {
	// Bibcode is the ADS identifier (e.g. "2021ApJ...919..136K").
	Bibcode string `json:"bibcode" yaml:"bibcode"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Year is the publication year (1800-2100).
	Year int `json:"year" yaml:"year"`

	// Pub is the publication venue; may be empty.
	Pub string `json:"pub" yaml:"pub"`

	// Abstract may be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Keyword lists the ADS keywords in source order.
	Keyword []string `json:"keyword" yaml:"keyword"`

	// CitationCount is never negative.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// BibTeX holds a prefetched export entry, empty until one is attached.
	BibTeX string `json:"bibtex,omitempty" yaml:"bibtex,omitempty"`
}

// NewPaper validates p and returns a copy with a non-nil keyword slice.
// No Paper that violates a field constraint is ever returned.
func NewPaper(p Paper) (*Paper, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Keyword == nil {
		p.Keyword = []string{}
	}
	return &p, nil
}

// Validate checks every field constraint of the paper.
func (p *Paper) Validate() error {
	if p.Bibcode == "" {
		return &validate.ValidationError{Field: "bibcode", Message: "bibcode must be a non-empty string"}
	}
	if p.Title == "" {
		return &validate.ValidationError{Field: "title", Message: "title must be a non-empty string"}
	}
	if err := validate.Year(p.Year); err != nil {
		return err
	}
	if p.CitationCount < 0 {
		return validate.CitationCount(p.CitationCount)
	}
	return nil
}

// ADSURL returns the paper's abstract page on the ADS website.
func (p *Paper) ADSURL() string {
	return ADSAbstractBase + p.Bibcode
}

// PaperRecord is the flattened export view of a Paper, including the
// derived URL. BibTeX is nil when no entry has been fetched.
type PaperRecord struct {
	Bibcode       string   `json:"bibcode" yaml:"bibcode"`
	Title         string   `json:"title" yaml:"title"`
	Year          int      `json:"year" yaml:"year"`
	Pub           string   `json:"pub" yaml:"pub"`
	Abstract      string   `json:"abstract" yaml:"abstract"`
	Keyword       []string `json:"keyword" yaml:"keyword"`
	CitationCount int      `json:"citation_count" yaml:"citation_count"`
	BibTeX        *string  `json:"bibtex" yaml:"bibtex"`
	URL           string   `json:"url" yaml:"url"`
}

// Record returns the export view of the paper.
func (p *Paper) Record() PaperRecord {
	rec := PaperRecord{
		Bibcode:       p.Bibcode,
		Title:         p.Title,
		Year:          p.Year,
		Pub:           p.Pub,
		Abstract:      p.Abstract,
		Keyword:       p.Keyword,
		CitationCount: p.CitationCount,
		URL:           p.ADSURL(),
	}
	if rec.Keyword == nil {
		rec.Keyword = []string{}
	}
	if p.BibTeX != "" {
		b := p.BibTeX
		rec.BibTeX = &b
	}
	return rec
}
