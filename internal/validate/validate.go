// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate holds the input checks shared by the CLI and the ADS
// client. Each function enforces one constraint and returns nil on success
// or a *ValidationError describing the violation.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Bounds enforced by the validators.
const (
	MinAPIKeyLength  = 10
	MaxQueryLength   = 1000
	MinYear          = 1800
	MaxYear          = 2100
	MaxCitationCount = 1_000_000
	MinRows          = 1
	MaxRows          = 2000
	MaxTimeout       = 300 * time.Second
	MinBibcodeLength = 10
)

// OutputFormats lists the export formats understood by the formatters.
var OutputFormats = []string{"csv", "json", "bibtex", "csl"}

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	bibcodePattern = regexp.MustCompile(`^\d{4}[a-zA-Z0-9.&]+$`)
)

// ValidationError reports a caller-supplied value that failed a local
// precondition. It is always returned before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err (or anything it wraps) is a
// *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func fail(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// APIKey checks that an ADS API key is present and plausibly long.
func APIKey(key string) error {
	if key == "" {
		return fail("api_key", "API key cannot be empty")
	}
	if len(key) < MinAPIKeyLength {
		return fail("api_key", "API key appears too short (min %d characters)", MinAPIKeyLength)
	}
	return nil
}

// Query checks an ADS query-language expression.
func Query(q string) error {
	if q == "" {
		return fail("query", "query cannot be empty")
	}
	if len(q) > MaxQueryLength {
		return fail("query", "query exceeds maximum length (%d chars)", MaxQueryLength)
	}
	return nil
}

// Year checks a publication year.
func Year(year int) error {
	if year < MinYear || year > MaxYear {
		return fail("year", "year must be between %d and %d, got %d", MinYear, MaxYear, year)
	}
	return nil
}

// YearRange checks both ends of a year range and their order.
func YearRange(min, max int) error {
	if err := Year(min); err != nil {
		return err
	}
	if err := Year(max); err != nil {
		return err
	}
	if min > max {
		return fail("year_range", "min year (%d) greater than max (%d)", min, max)
	}
	return nil
}

// CitationCount checks a citation count.
func CitationCount(count int) error {
	if count < 0 {
		return fail("citation_count", "citation count must be non-negative, got %d", count)
	}
	if count > MaxCitationCount {
		return fail("citation_count", "citation count seems unreasonably high: %d", count)
	}
	return nil
}

// Rows checks the page size of a search request.
func Rows(rows int) error {
	if rows < MinRows || rows > MaxRows {
		return fail("rows", "rows must be between %d and %d, got %d", MinRows, MaxRows, rows)
	}
	return nil
}

// Start checks a pagination offset.
func Start(start int) error {
	if start < 0 {
		return fail("start", "start must be non-negative, got %d", start)
	}
	return nil
}

// OutputFormat checks an export format name.
func OutputFormat(name string) error {
	for _, f := range OutputFormats {
		if f == name {
			return nil
		}
	}
	return fail("format", "output format must be one of %v, got %q", OutputFormats, name)
}

// OutputPath checks that path names a file whose parent directory exists
// and is writable. Writability is probed by creating and removing a
// temporary file.
func OutputPath(path string) error {
	if path == "" {
		return fail("output", "output path cannot be empty")
	}

	parent := filepath.Dir(path)
	info, err := os.Stat(parent)
	if err != nil {
		return fail("output", "output directory does not exist: %s", parent)
	}
	if !info.IsDir() {
		return fail("output", "output parent is not a directory: %s", parent)
	}

	probe, err := os.CreateTemp(parent, ".write_test")
	if err != nil {
		return fail("output", "output directory is not writable: %s", parent)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// Timeout checks a request timeout.
func Timeout(d time.Duration) error {
	if d <= 0 {
		return fail("timeout", "timeout must be positive, got %v", d)
	}
	if d > MaxTimeout {
		return fail("timeout", "timeout seems too large (>%v): %v", MaxTimeout, d)
	}
	return nil
}

// Email checks an email address.
func Email(email string) error {
	if !emailPattern.MatchString(email) {
		return fail("email", "invalid email format: %s", email)
	}
	return nil
}

// Bibcode checks the shape of an ADS bibcode (e.g. "2021ApJ...919..136K").
func Bibcode(bibcode string) error {
	if len(bibcode) < MinBibcodeLength {
		return fail("bibcode", "bibcode too short (min %d chars): %s", MinBibcodeLength, bibcode)
	}
	if !bibcodePattern.MatchString(bibcode) {
		return fail("bibcode", "invalid bibcode format: %s", bibcode)
	}
	return nil
}
