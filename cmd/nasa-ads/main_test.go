// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/nasa-ads/internal/ads"
	"github.com/pdiddy/nasa-ads/internal/config"
	"github.com/pdiddy/nasa-ads/internal/validate"
)

const searchBody = `{"response":{"numFound":1,"start":0,"docs":[
  {"bibcode":"2021ApJ...919..136K","title":["Dark Matter Halos"],"year":"2021",
   "pub":"ApJ","abstract":"We study halos.","keyword":["dark matter"],"citation_count":42}
]}}`

// resetFlags restores every flag to its default so successive executions
// of the shared root command do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// isolateEnv keeps the host's config, .env, and NASA_ADS_* variables out
// of the test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, config.EnvPrefix+"_") {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
	return home
}

func writeConfig(t *testing.T, dir, baseURL, apiKey string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	content := fmt.Sprintf("api_base_url: %s\nrate_limit_delay: 0\nmax_retries: 0\nlog_level: ERROR\n", baseURL)
	if apiKey != "" {
		content += "api_key: " + apiKey + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	if err != nil {
		report(&errOut, err, code)
	}
	return out.String(), errOut.String(), code
}

func adsServer(t *testing.T, calls *atomic.Int32, gotQuery *atomic.Value) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if gotQuery != nil {
			gotQuery.Store(r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchBody)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestExitCode(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	bg := context.Background()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want int
	}{
		{"success", bg, nil, ExitSuccess},
		{"config", bg, &config.Error{Err: errors.New("no key")}, ExitConfigError},
		{"config wrapping validation", bg, &config.Error{Err: &validate.ValidationError{Field: "rows"}}, ExitConfigError},
		{"validation", bg, &validate.ValidationError{Field: "rows", Message: "bad"}, ExitDataError},
		{"api", bg, &ads.APIError{Kind: ads.KindAuth, Message: "invalid API key"}, ExitError},
		{"other", bg, errors.New("boom"), ExitError},
		{"interrupted", cancelled, errors.New("request aborted"), ExitInterrupted},
		{"canceled error", bg, fmt.Errorf("fetch: %w", context.Canceled), ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.ctx, tt.err))
		})
	}
}

func TestBuildInteractive(t *testing.T) {
	var out bytes.Buffer
	q, err := buildInteractive(strings.NewReader("dark matter, halos\nSmith\n2020\n2024\n10\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, `dark matter AND halos AND author:"Smith" AND year:[2020 TO 2024] AND citation_count:[10 TO *]`, q.Q)
	assert.Contains(t, out.String(), "Search terms (comma-separated): ")
}

func TestBuildInteractiveEmptyInput(t *testing.T) {
	q, err := buildInteractive(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "*", q.Q)
}

func TestBuildInteractiveRejectsBadNumber(t *testing.T) {
	_, err := buildInteractive(strings.NewReader("x\n\nnineteen\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, validate.IsValidationError(err))
}

func TestBuilderCommand(t *testing.T) {
	isolateEnv(t)
	out, _, code := execute(t, "supernova\n\n\n\n\n", "builder")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Generated Query: supernova")
	assert.Contains(t, out, "Parameters: rows=100, sort=citation_count desc")
}

func TestSearchCommandCSVToStdout(t *testing.T) {
	home := isolateEnv(t)
	var calls atomic.Int32
	var gotQuery atomic.Value
	ts := adsServer(t, &calls, &gotQuery)
	cfgPath := writeConfig(t, home, ts.URL, "test-key-1234567")

	out, errOut, code := execute(t, "", "--config", cfgPath, "search", "dark matter", "--author", "Kim")
	require.Equal(t, ExitSuccess, code, errOut)

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, `dark matter AND author:"Kim"`, gotQuery.Load())
	assert.True(t, strings.HasPrefix(out, "bibcode,title,year,pub,abstract,citation_count,keywords,ADS_URL\n"))
	assert.Contains(t, out, "2021ApJ...919..136K,Dark Matter Halos,2021,ApJ")
}

func TestSearchCommandWritesFile(t *testing.T) {
	home := isolateEnv(t)
	var calls atomic.Int32
	ts := adsServer(t, &calls, nil)
	cfgPath := writeConfig(t, home, ts.URL, "test-key-1234567")
	outPath := filepath.Join(home, "out", "papers.bib")

	_, errOut, code := execute(t, "", "--config", cfgPath, "search", "dark matter", "-f", "bibtex", "-o", outPath)
	require.Equal(t, ExitSuccess, code, errOut)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "@article{2021ApJ...919..136K,"))
}

func TestSearchCommandMissingKey(t *testing.T) {
	home := isolateEnv(t)
	var calls atomic.Int32
	ts := adsServer(t, &calls, nil)
	cfgPath := writeConfig(t, home, ts.URL, "")

	_, errOut, code := execute(t, "", "--config", cfgPath, "search", "dark matter")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, errOut, "API key not found")
	assert.EqualValues(t, 0, calls.Load())
}

func TestSearchCommandValidationBeforeNetwork(t *testing.T) {
	home := isolateEnv(t)
	var calls atomic.Int32
	ts := adsServer(t, &calls, nil)
	cfgPath := writeConfig(t, home, ts.URL, "test-key-1234567")

	tests := [][]string{
		{"search", "dark matter", "--rows", "5000"},
		{"search", "dark matter", "--year-min", "1700", "--year-max", "2000"},
		{"search", "dark matter", "--format", "xml"},
		{"search", "dark matter", "--min-citations", "-1"},
		{"fetch", "dark matter", "--workers", "0"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[2:], " "), func(t *testing.T) {
			_, _, code := execute(t, "", append([]string{"--config", cfgPath}, args...)...)
			assert.Equal(t, ExitDataError, code)
		})
	}
	assert.EqualValues(t, 0, calls.Load())
}

func TestSearchCommandAPIError(t *testing.T) {
	home := isolateEnv(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(ts.Close)
	cfgPath := writeConfig(t, home, ts.URL, "test-key-1234567")

	_, errOut, code := execute(t, "", "--config", cfgPath, "search", "dark matter")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "invalid API key")
}

func TestFetchCommandSequential(t *testing.T) {
	home := isolateEnv(t)
	var calls atomic.Int32
	ts := adsServer(t, &calls, nil)
	cfgPath := writeConfig(t, home, ts.URL, "test-key-1234567")

	out, errOut, code := execute(t, "", "--config", cfgPath, "fetch", "dark matter", "--workers", "1", "-f", "json")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.EqualValues(t, 1, calls.Load())
	assert.Contains(t, out, `"total_papers": 1`)
}

func TestConfigCommandMasksKey(t *testing.T) {
	home := isolateEnv(t)
	cfgPath := writeConfig(t, home, "https://example.test/v1", "test-key-1234567")

	out, _, code := execute(t, "", "--config", cfgPath, "config")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "api_key: ")
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "test-key-1234567")
	assert.Contains(t, out, "api_base_url: https://example.test/v1")
	assert.Contains(t, out, "# config file: "+cfgPath)
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)
	out, _, code := execute(t, "", "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "nasa-ads dev\n", out)
}
