// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ads

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/nasa-ads/internal/httputil"
	"github.com/pdiddy/nasa-ads/internal/ratelimit"
	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

const testKey = "test_key_1234567890"

const sampleSearchJSON = `{
  "responseHeader": {"status": 0},
  "response": {
    "numFound": 100,
    "start": 0,
    "docs": [
      {
        "bibcode": "2021ApJ...919..136K",
        "title": ["Discovery"],
        "year": 2021,
        "pub": "ApJ",
        "abstract": "x",
        "keyword": ["exoplanet"],
        "citation_count": 42
      }
    ]
  }
}`

// newTestClient points a client at ts with no throttling and a tiny backoff.
func newTestClient(t *testing.T, ts *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(ts.URL),
		WithMinDelay(0),
		WithBackoff(time.Millisecond),
	}
	c, err := NewClient(testKey, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func mustQuery(t *testing.T, q string, opts ...types.QueryOption) *types.Query {
	t.Helper()
	query, err := types.NewQuery(q, opts...)
	require.NoError(t, err)
	return query
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(testKey)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestNewClientRejectsBadKey(t *testing.T) {
	for _, key := range []string{"", "short"} {
		_, err := NewClient(key)
		assert.True(t, validate.IsValidationError(err), "key %q", key)
	}
}

func TestNewClientRejectsBadTimeout(t *testing.T) {
	_, err := NewClient(testKey, WithTimeout(0))
	assert.True(t, validate.IsValidationError(err))
}

func TestSearchSuccess(t *testing.T) {
	var gotReq *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleSearchJSON)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	results, err := c.Search(context.Background(), mustQuery(t, "exoplanet", types.WithRows(10)))
	require.NoError(t, err)

	assert.Equal(t, 100, results.TotalCount)
	assert.Equal(t, 0, results.Start)
	assert.Equal(t, 1, results.ReturnedCount)
	require.Len(t, results.Papers, 1)

	p := results.Papers[0]
	assert.Equal(t, "2021ApJ...919..136K", p.Bibcode)
	assert.Equal(t, "Discovery", p.Title)
	assert.Equal(t, 2021, p.Year)
	assert.Equal(t, "ApJ", p.Pub)
	assert.Equal(t, []string{"exoplanet"}, p.Keyword)
	assert.Equal(t, 42, p.CitationCount)
	assert.True(t, results.HasMore())

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, searchPath, gotReq.URL.Path)
	assert.Equal(t, "Bearer "+testKey, gotReq.Header.Get("Authorization"))
	assert.Equal(t, "exoplanet", gotReq.URL.Query().Get("q"))
	assert.Equal(t, "10", gotReq.URL.Query().Get("rows"))
	assert.Equal(t, "0", gotReq.URL.Query().Get("start"))
	assert.Equal(t, types.DefaultFields, gotReq.URL.Query().Get("fl"))
	assert.Equal(t, types.DefaultSort, gotReq.URL.Query().Get("sort"))
}

func TestSearchSkipsMalformedDocuments(t *testing.T) {
	body := `{"response": {"numFound": 4, "start": 0, "docs": [
		{"bibcode": "2021ApJ...919..136K", "title": ["Good"], "year": "2021", "citation_count": 3},
		{"bibcode": "2020ApJ...900....1A", "title": [], "year": 2020},
		{"bibcode": "2019ApJ...800....2B", "title": ["Bad year"], "year": 1700},
		{"bibcode": "2018ApJ...700....3C", "title": ["No keywords"], "year": 2018}
	]}}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, body)
	}))
	defer ts.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestClient(t, ts, WithLogger(zap.New(core)))

	results, err := c.Search(context.Background(), mustQuery(t, "x"))
	require.NoError(t, err)

	require.Len(t, results.Papers, 2)
	assert.Equal(t, 2, results.ReturnedCount)
	assert.Equal(t, 4, results.TotalCount)
	assert.Equal(t, "2021ApJ...919..136K", results.Papers[0].Bibcode)
	assert.Equal(t, 2021, results.Papers[0].Year)
	assert.Equal(t, []string{}, results.Papers[1].Keyword)

	assert.Equal(t, 2, logs.FilterMessage("skipping malformed document").Len())
}

func TestSearchValidatesBeforeNetwork(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)

	_, err := c.Search(context.Background(), &types.Query{Q: "", Rows: 10})
	assert.True(t, validate.IsValidationError(err))

	_, err = c.Search(context.Background(), &types.Query{Q: "x", Rows: 5000})
	assert.True(t, validate.IsValidationError(err))

	_, err = c.Search(context.Background(), nil)
	assert.True(t, validate.IsValidationError(err))

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSearchRowsOutOfRangeFailsAtConstruction(t *testing.T) {
	q, err := types.NewQuery("x", types.WithRows(5000))
	assert.Nil(t, q)
	assert.True(t, validate.IsValidationError(err))
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      Kind
		sentinel  error
		wantCalls int32
	}{
		{"rate limited after retries", http.StatusTooManyRequests, "", KindRateLimit, ErrRateLimited, 3},
		{"unauthorized", http.StatusUnauthorized, "", KindAuth, ErrAuth, 1},
		{"server error after retries", http.StatusServiceUnavailable, "down", KindHTTP, ErrHTTP, 3},
		{"bad request", http.StatusBadRequest, `{"error": "bad query"}`, KindHTTP, ErrHTTP, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			c := newTestClient(t, ts, WithMaxRetries(2))
			_, err := c.Search(context.Background(), mustQuery(t, "x"))
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestSearchRateLimitMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := newTestClient(t, ts, WithMaxRetries(1))
	_, err := c.Search(context.Background(), mustQuery(t, "x"))
	assert.True(t, IsRateLimited(err))
	assert.False(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "try again later")
}

func TestSearchHTTPErrorQuotesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "syntax error in query")
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.Search(context.Background(), mustQuery(t, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error in query")
	assert.Contains(t, err.Error(), "status 400")
}

func TestSearchMalformedJSON(t *testing.T) {
	for name, body := range map[string]string{
		"not json":         "<html>oops</html>",
		"missing response": `{"error": "x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				io.WriteString(w, body)
			}))
			defer ts.Close()

			c := newTestClient(t, ts)
			_, err := c.Search(context.Background(), mustQuery(t, "x"))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestSearchConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	c, err := NewClient(testKey, WithBaseURL(url), WithMinDelay(0))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Search(context.Background(), mustQuery(t, "x"))
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsAPIError(err))
}

func TestSearchStalledBodyTimesOut(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleSearchJSON[:len(sampleSearchJSON)/2])
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := newTestClient(t, ts, WithTimeout(200*time.Millisecond), WithMaxRetries(0))

	q := mustQuery(t, "x")
	done := make(chan error, 1)
	go func() {
		_, err := c.Search(context.Background(), q)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, httputil.ErrTimeout)
	case <-time.After(3 * time.Second):
		t.Fatal("Search still blocked 3s after a 200ms timeout")
	}
}

func TestSearchUsesRateLimiter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, sampleSearchJSON)
	}))
	defer ts.Close()

	delay := 40 * time.Millisecond
	c := newTestClient(t, ts, WithRateLimiter(ratelimit.New(delay)))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), mustQuery(t, "x"))
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*delay-10*time.Millisecond)
}

func TestGetBibTeXEmptyIsNoOp(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	// A limiter that would block for an hour proves no throttling happens.
	limiter := ratelimit.New(time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))
	c := newTestClient(t, ts, WithRateLimiter(limiter))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := c.GetBibTeX(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, err = c.GetBibTeX(ctx, []string{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGetBibTeX(t *testing.T) {
	export := "@ARTICLE{2021ApJ...919..136K,\n   author = {{Kepler}, J.},\n}\n\n" +
		"@ARTICLE{2019MNRAS.482.1234A,\n   author = {{Aa}, B.},\n}\n"

	var gotBody exportRequest
	var gotReq *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"msg": "Retrieved 2 abstracts", "export": export})
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	bibcodes := []string{"2021ApJ...919..136K", "2019MNRAS.482.1234A"}
	got, err := c.GetBibTeX(context.Background(), bibcodes)
	require.NoError(t, err)

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, exportPath, gotReq.URL.Path)
	assert.Equal(t, "Bearer "+testKey, gotReq.Header.Get("Authorization"))
	assert.Equal(t, bibcodes, gotBody.Bibcodes)
	assert.Equal(t, "bibtex", gotBody.Format)

	require.Len(t, got, 2)
	assert.Contains(t, got["2021ApJ...919..136K"], "@ARTICLE{2021ApJ...919..136K,")
	assert.Contains(t, got["2019MNRAS.482.1234A"], "{{Aa}, B.}")
	assert.NotContains(t, got["2021ApJ...919..136K"], "2019MNRAS")
}

func TestGetBibTeXErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.GetBibTeX(context.Background(), []string{"2021ApJ...919..136K"})
	assert.True(t, IsAuthError(err))
}

// countingTransport records how often the pool is released.
type countingTransport struct {
	http.RoundTripper
	closes int32
}

func (c *countingTransport) CloseIdleConnections() { atomic.AddInt32(&c.closes, 1) }

func TestCloseReleasesPoolOnce(t *testing.T) {
	rt := &countingTransport{RoundTripper: http.DefaultTransport}
	c, err := NewClient(testKey, WithHTTPTransport(rt))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(&rt.closes))

	_, err = c.Search(context.Background(), mustQuery(t, "x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestWithClosesOnErrorAndPanic(t *testing.T) {
	rt := &countingTransport{RoundTripper: http.DefaultTransport}
	opts := []Option{WithHTTPTransport(rt)}

	err := With(testKey, opts, func(*Client) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&rt.closes))

	assert.Panics(t, func() {
		With(testKey, opts, func(*Client) error { panic("boom") })
	})
	assert.Equal(t, int32(2), atomic.LoadInt32(&rt.closes))

	err = With("short", opts, func(*Client) error { return nil })
	assert.True(t, validate.IsValidationError(err))
}
