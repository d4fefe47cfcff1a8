// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ads is the client for the NASA ADS search and export APIs. It
// owns the pooled HTTP session, the retry policy, request throttling, and
// the mapping of failures onto APIError kinds.
package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/httputil"
	"github.com/pdiddy/nasa-ads/internal/ratelimit"
	"github.com/pdiddy/nasa-ads/internal/validate"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

const (
	// DefaultBaseURL is the ADS API root.
	DefaultBaseURL = "https://api.adsabs.harvard.edu/v1"

	// DefaultTimeout bounds connection setup and the wait for response headers.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "nasa-ads/dev"

	searchPath = "/search/query"
	exportPath = "/export/bibtex"

	// maxErrorBody caps the response text quoted in generic HTTP errors.
	maxErrorBody = 200
)

// Client talks to the ADS API. A Client is safe for concurrent use; Close
// releases its connection pool.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	minDelay   time.Duration
	base       http.RoundTripper

	limiter    *ratelimit.Limiter
	transport  *httputil.RetryTransport
	httpClient *http.Client
	logger     *zap.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root (for testing or mirrors).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the per-request socket timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxRetries sets the retry budget for 429 and 5xx responses.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the base delay of the exponential retry backoff.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithMinDelay sets the minimum spacing between requests.
func WithMinDelay(d time.Duration) Option {
	return func(c *Client) { c.minDelay = d }
}

// WithRateLimiter shares an existing limiter, e.g. across several clients.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPTransport sets the round tripper beneath the retry layer.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger; the client logs nothing without one.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient validates apiKey and builds a client with one pooled session.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if err := validate.APIKey(apiKey); err != nil {
		return nil, err
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
		maxRetries: httputil.DefaultMaxRetries,
		backoff:    httputil.DefaultBaseDelay,
		minDelay:   ratelimit.DefaultMinDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := validate.Timeout(c.timeout); err != nil {
		return nil, err
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(c.minDelay)
	}
	if c.base == nil {
		c.base = pooledTransport(c.timeout)
	}

	c.transport = httputil.NewRetryTransport(c.base, c.maxRetries, c.backoff, c.logger)
	c.transport.Timeout = c.timeout
	c.httpClient = &http.Client{Transport: c.transport}

	c.logger.Info("ADS API client initialized",
		zap.String("base_url", c.baseURL),
		zap.Duration("timeout", c.timeout),
		zap.Int("max_retries", c.maxRetries),
	)
	return c, nil
}

// With creates a client, passes it to fn, and closes it on every exit
// path, including a panic inside fn.
func With(apiKey string, opts []Option, fn func(*Client) error) error {
	c, err := NewClient(apiKey, opts...)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// pooledTransport returns a keep-alive transport whose dial and TLS
// handshake are bounded by timeout. Waits on the response itself are
// bounded per attempt by the retry transport.
func pooledTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// Close releases the pooled connections. It runs its cleanup exactly once
// and may be called any number of times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.transport.CloseIdleConnections()
		c.logger.Debug("ADS session closed")
	})
	return nil
}

// Search runs one search request and returns the page it describes. The
// query is validated before any network activity. Documents that fail
// Paper validation are logged and skipped; the rest of the page is kept.
func (c *Client) Search(ctx context.Context, query *types.Query) (*types.Results, error) {
	if query == nil {
		return nil, &validate.ValidationError{Field: "query", Message: "query cannot be nil"}
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("searching ADS",
		zap.String("query", preview(query.Q, 50)),
		zap.Int("rows", query.Rows),
		zap.Int("start", query.Start),
	)

	reqURL := c.baseURL + searchPath + "?" + query.Params().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	results, err := parseSearchResponse(body, c.logger)
	if err != nil {
		c.logger.Error("parsing search response", zap.Error(err))
		return nil, err
	}

	c.logger.Info("retrieved papers",
		zap.Int("returned", results.ReturnedCount),
		zap.Int("start", results.Start),
		zap.Int("total", results.TotalCount),
	)
	return results, nil
}

// exportRequest is the body of the BibTeX export call.
type exportRequest struct {
	Bibcodes []string `json:"bibcodes"`
	Format   string   `json:"format"`
}

// GetBibTeX fetches BibTeX entries for bibcodes in one batch export call.
// An empty list returns an empty map without throttling or any network
// activity.
//
// Entries are attributed by substring match of each requested bibcode in
// the export text, so an entry whose text mentions another requested
// bibcode can be attributed to it.
func (c *Client) GetBibTeX(ctx context.Context, bibcodes []string) (map[string]string, error) {
	if len(bibcodes) == 0 {
		return map[string]string{}, nil
	}
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	c.logger.Debug("fetching BibTeX", zap.Int("papers", len(bibcodes)))

	payload, err := json.Marshal(exportRequest{Bibcodes: bibcodes, Format: "bibtex"})
	if err != nil {
		return nil, fmt.Errorf("encoding export request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+exportPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	entries, err := parseExportResponse(body, bibcodes)
	if err != nil {
		c.logger.Error("parsing export response", zap.Error(err))
		return nil, err
	}
	return entries, nil
}

// ready rejects calls on a closed client and applies the rate limit.
func (c *Client) ready(ctx context.Context) error {
	if c.closed.Load() {
		return &APIError{Kind: KindTransport, Message: "request not sent", Err: ErrClosed}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Kind: KindTransport, Message: "waiting for rate limiter", Err: err}
	}
	return nil
}

// do sends req with auth headers and maps the final outcome onto APIError
// kinds. It returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		return nil, &APIError{Kind: KindTransport, Message: "failed to connect to ADS API", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "reading response body", Err: err}
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		c.logger.Error("ADS request rejected",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(err.Kind)),
		)
		return nil, err
	}
	return body, nil
}

// checkStatus maps a final response status onto an APIError, or nil for 2xx.
func checkStatus(status int, body []byte) *APIError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return &APIError{Kind: KindRateLimit, StatusCode: status, Message: "rate limit exceeded, please try again later"}
	case status == http.StatusUnauthorized:
		return &APIError{Kind: KindAuth, StatusCode: status, Message: "invalid API key"}
	default:
		msg := "API request failed"
		if text := strings.TrimSpace(string(body)); text != "" {
			msg += ": " + preview(text, maxErrorBody)
		}
		return &APIError{Kind: KindHTTP, StatusCode: status, Message: msg}
	}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
