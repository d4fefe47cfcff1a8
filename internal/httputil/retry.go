// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying transport used by the ADS client.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Defaults for RetryTransport.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
)

var errNoRewind = errors.New("request body cannot be replayed for retry")

// ErrTimeout is returned when an attempt makes no progress within
// RetryTransport.Timeout.
var ErrTimeout = errors.New("request timed out")

// RetryStatuses are the response codes retried by RetryTransport.
var RetryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// RetryTransport retries GET and POST requests that come back with a
// status in RetryStatuses. The delay starts at BaseDelay and doubles each
// attempt (0.5s, 1s, 2s with the defaults).
//
// After MaxRetries retries the last response is returned as-is so the
// caller can inspect the final status. Transport errors are returned
// without retrying. If the request context ends during a backoff wait the
// context error is returned.
//
// A 429 or 503 carrying Retry-After waits for the larger of that value and
// the backoff.
//
// When Timeout is set, each attempt is cancelled once it goes Timeout
// without progress: waiting for the response, or between two reads of the
// body. The resulting errors wrap ErrTimeout.
type RetryTransport struct {
	// Base performs the actual round trips; http.DefaultTransport when nil.
	Base http.RoundTripper

	// MaxRetries is the retry budget. Zero disables retries.
	MaxRetries int

	// BaseDelay is the first backoff delay.
	BaseDelay time.Duration

	// Logger receives one debug line per retry; a no-op logger when nil.
	Logger *zap.Logger

	// Timeout bounds each wait on the server. Zero disables it.
	Timeout time.Duration
}

// NewRetryTransport wraps base with the retry policy. A nil base uses a
// clone of http.DefaultTransport.
func NewRetryTransport(base http.RoundTripper, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &RetryTransport{
		Base:       base,
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		Logger:     logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return t.base().RoundTrip(req)
	}

	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		attemptReq := req
		if attempt > 0 {
			var err error
			if attemptReq, err = rewind(req); err != nil {
				return nil, err
			}
		}

		attemptReq, watch := t.watch(attemptReq)
		resp, err := t.base().RoundTrip(attemptReq)
		if err != nil {
			watch.stop()
			return nil, watch.err(err)
		}
		if watch != nil {
			resp.Body = &watchedBody{ReadCloser: resp.Body, w: watch}
		}

		if !RetryStatuses[resp.StatusCode] || attempt >= t.MaxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := Backoff(t.BaseDelay, attempt)
		if wait := RetryAfter(resp, time.Now()); wait > backoff {
			backoff = wait
		}
		t.logger().Debug("retrying request",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", t.MaxRetries),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// CloseIdleConnections releases pooled connections held by the base
// transport.
func (t *RetryTransport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if c, ok := t.base().(closeIdler); ok {
		c.CloseIdleConnections()
	}
}

// RetryAfter returns the wait requested by a 429 or 503 response's
// Retry-After header, given as seconds or an HTTP date. It returns zero
// for other statuses and for a missing or malformed header.
func RetryAfter(resp *http.Response, now time.Time) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}

// Backoff returns base * 2^attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * base
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) logger() *zap.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return zap.NewNop()
}

// rewind clones req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errNoRewind
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

// watchdog cancels one attempt after Timeout without progress.
type watchdog struct {
	idle    time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	expired atomic.Bool
}

// watch arms a watchdog on a derived request context. It returns req
// unchanged and a nil watchdog when Timeout is not set.
func (t *RetryTransport) watch(req *http.Request) (*http.Request, *watchdog) {
	if t.Timeout <= 0 {
		return req, nil
	}
	ctx, cancel := context.WithCancel(req.Context())
	w := &watchdog{idle: t.Timeout, cancel: cancel}
	w.timer = time.AfterFunc(w.idle, func() {
		w.expired.Store(true)
		cancel()
	})
	return req.WithContext(ctx), w
}

// err replaces the cancellation error of an expired attempt with ErrTimeout.
func (w *watchdog) err(err error) error {
	if w == nil || !w.expired.Load() {
		return err
	}
	return fmt.Errorf("%w: no response progress for %s", ErrTimeout, w.idle)
}

func (w *watchdog) stop() {
	if w == nil {
		return
	}
	w.timer.Stop()
	w.cancel()
}

// watchedBody restarts the watchdog after every successful read and
// releases it on Close.
type watchedBody struct {
	io.ReadCloser
	w *watchdog
}

func (b *watchedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil {
		return n, b.w.err(err)
	}
	b.w.timer.Reset(b.w.idle)
	return n, nil
}

func (b *watchedBody) Close() error {
	err := b.ReadCloser.Close()
	b.w.stop()
	return err
}
