// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ads

import (
	"errors"
	"fmt"
)

// Kind classifies an APIError by cause.
type Kind string

const (
	KindAuth      Kind = "auth"
	KindRateLimit Kind = "rate_limit"
	KindTransport Kind = "transport"
	KindDecode    Kind = "decode"
	KindHTTP      Kind = "http"
)

// Sentinel errors matched by errors.Is against an *APIError of the same kind.
var (
	// ErrAuth indicates a missing or rejected API key (HTTP 401).
	ErrAuth = errors.New("ADS authentication failed")

	// ErrRateLimited indicates HTTP 429 after retries were exhausted.
	ErrRateLimited = errors.New("ADS rate limit exceeded")

	// ErrTransport indicates a connection failure, timeout, or closed client.
	ErrTransport = errors.New("network error communicating with ADS")

	// ErrDecode indicates a response body that could not be parsed.
	ErrDecode = errors.New("invalid response from ADS")

	// ErrHTTP indicates any other non-2xx response.
	ErrHTTP = errors.New("ADS API error")

	// ErrClosed is wrapped by requests made after Close.
	ErrClosed = errors.New("client is closed")
)

// APIError is returned for every network or service-layer failure. It is
// only produced after transport-level retries are exhausted.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches the sentinel error for e's kind.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimited:
		return e.Kind == KindRateLimit
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrHTTP:
		return e.Kind == KindHTTP
	}
	return false
}

// IsAPIError reports whether err is (or wraps) an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsAuthError reports whether err indicates an authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsRateLimited reports whether err indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
