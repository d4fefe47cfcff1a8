// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit spaces outgoing requests by a minimum delay.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinDelay is the spacing used by the ADS client unless overridden.
const DefaultMinDelay = 100 * time.Millisecond

// Limiter enforces a minimum delay between successive Wait calls. It has
// no burst capacity and never rejects a caller; the sleep is the only
// backpressure. Safe for concurrent use.
type Limiter struct {
	minDelay time.Duration
	limiter  *rate.Limiter
}

// New returns a Limiter spacing calls by minDelay. A non-positive delay
// disables throttling.
func New(minDelay time.Duration) *Limiter {
	l := &Limiter{minDelay: minDelay}
	if minDelay <= 0 {
		l.limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		l.limiter = rate.NewLimiter(rate.Every(minDelay), 1)
	}
	return l
}

// MinDelay returns the configured spacing.
func (l *Limiter) MinDelay() time.Duration { return l.minDelay }

// Wait blocks until at least MinDelay has passed since the previous Wait.
// The first call returns immediately. If ctx ends first, ctx.Err() is
// returned.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r := l.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
