/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package httpretry provides an http.RoundTripper that transparently
// retries idempotent requests on transient failures.
package httpretry

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 100 * time.Millisecond
)

// Transport retries GET and HEAD requests on network errors and 5xx
// responses with doubling backoff. Other methods pass through untouched:
// a create or update that failed mid-flight must not be replayed blindly.
type Transport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
	clock    clockwork.Clock
}

// Option configures a Transport.
type Option func(*Transport)

// WithAttempts sets the total number of attempts (including the first).
func WithAttempts(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.attempts = n
		}
	}
}

// WithBackoff sets the delay before the first retry; it doubles per retry.
func WithBackoff(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.backoff = d
		}
	}
}

// WithClock substitutes the clock used for backoff sleeps.
func WithClock(c clockwork.Clock) Option {
	return func(t *Transport) {
		t.clock = c
	}
}

// New creates a retrying transport wrapping base. A nil base uses
// http.DefaultTransport.
func New(base http.RoundTripper, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:     base,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !idempotent(req.Method) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	log := clog.FromContext(ctx)

	var (
		resp    *http.Response
		lastErr error
	)
	delay := t.backoff

	for attempt := 1; attempt <= t.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.clock.After(delay):
			}
			delay *= 2
		}

		resp, lastErr = t.base.RoundTrip(req)
		if lastErr != nil {
			log.With("method", req.Method, "url", req.URL.Redacted(), "attempt", attempt).
				Debugf("Request failed: %v", lastErr)
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError && attempt < t.attempts {
			log.With("method", req.Method, "url", req.URL.Redacted(), "attempt", attempt, "status", resp.StatusCode).
				Debug("Server error, retrying")
			// Drain so the connection can be reused for the retry.
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			continue
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("after %d attempts: %w", t.attempts, lastErr)
	}
	// Exhausted retries on 5xx; surface the final response so callers can
	// inspect the status.
	return resp, nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
