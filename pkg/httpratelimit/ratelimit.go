/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package httpratelimit provides an http.RoundTripper that pauses and
// replays requests when GitHub signals a primary or secondary rate limit.
package httpratelimit

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// GitHub rate limit headers, in Go canonical form.
// https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api
const (
	// HeaderRetryAfter is the number of seconds to wait before retrying.
	HeaderRetryAfter = "Retry-After"
	// HeaderXRateLimitReset is when the current window resets, in UTC epoch seconds.
	HeaderXRateLimitReset = "X-Ratelimit-Reset"
	// HeaderXRateLimitRemaining is the number of requests left in the current window.
	HeaderXRateLimitRemaining = "X-Ratelimit-Remaining"
)

var (
	mPauses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prstatus_ratelimit_pauses_total",
		Help: "Number of times GitHub rate limiting paused outbound requests.",
	}, []string{"code", "reason"})

	mPauseSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prstatus_ratelimit_pause_duration_seconds",
		Help:    "How long requests were paused waiting for a rate limit window.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// Transport throttles GitHub API requests. When a response carries a
// 403/429 with rate-limit headers, all in-flight callers pause until the
// window reopens and the triggering request is replayed.
type Transport struct {
	base         http.RoundTripper
	limiter      *limiter
	defaultPause time.Duration
}

// NewTransport wraps base with rate-limit handling. defaultPause is used
// when GitHub rate-limits us without saying for how long; zero means one
// minute. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper, defaultPause time.Duration) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if defaultPause == 0 {
		defaultPause = time.Minute
	}
	return &Transport{
		base: base,
		limiter: &limiter{
			base: rate.NewLimiter(rate.Inf, 100),
		},
		defaultPause: defaultPause,
	}
}

// RoundTrip implements http.RoundTripper.
func (rt *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if err := rt.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if rt.pauseIfLimited(ctx, resp) {
		// The triggering response is spent; replay the request once the
		// pause lifts.
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		return rt.RoundTrip(req)
	}
	return resp, nil
}

// pauseIfLimited inspects resp for rate-limit signals and pauses the
// limiter accordingly. It reports whether the request should be replayed.
// A 403 without rate-limit headers is a permission denial, not a limit,
// and passes through to the caller.
func (rt *Transport) pauseIfLimited(ctx context.Context, resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden &&
		resp.StatusCode != http.StatusTooManyRequests {
		return false
	}

	log := clog.FromContext(ctx)
	code := strconv.Itoa(resp.StatusCode)

	// Secondary limits send Retry-After directly.
	if v := resp.Header.Get(HeaderRetryAfter); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			log.Warnf("Unparseable %s header %q: %v", HeaderRetryAfter, v, err)
		} else if seconds > 0 {
			d := time.Duration(seconds) * time.Second
			log.With("retry_after", d).Warn("GitHub rate limit hit, pausing requests")
			rt.pause(code, "retry-after", d)
			return true
		}
	}

	// Primary limits zero out the remaining quota and give a reset time.
	if resp.Header.Get(HeaderXRateLimitRemaining) == "0" {
		if v := resp.Header.Get(HeaderXRateLimitReset); v != "" {
			epoch, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				log.Warnf("Unparseable %s header %q: %v", HeaderXRateLimitReset, v, err)
			} else if d := time.Until(time.Unix(epoch, 0)); d > 0 {
				log.With("reset_at", time.Unix(epoch, 0), "retry_after", d).
					Warn("GitHub rate limit exhausted, pausing until reset")
				rt.pause(code, "reset", d)
				return true
			}
		}
	}

	// 429 is always a rate limit even without usable headers.
	if resp.StatusCode == http.StatusTooManyRequests {
		log.With("retry_after", rt.defaultPause).
			Warn("GitHub rate limit hit without headers, using default pause")
		rt.pause(code, "default", rt.defaultPause)
		return true
	}
	return false
}

func (rt *Transport) pause(code, reason string, d time.Duration) {
	mPauses.WithLabelValues(code, reason).Inc()
	mPauseSeconds.Observe(d.Seconds())
	rt.limiter.PauseFor(d)
}

// limiter is a rate limiter that can additionally be paused outright,
// blocking every waiter until the pause expires.
type limiter struct {
	base       *rate.Limiter
	mu         sync.Mutex
	pauseUntil time.Time
	pauseCh    chan struct{}
}

// Wait blocks while a pause is active, then defers to the base limiter.
func (l *limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	ch := l.pauseCh
	l.mu.Unlock()

	if ch != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
	return l.base.Wait(ctx)
}

// PauseFor blocks all requests for d. Overlapping pauses keep the latest
// deadline; a shorter pause never truncates a longer one already active.
func (l *limiter) PauseFor(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until := time.Now().Add(d)
	if !until.After(l.pauseUntil) {
		return
	}
	l.pauseUntil = until

	if l.pauseCh != nil {
		close(l.pauseCh)
	}
	ch := make(chan struct{})
	l.pauseCh = ch

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		<-timer.C

		l.mu.Lock()
		if ch == l.pauseCh {
			close(ch)
			l.pauseCh = nil
			l.pauseUntil = time.Time{}
		}
		l.mu.Unlock()
	}()
}
