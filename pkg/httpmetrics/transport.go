/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package httpmetrics instruments outbound GitHub API calls with
// Prometheus metrics: request counts and latencies bucketed by endpoint,
// plus gauges tracking the remaining rate-limit quota.
package httpmetrics

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mReqCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prstatus_http_client_requests_total",
			Help: "The total number of outbound HTTP requests",
		},
		[]string{"code", "method", "path"},
	)
	mReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prstatus_http_client_request_duration_seconds",
			Help:    "The duration of outbound HTTP requests",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"code", "method", "path"},
	)
)

// WrapTransport wraps an http.RoundTripper with instrumentation. A nil
// transport wraps http.DefaultTransport.
func WrapTransport(t http.RoundTripper) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	return instrumentCounter(
		instrumentDuration(
			instrumentRateLimits(t)))
}

// Coarse error labels so transport failures still land in a bounded
// label set instead of the raw error string.
func mapErrorToLabel(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no route to host"):
		return "no-route-to-host"
	case strings.Contains(msg, "i/o timeout"):
		return "io-timeout"
	case strings.Contains(msg, "TLS handshake"):
		return "tls-handshake"
	case strings.Contains(msg, "connection refused"):
		return "connection-refused"
	case strings.Contains(msg, "unexpected EOF"):
		return "unexpected-eof"
	default:
		return "unknown-error"
	}
}

func instrumentCounter(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(r)
		code := ""
		if err != nil {
			code = mapErrorToLabel(err)
		} else {
			code = fmt.Sprintf("%d", resp.StatusCode)
		}
		mReqCount.With(prometheus.Labels{
			"code":   code,
			"method": r.Method,
			"path":   bucketizePath(r.URL.Path),
		}).Inc()
		return resp, err
	}
}

func instrumentDuration(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		if err == nil {
			mReqDuration.With(prometheus.Labels{
				"code":   fmt.Sprintf("%d", resp.StatusCode),
				"method": r.Method,
				"path":   bucketizePath(r.URL.Path),
			}).Observe(time.Since(start).Seconds())
		}
		return resp, err
	}
}

var (
	mRateLimitRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prstatus_github_rate_limit_remaining",
			Help: "The number of requests remaining in the current rate limit window",
		},
		[]string{"resource"},
	)
	mRateLimit = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prstatus_github_rate_limit",
			Help: "The number of requests allowed during the rate limit window",
		},
		[]string{"resource"},
	)
	mRateLimitUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prstatus_github_rate_limit_used",
			Help: "The fraction of the rate limit window used",
		},
		[]string{"resource"},
	)
)

// instrumentRateLimits records GitHub's quota headers from every response.
// https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api
func instrumentRateLimits(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(r)
		if err != nil {
			return resp, err
		}

		resource := resp.Header.Get("X-RateLimit-Resource")
		if resource == "" {
			resource = "unknown"
		}
		val := func(key string) float64 {
			i, err := strconv.Atoi(resp.Header.Get(key))
			if err != nil {
				return 0
			}
			return float64(i)
		}

		remaining := val("X-RateLimit-Remaining")
		limit := val("X-RateLimit-Limit")
		if limit > 0 {
			mRateLimitRemaining.With(prometheus.Labels{"resource": resource}).Set(remaining)
			mRateLimit.With(prometheus.Labels{"resource": resource}).Set(limit)
			mRateLimitUsed.With(prometheus.Labels{"resource": resource}).Set((limit - remaining) / limit)
		}
		return resp, err
	}
}
