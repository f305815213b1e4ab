/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

package httpretry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// scriptedRT returns canned outcomes in order.
type scriptedRT struct {
	outcomes []outcome
	calls    int
}

type outcome struct {
	status int
	err    error
}

func (s *scriptedRT) RoundTrip(*http.Request) (*http.Response, error) {
	if s.calls >= len(s.outcomes) {
		return nil, fmt.Errorf("unexpected call %d", s.calls)
	}
	o := s.outcomes[s.calls]
	s.calls++
	if o.err != nil {
		return nil, o.err
	}
	return &http.Response{
		StatusCode: o.status,
		Body:       io.NopCloser(strings.NewReader("body")),
		Header:     make(http.Header),
	}, nil
}

func newRequest(t *testing.T, method string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, "https://api.github.com/repos/o/r/issues/1/comments", nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestRoundTripRetries(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		outcomes   []outcome
		wantCalls  int
		wantStatus int
		wantErr    bool
	}{
		{
			name:       "success first try",
			method:     http.MethodGet,
			outcomes:   []outcome{{status: 200}},
			wantCalls:  1,
			wantStatus: 200,
		},
		{
			name:       "network error then success",
			method:     http.MethodGet,
			outcomes:   []outcome{{err: errors.New("connection reset")}, {status: 200}},
			wantCalls:  2,
			wantStatus: 200,
		},
		{
			name:       "5xx then success",
			method:     http.MethodGet,
			outcomes:   []outcome{{status: 502}, {status: 200}},
			wantCalls:  2,
			wantStatus: 200,
		},
		{
			name:      "network errors exhaust attempts",
			method:    http.MethodGet,
			outcomes:  []outcome{{err: errors.New("boom")}, {err: errors.New("boom")}, {err: errors.New("boom")}},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:       "5xx exhausts attempts, final response surfaced",
			method:     http.MethodGet,
			outcomes:   []outcome{{status: 503}, {status: 503}, {status: 503}},
			wantCalls:  3,
			wantStatus: 503,
		},
		{
			name:       "4xx is not retried",
			method:     http.MethodGet,
			outcomes:   []outcome{{status: 404}},
			wantCalls:  1,
			wantStatus: 404,
		},
		{
			name:      "POST is never retried",
			method:    http.MethodPost,
			outcomes:  []outcome{{err: errors.New("connection reset")}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:       "POST 5xx passes through",
			method:     http.MethodPost,
			outcomes:   []outcome{{status: 500}},
			wantCalls:  1,
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &scriptedRT{outcomes: tt.outcomes}
			rt := New(stub, WithBackoff(time.Nanosecond))

			resp, err := rt.RoundTrip(newRequest(t, tt.method))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Fatalf("RoundTrip() error = %v", err)
				}
				if resp.StatusCode != tt.wantStatus {
					t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
				}
			}
			if stub.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", stub.calls, tt.wantCalls)
			}
		})
	}
}

func TestRoundTripBackoffDoubles(t *testing.T) {
	fc := clockwork.NewFakeClock()
	stub := &scriptedRT{outcomes: []outcome{{status: 500}, {status: 500}, {status: 200}}}
	rt := New(stub, WithClock(fc), WithBackoff(100*time.Millisecond))

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := rt.RoundTrip(newRequest(t, http.MethodGet))
		done <- result{resp, err}
	}()

	// First retry waits the base backoff, the second waits double.
	fc.BlockUntil(1)
	fc.Advance(100 * time.Millisecond)
	fc.BlockUntil(1)
	fc.Advance(200 * time.Millisecond)

	res := <-done
	if res.err != nil {
		t.Fatalf("RoundTrip() error = %v", res.err)
	}
	if res.resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", res.resp.StatusCode)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want 3", stub.calls)
	}
}

func TestRoundTripContextCancelled(t *testing.T) {
	fc := clockwork.NewFakeClock()
	stub := &scriptedRT{outcomes: []outcome{{status: 500}, {status: 200}}}
	rt := New(stub, WithClock(fc), WithBackoff(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	req := newRequest(t, http.MethodGet).WithContext(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := rt.RoundTrip(req)
		done <- err
	}()

	fc.BlockUntil(1)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
}
