/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package ghclient builds the authenticated GitHub client the rest of
// the tool talks through. The transport stack layers, outermost first:
// metrics, oauth2, retry, rate-limit handling. Auth sits above retry so
// replayed requests keep their credentials.
package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"github.com/prstatusbot/prstatus/pkg/httpmetrics"
	"github.com/prstatusbot/prstatus/pkg/httpratelimit"
	"github.com/prstatusbot/prstatus/pkg/httpretry"
)

// Client is a thin wrapper implementing the issue-comment surface the
// reconciler needs.
type Client struct {
	gh *github.Client
}

type options struct {
	baseURL   string
	transport http.RoundTripper
}

// Option configures client construction.
type Option func(*options)

// WithBaseURL points the client at a different API root, e.g. a GitHub
// Enterprise instance (GITHUB_API_URL) or a test server. The value must
// be the full REST root.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTransport substitutes the innermost transport, below the retry and
// rate-limit layers.
func WithTransport(t http.RoundTripper) Option {
	return func(o *options) { o.transport = t }
}

// New constructs a Client authenticating with the given token.
func New(token string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	base := o.transport
	if base == nil {
		base = http.DefaultTransport
	}

	hc := &http.Client{
		Transport: httpmetrics.WrapTransport(&oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   httpretry.New(httpratelimit.NewTransport(base, time.Minute)),
		}),
	}

	gh := github.NewClient(hc)
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing API base URL %q: %w", o.baseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh}, nil
}

// ListComments lists issue comments on the PR in the API's default order.
func (c *Client) ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error) {
	return c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
}

// EditComment replaces the body of an existing comment.
func (c *Client) EditComment(ctx context.Context, owner, repo string, id int64, body string) (*github.IssueComment, *github.Response, error) {
	return c.gh.Issues.EditComment(ctx, owner, repo, id, &github.IssueComment{Body: github.Ptr(body)})
}

// CreateComment posts a new comment on the PR.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*github.IssueComment, *github.Response, error) {
	return c.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: github.Ptr(body)})
}
