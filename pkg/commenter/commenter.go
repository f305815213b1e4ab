/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package commenter keeps exactly one marker-tagged status comment on a
// pull request: it scans the paginated comment list for the sentinel,
// then updates the match or creates a fresh comment. Failures never
// propagate; they terminate in operator-facing warnings.
package commenter

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
)

const (
	// Marker is the sentinel embedded in every managed comment; it is an
	// HTML comment, so it never renders for readers.
	Marker = "<!-- prstatus:summary -->"

	// MaxCommentLength is GitHub's documented ceiling on issue comment
	// bodies.
	MaxCommentLength = 65536

	// OutputKey is the GITHUB_OUTPUT key carrying the rendered body.
	OutputKey = "comment-content"

	perPage = 100

	// Safety valve: a PR with more comments than this is pathological,
	// and an unbounded scan would burn the whole API quota.
	maxPages = 1000
)

// API is the slice of the GitHub issues surface the reconciler consumes.
// pkg/ghclient provides the production implementation; tests substitute
// fakes.
type API interface {
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
	EditComment(ctx context.Context, owner, repo string, id int64, body string) (*github.IssueComment, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) (*github.IssueComment, *github.Response, error)
}

// Exporter publishes a key/value pair on the run's output side-channel.
type Exporter interface {
	Export(key, value string) error
}

// Notifier surfaces operator-facing warnings (workflow annotations).
type Notifier interface {
	Warningf(format string, args ...any)
}

// Input is everything one reconcile pass needs.
type Input struct {
	Owner  string
	Repo   string
	Number int

	// Rendered is the full report body; Fallback replaces it when the
	// composed comment would exceed MaxCommentLength. The fallback is
	// assumed to fit under the ceiling.
	Rendered string
	Fallback string
}

// ComposeBody appends the marker to the rendered body, substituting the
// fallback when the result would not fit in a comment. The substitution
// happens before any network call; there is no reliance on server-side
// truncation.
func ComposeBody(rendered, fallback string) string {
	body := rendered + "\n\n" + Marker
	if len(body) >= MaxCommentLength {
		body = fallback + "\n\n" + Marker
	}
	return body
}

// FindByMarker scans the PR's comments in the API's listing order and
// returns the id of the first comment containing Marker. Pagination
// short-circuits on the first match; comments without a body are skipped.
func FindByMarker(ctx context.Context, api API, owner, repo string, number int) (int64, bool, error) {
	opt := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	for page := 0; page < maxPages; page++ {
		comments, resp, err := api.ListComments(ctx, owner, repo, number, opt)
		if err != nil {
			return 0, false, fmt.Errorf("listing comments for %s/%s#%d: %w", owner, repo, number, err)
		}
		for _, c := range comments {
			if c.Body == nil {
				continue
			}
			if strings.Contains(c.GetBody(), Marker) {
				return c.GetID(), true, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return 0, false, nil
		}
		opt.Page = resp.NextPage
	}
	clog.FromContext(ctx).Warnf("Giving up comment scan on %s/%s#%d after %d pages", owner, repo, number, maxPages)
	return 0, false, nil
}

// Reconciler performs the update-or-create pass against an injected API.
type Reconciler struct {
	api      API
	exporter Exporter
	notifier Notifier
}

// NewReconciler constructs a Reconciler. exporter and notifier may be nil,
// in which case output export is skipped and warnings only go to the log.
func NewReconciler(api API, exporter Exporter, notifier Notifier) *Reconciler {
	return &Reconciler{api: api, exporter: exporter, notifier: notifier}
}

// Reconcile ensures the PR carries exactly one up-to-date status comment.
// It never returns an error: every failure ends in a warning, because a
// broken comment integration must not fail the run it reports on.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) {
	log := clog.FromContext(ctx).With("repo", in.Owner+"/"+in.Repo, "pr", in.Number)

	// The side-channel always carries the full rendered body, even when
	// the comment itself falls back, and is written before any network
	// call so downstream steps see it regardless of API health.
	r.export(ctx, in.Rendered)

	body := ComposeBody(in.Rendered, in.Fallback)
	if len(in.Rendered)+len("\n\n")+len(Marker) >= MaxCommentLength {
		log.With("rendered_length", len(in.Rendered)).
			Infof("Rendered body exceeds the comment ceiling, posting fallback")
	}

	id, found, err := FindByMarker(ctx, r.api, in.Owner, in.Repo, in.Number)
	if err != nil {
		r.warn(ctx, classifyWriteError("locating status comment", err))
		return
	}

	if found {
		if _, _, err := r.api.EditComment(ctx, in.Owner, in.Repo, id, body); err != nil {
			r.warn(ctx, classifyWriteError("updating status comment", err))
			return
		}
		log.With("comment_id", id).Infof("Updated status comment")
		return
	}

	if _, _, err := r.api.CreateComment(ctx, in.Owner, in.Repo, in.Number, body); err != nil {
		r.warn(ctx, classifyWriteError("creating status comment", err))
		return
	}
	log.Infof("Created status comment")
}

func (r *Reconciler) export(ctx context.Context, rendered string) {
	if r.exporter == nil {
		return
	}
	if err := r.exporter.Export(OutputKey, rendered); err != nil {
		clog.FromContext(ctx).Warnf("Failed to export %s: %v", OutputKey, err)
	}
}

// warn routes a classified failure to the log and, when a notifier is
// wired, to the run's annotations. The switch is exhaustive over
// WriteErrorKind.
func (r *Reconciler) warn(ctx context.Context, werr *WriteError) {
	var msg string
	switch werr.Kind {
	case KindPermissionDenied:
		msg = fmt.Sprintf("Could not post the status comment: %v. Grant the workflow the `pull-requests: write` permission to let it comment on pull requests.", werr.Err)
	case KindTransport:
		msg = fmt.Sprintf("Could not post the status comment: %v", werr)
	case KindUnknown:
		msg = fmt.Sprintf("Unexpected fatal error while posting the status comment: %v", werr)
	default:
		msg = fmt.Sprintf("Unexpected fatal error while posting the status comment: %v", werr)
	}

	clog.FromContext(ctx).Warnf("%s", msg)
	if r.notifier != nil {
		r.notifier.Warningf("%s", msg)
	}
}
