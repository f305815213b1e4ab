/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package actions integrates with the GitHub Actions runner environment:
// detecting the run context, exporting step outputs, appending to the job
// summary, and emitting workflow-command annotations.
package actions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
)

// RunContext describes the workflow run this process executes inside.
type RunContext struct {
	// Owner is the repository owner (organization or user).
	Owner string

	// Repo is the repository name.
	Repo string

	// EventName is the triggering event, e.g. "pull_request".
	EventName string

	// PRNumber is the pull request number, or 0 when the run is not
	// attached to a pull request.
	PRNumber int
}

// IsPullRequest reports whether the run is attached to a pull request.
func (rc *RunContext) IsPullRequest() bool {
	return rc.PRNumber > 0
}

// String returns owner/repo#number for log lines.
func (rc *RunContext) String() string {
	if rc.IsPullRequest() {
		return fmt.Sprintf("%s/%s#%d", rc.Owner, rc.Repo, rc.PRNumber)
	}
	return fmt.Sprintf("%s/%s", rc.Owner, rc.Repo)
}

// DetectRunContext builds a RunContext from the environment the Actions
// runner provides. A run that is not attached to a pull request (push,
// schedule, manual dispatch) yields a context with PRNumber 0 rather than
// an error: skipping is a policy decision, not a failure.
func DetectRunContext(ctx context.Context) (*RunContext, error) {
	log := clog.FromContext(ctx)

	slug := os.Getenv("GITHUB_REPOSITORY")
	if slug == "" {
		return nil, fmt.Errorf("GITHUB_REPOSITORY is not set")
	}
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid GITHUB_REPOSITORY %q, expected owner/repo", slug)
	}

	rc := &RunContext{
		Owner:     owner,
		Repo:      repo,
		EventName: os.Getenv("GITHUB_EVENT_NAME"),
	}

	rc.PRNumber = pullRequestNumber(ctx, rc.EventName)
	log.With("repo", slug, "event", rc.EventName, "pr", rc.PRNumber).
		Debug("Detected workflow run context")
	return rc, nil
}

// pullRequestNumber extracts the PR number from the event payload file.
// Payloads that are missing, unreadable, or not PR-shaped yield 0.
func pullRequestNumber(ctx context.Context, eventName string) int {
	log := clog.FromContext(ctx)

	path := os.Getenv("GITHUB_EVENT_PATH")
	if eventName == "" || path == "" {
		return 0
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("Failed to read event payload %s: %v", path, err)
		return 0
	}

	event, err := github.ParseWebHook(eventName, payload)
	if err != nil {
		log.Warnf("Failed to parse %s event payload: %v", eventName, err)
		return 0
	}

	switch e := event.(type) {
	case *github.PullRequestEvent:
		return e.GetPullRequest().GetNumber()
	case *github.PullRequestTargetEvent:
		return e.GetPullRequest().GetNumber()
	case *github.PullRequestReviewEvent:
		return e.GetPullRequest().GetNumber()
	case *github.IssueCommentEvent:
		if e.GetIssue().IsPullRequest() {
			return e.GetIssue().GetNumber()
		}
		return 0
	default:
		return 0
	}
}
