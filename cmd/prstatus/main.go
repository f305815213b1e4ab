/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// prstatus posts an idempotent status-summary comment on the pull request
// the current GitHub Actions run belongs to. It reads a rendered report
// from disk, decides per policy whether to comment at all, and then
// updates the previous marker-tagged comment instead of stacking new
// ones. Comment failures never fail the run.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"

	"github.com/prstatusbot/prstatus/pkg/actions"
	"github.com/prstatusbot/prstatus/pkg/commenter"
	"github.com/prstatusbot/prstatus/pkg/ghclient"
	"github.com/prstatusbot/prstatus/pkg/policy"
)

const publicAPIURL = "https://api.github.com"

var env = envConfig{}

type envConfig struct {
	GitHubToken  string `env:"GITHUB_TOKEN, required"`
	Policy       string `env:"COMMENT_SUMMARY_IN_PR, default=on-failure"`
	ReportFile   string `env:"REPORT_FILE, required"`
	FallbackFile string `env:"FALLBACK_FILE, required"`
	RunFailed    bool   `env:"RUN_FAILED, default=false"`
	LogLevel     string `env:"LOG_LEVEL, default=info"`
	APIURL       string `env:"GITHUB_API_URL"`
}

func main() {
	ctx := context.Background()

	// Configuration problems are operator mistakes and fail loudly;
	// everything past this point is best-effort.
	if err := envconfig.Process(ctx, &env); err != nil {
		clog.Fatalf("Failed to process environment: %v", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(env.LogLevel)); err != nil {
		clog.Fatalf("Invalid LOG_LEVEL %q: %v", env.LogLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	log := clog.FromContext(ctx)

	notifier := actions.NewNotifier(os.Stdout)

	rc, err := actions.DetectRunContext(ctx)
	if err != nil {
		clog.Fatalf("Failed to detect run context: %v", err)
	}

	if !rc.IsPullRequest() {
		log.With("event", rc.EventName).Infof("Not running in a pull request context, skipping status comment")
		notifier.Warningf("Skipping the status comment: event %q is not associated with a pull request.", rc.EventName)
		return
	}

	pol := policy.Parse(env.Policy)
	if !policy.ShouldComment(pol, env.RunFailed) {
		log.With("policy", string(pol), "run_failed", env.RunFailed).
			Debugf("Policy says no status comment for this run")
		return
	}

	rendered, err := os.ReadFile(env.ReportFile)
	if err != nil {
		clog.Fatalf("Failed to read report %q: %v", env.ReportFile, err)
	}
	fallback, err := os.ReadFile(env.FallbackFile)
	if err != nil {
		clog.Fatalf("Failed to read fallback %q: %v", env.FallbackFile, err)
	}

	var opts []ghclient.Option
	if env.APIURL != "" && env.APIURL != publicAPIURL {
		opts = append(opts, ghclient.WithBaseURL(env.APIURL))
	}
	client, err := ghclient.New(env.GitHubToken, opts...)
	if err != nil {
		clog.Fatalf("Failed to build GitHub client: %v", err)
	}

	rec := commenter.NewReconciler(client, actions.GitHubOutput{}, notifier)
	rec.Reconcile(ctx, commenter.Input{
		Owner:    rc.Owner,
		Repo:     rc.Repo,
		Number:   rc.PRNumber,
		Rendered: string(rendered),
		Fallback: string(fallback),
	})

	// Best-effort mirror of the report into the job's step summary.
	if path, err := actions.AppendStepSummary(string(rendered)); err != nil {
		log.Warnf("Failed to append step summary: %v", err)
	} else if path != "" {
		log.With("path", path).Debugf("Appended report to step summary")
	}
}
