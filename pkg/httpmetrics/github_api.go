/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

package httpmetrics

import "regexp"

type pathPattern struct {
	pattern *regexp.Regexp
	bucket  string
}

// The GitHub REST endpoints this tool touches. Anything else lands in
// "other" so the path label stays bounded.
// https://docs.github.com/en/rest
var githubAPIPatterns = []pathPattern{{
	// https://docs.github.com/en/rest/issues/comments#list-issue-comments
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+/comments$`),
	bucket:  "/repos/{org}/{repo}/issues/{number}/comments",
}, {
	// https://docs.github.com/en/rest/issues/comments#update-an-issue-comment
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/comments/\d+$`),
	bucket:  "/repos/{org}/{repo}/issues/comments/{id}",
}, {
	// https://docs.github.com/en/rest/issues/issues#get-an-issue
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+$`),
	bucket:  "/repos/{org}/{repo}/issues/{number}",
}, {
	// https://docs.github.com/en/rest/pulls/pulls#get-a-pull-request
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/pulls/\d+$`),
	bucket:  "/repos/{org}/{repo}/pulls/{number}",
}, {
	// https://docs.github.com/en/rest/repos/repos#get-a-repository
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+$`),
	bucket:  "/repos/{org}/{repo}",
}, {
	// https://docs.github.com/en/rest/rate-limit/rate-limit#get-rate-limit-status-for-the-authenticated-user
	pattern: regexp.MustCompile(`^/rate_limit$`),
	bucket:  "/rate_limit",
}}

func bucketizePath(path string) string {
	for _, p := range githubAPIPatterns {
		if p.pattern.MatchString(path) {
			return p.bucket
		}
	}
	return "other"
}
