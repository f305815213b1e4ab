/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package policy decides whether a summary comment should be posted for
// the current run.
package policy

import "strings"

// Policy controls when a pull-request summary comment is posted.
type Policy string

const (
	// Always posts a comment on every run.
	Always Policy = "always"

	// OnFailure posts a comment only when the run has recorded a failure.
	OnFailure Policy = "on-failure"
)

// Parse normalizes a configured policy value. Unrecognized values are
// returned as-is; ShouldComment treats them as "never".
func Parse(value string) Policy {
	return Policy(strings.ToLower(strings.TrimSpace(value)))
}

// ShouldComment reports whether a comment should be posted under the given
// policy and run outcome. Whether the run is attached to a pull request at
// all is a separate check owned by the caller, since that skip carries an
// operator-facing warning while a policy mismatch is silent.
func ShouldComment(p Policy, runFailed bool) bool {
	switch p {
	case Always:
		return true
	case OnFailure:
		return runFailed
	default:
		return false
	}
}
