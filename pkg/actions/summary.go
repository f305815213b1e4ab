/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

package actions

import (
	"fmt"
	"os"
	"strings"
)

// AppendStepSummary appends markdown to the job's step summary when the
// runner exposes one. Returns the summary file path, or "" when not
// running under Actions.
func AppendStepSummary(markdown string) (string, error) {
	path := strings.TrimSpace(os.Getenv("GITHUB_STEP_SUMMARY"))
	if path == "" {
		return "", nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if !strings.HasSuffix(markdown, "\n") {
		markdown += "\n"
	}
	if _, err := f.WriteString(markdown); err != nil {
		return "", fmt.Errorf("writing step summary: %w", err)
	}
	return path, nil
}
