/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

package actions

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func outputFile(t *testing.T) string {
	t.Helper()
	// The runner pre-creates the output file; Export only appends.
	path := filepath.Join(t.TempDir(), "output")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("creating output file: %v", err)
	}
	t.Setenv("GITHUB_OUTPUT", path)
	return path
}

func TestExportSingleLine(t *testing.T) {
	path := outputFile(t)

	if err := (GitHubOutput{}).Export("comment-content", "all checks passed"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "comment-content=all checks passed\n"; string(got) != want {
		t.Errorf("output file = %q, want %q", got, want)
	}
}

func TestExportMultiLine(t *testing.T) {
	path := outputFile(t)

	value := "# Report\n\n- one\n- two"
	if err := (GitHubOutput{}).Export("comment-content", value); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	re := regexp.MustCompile(`(?s)^comment-content<<(ghadelimiter_[0-9a-f]{32})\n(.*)\n(ghadelimiter_[0-9a-f]{32})\n$`)
	m := re.FindStringSubmatch(string(got))
	if m == nil {
		t.Fatalf("output file %q does not match heredoc form", got)
	}
	if m[1] != m[3] {
		t.Errorf("delimiters differ: %q vs %q", m[1], m[3])
	}
	if m[2] != value {
		t.Errorf("value = %q, want %q", m[2], value)
	}
}

func TestExportAppends(t *testing.T) {
	path := outputFile(t)

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}} {
		if err := (GitHubOutput{}).Export(kv[0], kv[1]); err != nil {
			t.Fatalf("Export(%q) error = %v", kv[0], err)
		}
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "a=1\nb=2\n"; string(got) != want {
		t.Errorf("output file = %q, want %q", got, want)
	}
}

func TestExportOutsideActionsIsNoop(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")
	if err := (GitHubOutput{}).Export("key", "value"); err != nil {
		t.Errorf("Export() outside Actions = %v, want nil", err)
	}
}

func TestExportEmptyKey(t *testing.T) {
	outputFile(t)
	if err := (GitHubOutput{}).Export("  ", "value"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestAppendStepSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITHUB_STEP_SUMMARY", path)

	gotPath, err := AppendStepSummary("# Summary")
	if err != nil {
		t.Fatalf("AppendStepSummary() error = %v", err)
	}
	if gotPath != path {
		t.Errorf("path = %q, want %q", gotPath, path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "# Summary\n"; string(got) != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestAppendStepSummaryOutsideActions(t *testing.T) {
	t.Setenv("GITHUB_STEP_SUMMARY", "")
	path, err := AppendStepSummary("# Summary")
	if err != nil {
		t.Errorf("AppendStepSummary() = %v, want nil", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
}

func TestNotifier(t *testing.T) {
	var buf strings.Builder
	n := NewNotifier(&buf)

	n.Warningf("missing %s permission", "pull-requests: write")
	n.Noticef("line one\nline two")

	want := "::warning::missing pull-requests: write permission\n" +
		"::notice::line one%0Aline two\n"
	if got := buf.String(); got != want {
		t.Errorf("notifier output = %q, want %q", got, want)
	}
}

func TestEscapeData(t *testing.T) {
	in := "50% done\r\nnext"
	if got, want := escapeData(in), "50%25 done%0D%0Anext"; got != want {
		t.Errorf("escapeData(%q) = %q, want %q", in, got, want)
	}
}
