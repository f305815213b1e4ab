/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

package actions

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// GitHubOutput exports step outputs through the GITHUB_OUTPUT file.
// The zero value is ready to use.
type GitHubOutput struct{}

// Export appends key=value to the GITHUB_OUTPUT file. Multi-line values use
// the heredoc delimiter form the runner defines for them. Outside of Actions
// (no GITHUB_OUTPUT in the environment) Export is a no-op.
func (GitHubOutput) Export(key, value string) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_OUTPUT"))
	if path == "" {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("output key is empty")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	line, err := formatOutput(key, value)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing output %s: %w", key, err)
	}
	return nil
}

func formatOutput(key, value string) (string, error) {
	if !strings.ContainsAny(value, "\r\n") {
		return fmt.Sprintf("%s=%s\n", key, value), nil
	}

	delim, err := outputDelimiter(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delim, value, delim), nil
}

// outputDelimiter produces a random heredoc delimiter that does not occur
// in the value, so arbitrary report bodies cannot terminate the block early.
func outputDelimiter(value string) (string, error) {
	for range 10 {
		var buf [16]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("generating output delimiter: %w", err)
		}
		delim := "ghadelimiter_" + hex.EncodeToString(buf[:])
		if !strings.Contains(value, delim) {
			return delim, nil
		}
	}
	return "", fmt.Errorf("could not generate unique output delimiter")
}
