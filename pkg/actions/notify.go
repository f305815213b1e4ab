/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

package actions

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Notifier emits workflow-command annotations (::warning::, ::notice::) on
// the runner's stdout so they surface in the run's annotations UI. The
// writer is injected so tests can capture what was emitted.
type Notifier struct {
	w io.Writer
}

// NewNotifier returns a Notifier writing to w; nil means os.Stdout.
func NewNotifier(w io.Writer) *Notifier {
	if w == nil {
		w = os.Stdout
	}
	return &Notifier{w: w}
}

// Warningf emits a warning annotation.
func (n *Notifier) Warningf(format string, args ...any) {
	n.command("warning", fmt.Sprintf(format, args...))
}

// Noticef emits a notice annotation.
func (n *Notifier) Noticef(format string, args ...any) {
	n.command("notice", fmt.Sprintf(format, args...))
}

func (n *Notifier) command(name, message string) {
	fmt.Fprintf(n.w, "::%s::%s\n", name, escapeData(message))
}

// escapeData applies the workflow-command data encoding so multi-line
// messages stay a single command line.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}
