/*
Copyright 2026 The prstatus Authors
SPDX-License-Identifier: Apache-2.0
*/

package commenter

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/google/go-github/v75/github"
)

// WriteErrorKind partitions reconcile failures by how the operator should
// react to them.
type WriteErrorKind int

const (
	// KindUnknown covers failures of unrecognized shape.
	KindUnknown WriteErrorKind = iota
	// KindPermissionDenied means the token lacks permission to write
	// comments; the fix is a workflow permissions change.
	KindPermissionDenied
	// KindTransport covers API and network failures that are not
	// permission problems.
	KindTransport
)

// WriteError tags a failed read or write with the classification the
// warning emitter switches on.
type WriteError struct {
	Kind WriteErrorKind
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// classifyWriteError maps an error from the GitHub client onto a
// WriteError. 403 responses become permission denials; other API error
// responses and network-level failures are transport problems; anything
// else is unknown.
func classifyWriteError(op string, err error) *WriteError {
	we := &WriteError{Kind: KindUnknown, Op: op, Err: err}

	var ger *github.ErrorResponse
	if errors.As(err, &ger) {
		if ger.Response != nil && ger.Response.StatusCode == http.StatusForbidden {
			we.Kind = KindPermissionDenied
		} else {
			we.Kind = KindTransport
		}
		return we
	}

	var uerr *url.Error
	var nerr net.Error
	if errors.As(err, &uerr) || errors.As(err, &nerr) {
		we.Kind = KindTransport
	}
	return we
}
