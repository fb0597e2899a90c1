// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/modgate/modgate/internal/issue"
	"github.com/modgate/modgate/pkg/scanner"
)

const (
	// ExitRejected is returned when at least one file failed admission.
	ExitRejected = 1
)

// ExitError signals a non-zero exit code without calling os.Exit in RunE
// handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// newRejectedError reports rejected files with exit code ExitRejected. The
// cause links the unreadable-module guidance when any file could not be read
// and the policy guidance otherwise.
func newRejectedError(operation string, rejected []scanner.Verdict, total int) *ExitError {
	id := issue.PolicyViolationId
	suggestion := "Run 'modgate policy' to inspect the effective denylist"
	for _, v := range rejected {
		if v.Unreadable() {
			id = issue.UnreadableModuleId
			suggestion = "Check that every rejected file is a complete module image"
			break
		}
	}
	err := issue.NewErrorContext().
		WithOperation(operation).
		WithSuggestion(suggestion).
		WithIssue(id).
		Wrap(fmt.Errorf("%d of %d files rejected", len(rejected), total)).
		BuildError()
	return &ExitError{Code: ExitRejected, Err: err}
}
