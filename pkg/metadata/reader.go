// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUnreadable is the sentinel wrapped by every error that prevents a module
// graph from being produced.
var ErrUnreadable = errors.New("module unreadable")

type (
	// Reader parses a compiled module into its metadata graph. Implementations
	// must never execute module code and should honor ctx for cancellation.
	Reader interface {
		Read(ctx context.Context, name string, src io.Reader) (*Module, error)
	}

	// ReaderFunc adapts a function to the Reader interface.
	ReaderFunc func(ctx context.Context, name string, src io.Reader) (*Module, error)

	// UnreadableError reports a module whose metadata could not be read.
	// It matches both ErrUnreadable and its Cause with errors.Is.
	UnreadableError struct {
		Name  string
		Cause error
	}
)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, name string, src io.Reader) (*Module, error) {
	return f(ctx, name, src)
}

// Error implements the error interface.
func (e *UnreadableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Name, ErrUnreadable)
	}
	return fmt.Sprintf("%s: %s: %v", e.Name, ErrUnreadable, e.Cause)
}

// Unwrap returns ErrUnreadable and the underlying cause.
func (e *UnreadableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUnreadable}
	}
	return []error{ErrUnreadable, e.Cause}
}

// Unreadable wraps cause as an *UnreadableError unless it already is one.
func Unreadable(name string, cause error) error {
	var ue *UnreadableError
	if errors.As(cause, &ue) {
		return cause
	}
	return &UnreadableError{Name: name, Cause: cause}
}
