// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"context"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go struct.
	Value *T

	// Unified is the unified CUE value, for callers that need fields the
	// Go struct does not carry.
	Unified cue.Value
}

// ParseAndDecode compiles schema, unifies data with the definition at
// schemaPath (e.g. "#Module", "#Config") and decodes the result into T.
// Errors carry the filename and the CUE path of the offending value.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return ParseAndDecodeContext[T](context.Background(), schema, data, schemaPath, opts...)
}

// ParseAndDecodeContext is ParseAndDecode with cancellation checkpoints between
// the compile, unify and decode steps. CUE evaluation itself is not
// interruptible, so callers needing a hard deadline run this in a goroutine.
func ParseAndDecodeContext[T any](ctx context.Context, schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	cctx := cuecontext.New()

	schemaValue := cctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := cctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	unified := schemaRoot.Unify(userValue)

	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}

// ReadLimited reads r to EOF but never buffers more than maxSize+1 bytes.
// A document larger than maxSize is reported the same way CheckFileSize
// reports it, without reading the remainder.
func ReadLimited(r io.Reader, maxSize int64, filename string) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", filename, err)
	}
	if err := CheckFileSize(data, maxSize, filename); err != nil {
		return nil, err
	}
	return data, nil
}
