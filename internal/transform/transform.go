// Package transform implements the directional pipeline that rewrites mapped
// files between their on-remote and on-filesystem representations.
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/uascm/uascm/internal/mapper"
)

// Direction selects which way a pipeline run converts files. It is fixed for
// the lifetime of a run.
type Direction int

const (
	FromRemote Direction = iota
	FromFilesystem
)

func (d Direction) Valid() bool {
	return d == FromRemote || d == FromFilesystem
}

func (d Direction) String() string {
	switch d {
	case FromRemote:
		return "FromRemote"
	case FromFilesystem:
		return "FromFilesystem"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// InvalidDirectionError is a configuration error; the pipeline cannot run.
type InvalidDirectionError struct {
	Direction Direction
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("invalid transform direction %s", e.Direction)
}

// Emit hands a produced file to the next pipeline stage. A stage may emit
// zero, one, or many files per input.
type Emit func(*mapper.MappedFile)

// Transformer is one pipeline stage. A stage receiving a file outside its
// capability set must emit it untouched; a direction it does not implement at
// all is a configuration error.
type Transformer interface {
	Name() string
	TransformFromRemote(ctx context.Context, f *mapper.MappedFile, emit Emit) error
	TransformFromFilesystem(ctx context.Context, f *mapper.MappedFile, emit Emit) error
}

// ErrNotImplemented marks a transformer invoked in a direction it does not
// override. This aborts the whole run: the pipeline is misconfigured.
var ErrNotImplemented = errors.New("transform direction not implemented")

// Base provides the not-implemented defaults concrete transformers embed.
type Base struct {
	name string
}

// NewBase names a transformer.
func NewBase(name string) Base {
	return Base{name: name}
}

func (b Base) Name() string { return b.name }

func (b Base) TransformFromRemote(context.Context, *mapper.MappedFile, Emit) error {
	return fmt.Errorf("%s from remote: %w", b.name, ErrNotImplemented)
}

func (b Base) TransformFromFilesystem(context.Context, *mapper.MappedFile, Emit) error {
	return fmt.Errorf("%s from filesystem: %w", b.name, ErrNotImplemented)
}

// FormatDecodeError reports content a format transformer could not parse.
// It is fatal only to the file being processed.
type FormatDecodeError struct {
	Path string
	Err  error
}

func (e *FormatDecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *FormatDecodeError) Unwrap() error { return e.Err }

// FormatEncodeError reports content a format transformer could not serialize.
// It is fatal only to the file being processed.
type FormatEncodeError struct {
	Path string
	Err  error
}

func (e *FormatEncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *FormatEncodeError) Unwrap() error { return e.Err }
