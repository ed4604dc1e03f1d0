package transform

import (
	"context"
	"errors"

	"github.com/uascm/uascm/internal/mapper"
)

// FileError is one per-file failure collected during a pipeline run. The
// siblings of a failed file keep flowing.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Pipeline is an ordered list of stages bound to one direction, executed by
// an explicit driver loop.
type Pipeline struct {
	stages    []Transformer
	direction Direction
}

// Compose orders the configured transformers for a direction. Composing zero
// transformers yields an identity pipeline. For FromFilesystem the configured
// order is reversed: pushing undoes pulling's stage order, so decomposition
// stages that run outermost on pull run innermost on push.
func Compose(transformers []Transformer, direction Direction) (*Pipeline, error) {
	if !direction.Valid() {
		return nil, &InvalidDirectionError{Direction: direction}
	}
	stages := make([]Transformer, len(transformers))
	copy(stages, transformers)
	if direction == FromFilesystem {
		for i, j := 0, len(stages)-1; i < j; i, j = i+1, j-1 {
			stages[i], stages[j] = stages[j], stages[i]
		}
	}
	return &Pipeline{stages: stages, direction: direction}, nil
}

// Direction returns the direction the pipeline was composed for.
func (p *Pipeline) Direction() Direction { return p.direction }

// Run drives all files through every stage in order. Per-file failures are
// collected and the file dropped; a not-implemented direction aborts the run
// as a configuration error.
func (p *Pipeline) Run(ctx context.Context, files []*mapper.MappedFile) ([]*mapper.MappedFile, []FileError, error) {
	current := files
	var failed []FileError
	for _, stage := range p.stages {
		next := make([]*mapper.MappedFile, 0, len(current))
		emit := func(f *mapper.MappedFile) { next = append(next, f) }
		for _, f := range current {
			if err := ctx.Err(); err != nil {
				return nil, failed, err
			}
			var err error
			switch p.direction {
			case FromRemote:
				err = stage.TransformFromRemote(ctx, f, emit)
			case FromFilesystem:
				err = stage.TransformFromFilesystem(ctx, f, emit)
			}
			if err != nil {
				if errors.Is(err, ErrNotImplemented) {
					return nil, failed, err
				}
				failed = append(failed, FileError{Path: f.RelPath, Err: err})
			}
		}
		current = next
	}
	return current, failed, nil
}
