package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uascm/uascm/internal/mapper"
)

// tagStage appends its tag to every file's path so stage order is observable.
type tagStage struct {
	Base
	tag string
}

func newTagStage(tag string) *tagStage {
	return &tagStage{Base: NewBase(tag), tag: tag}
}

func (s *tagStage) TransformFromRemote(_ context.Context, f *mapper.MappedFile, emit Emit) error {
	f.RelPath += "." + s.tag
	emit(f)
	return nil
}

func (s *tagStage) TransformFromFilesystem(_ context.Context, f *mapper.MappedFile, emit Emit) error {
	f.RelPath += "." + s.tag
	emit(f)
	return nil
}

// failStage fails files whose path matches and passes the rest through.
type failStage struct {
	Base
	match string
}

func (s *failStage) TransformFromRemote(_ context.Context, f *mapper.MappedFile, emit Emit) error {
	if f.RelPath == s.match {
		return errors.New("boom")
	}
	emit(f)
	return nil
}

func (s *failStage) TransformFromFilesystem(ctx context.Context, f *mapper.MappedFile, emit Emit) error {
	return s.TransformFromRemote(ctx, f, emit)
}

func TestCompose_InvalidDirection(t *testing.T) {
	_, err := Compose(nil, Direction(7))
	var invalid *InvalidDirectionError
	require.True(t, errors.As(err, &invalid))
}

func TestRun_EmptyPipelineIsIdentity(t *testing.T) {
	p, err := Compose(nil, FromRemote)
	require.NoError(t, err)

	in := []*mapper.MappedFile{{RelPath: "a"}, {RelPath: "b"}}
	out, failed, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, in, out)
}

func TestRun_StageOrderPerDirection(t *testing.T) {
	stages := []Transformer{newTagStage("a"), newTagStage("b")}

	p, err := Compose(stages, FromRemote)
	require.NoError(t, err)
	out, _, err := p.Run(context.Background(), []*mapper.MappedFile{{RelPath: "f"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "f.a.b", out[0].RelPath)

	p, err = Compose(stages, FromFilesystem)
	require.NoError(t, err)
	out, _, err = p.Run(context.Background(), []*mapper.MappedFile{{RelPath: "f"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "f.b.a", out[0].RelPath)
}

func TestRun_CollectsPerFileErrorsAndDropsFailures(t *testing.T) {
	stages := []Transformer{&failStage{Base: NewBase("fail"), match: "bad"}}
	p, err := Compose(stages, FromRemote)
	require.NoError(t, err)

	out, failed, err := p.Run(context.Background(), []*mapper.MappedFile{
		{RelPath: "good"}, {RelPath: "bad"}, {RelPath: "other"},
	})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].Path)
	require.Len(t, out, 2)
	assert.Equal(t, "good", out[0].RelPath)
	assert.Equal(t, "other", out[1].RelPath)
}

func TestRun_NotImplementedAbortsRun(t *testing.T) {
	// Base implements neither direction; invoking it is a configuration
	// error, not a per-file one.
	base := NewBase("bare")
	p, err := Compose([]Transformer{base}, FromRemote)
	require.NoError(t, err)

	_, _, err = p.Run(context.Background(), []*mapper.MappedFile{{RelPath: "f"}})
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := Compose([]Transformer{newTagStage("a")}, FromRemote)
	require.NoError(t, err)
	_, _, err = p.Run(ctx, []*mapper.MappedFile{{RelPath: "f"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFromNames_UnknownTransformer(t *testing.T) {
	_, err := FromNames([]string{"display", "nope"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
