package sync

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uascm/uascm/internal/mapper"
	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/server"
	"github.com/uascm/uascm/internal/transform"
)

type pushItem struct {
	id      nodeid.NodeId
	file    *mapper.MappedFile
	variant *server.ReadResult
}

// Push reads the given files, runs them through the pipeline in the
// file-to-remote direction and applies the results: value writes and node
// creates first, reference edges strictly last, since an edge may point at a
// node created in the same batch.
func (e *Engine) Push(ctx context.Context, paths []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	files := make([]*mapper.MappedFile, 0, len(paths))
	for _, rel := range paths {
		rel = strings.TrimPrefix(path.Clean(rel), "/")
		content, err := util.ReadFile(e.Fs, rel)
		if err != nil {
			summary.fail(rel, err)
			continue
		}
		mtime := time.Now()
		if info, err := e.Fs.Stat(rel); err == nil {
			mtime = info.ModTime()
		}
		files = append(files, &mapper.MappedFile{
			RelPath: rel,
			Content: content,
			ModTime: mtime.Truncate(time.Second),
			Meta:    e.Mapper.Resolve(rel),
		})
	}

	transformers, err := transform.FromNames(e.Transformers, e.Fs, e.Mapper.Registry())
	if err != nil {
		return nil, err
	}
	pipe, err := transform.Compose(transformers, transform.FromFilesystem)
	if err != nil {
		return nil, err
	}
	outputs, skipped, err := pipe.Run(ctx, files)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		summary.fail(s.Path, s.Err)
		e.Log.Warn("file skipped", zap.String("file", s.Path), zap.Error(s.Err))
	}

	// Resolve outputs to node writes before touching the remote.
	var references []server.ReferenceSpec
	items := make([]pushItem, 0, len(outputs))
	for _, out := range outputs {
		id, variant, err := e.Mapper.ToNodeValue(out)
		if err != nil {
			summary.fail(out.RelPath, err)
			e.Log.Warn("file skipped", zap.String("file", out.RelPath), zap.Error(err))
			continue
		}
		items = append(items, pushItem{id: id, file: out, variant: &server.ReadResult{
			NodeId: id,
			Value:  &variant,
		}})
		references = append(references, out.References...)
	}

	// Creates and writes, bounded fan-out.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.Concurrency)
	for _, item := range items {
		item := item
		group.Go(func() error {
			if err := e.pushValue(groupCtx, item); err != nil {
				summary.fail(item.file.RelPath, err)
				e.Log.Warn("push failed", zap.String("node", item.id.String()), zap.Error(err))
			} else {
				summary.pushed(item.id)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}

	// Edges last.
	for _, ref := range references {
		if err := e.Remote.AddReference(ctx, ref); err != nil {
			summary.fail(ref.Source.String()+" -> "+ref.Target.String(), err)
		}
	}

	summary.Duration = time.Since(start)
	e.Log.Info("push finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", len(summary.Failed)),
		zap.Duration("took", summary.Duration))
	return summary, ctx.Err()
}

func (e *Engine) pushValue(ctx context.Context, item pushItem) error {
	err := e.Remote.Write(ctx, item.id, item.variant.Value)
	if err == nil {
		return nil
	}
	if !errors.Is(err, server.ErrNodeNotFound) {
		return err
	}

	spec := server.NodeSpec{
		NodeId: item.id,
		Name:   nodeName(item.id),
		Value:  item.variant.Value,
	}
	if parent, ok := item.id.Parent(); ok {
		spec.Parent = parent
	}
	if td := item.file.Meta.TypeDefinition; td != nil {
		spec.TypeDefinition = td.Id
	}
	return e.Remote.CreateNode(ctx, spec)
}

// PushFile pushes a single on-disk file and returns the node it mapped to.
// The watch coordinator uses the id for echo suppression. The pipeline may
// have combined the file into a larger logical unit, so the id comes from the
// applied write, not from the input path.
func (e *Engine) PushFile(ctx context.Context, rel string) (nodeid.NodeId, error) {
	summary, err := e.Push(ctx, []string{rel})
	if err != nil {
		return nodeid.NodeId{}, err
	}
	if len(summary.Failed) > 0 {
		return nodeid.NodeId{}, summary.Failed[0].Err
	}
	if len(summary.Pushed) > 0 {
		return summary.Pushed[0], nil
	}
	return nodeid.NodeId{}, nil
}

func nodeName(id nodeid.NodeId) string {
	text := id.Text()
	if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
		return text[idx+1:]
	}
	return text
}
