package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/uascm/uascm/internal/mapper"
	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/server"
	"github.com/uascm/uascm/internal/transform"
)

// Pull browses the subtrees below the given nodes, maps every value-carrying
// node through the pipeline in the remote-to-file direction and writes the
// resulting files. Per-node failures are collected; the batch keeps going.
func (e *Engine) Pull(ctx context.Context, roots []nodeid.NodeId) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	transformers, err := transform.FromNames(e.Transformers, e.Fs, e.Mapper.Registry())
	if err != nil {
		return nil, err
	}
	pipe, err := transform.Compose(transformers, transform.FromRemote)
	if err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(int64(e.Concurrency))
	var wg sync.WaitGroup
	var processed atomic.Int64
	var pipeMu sync.Mutex

	var visit func(id nodeid.NodeId, hasValue bool)
	visit = func(id nodeid.NodeId, hasValue bool) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				summary.fail(id.String(), err)
				return
			}

			if hasValue {
				if err := e.pullNode(ctx, pipe, &pipeMu, id); err != nil {
					summary.fail(id.String(), err)
					e.Log.Warn("node skipped", zap.String("node", id.String()), zap.Error(err))
				} else {
					summary.succeed()
					if n := processed.Add(1); n%50 == 0 {
						e.Log.Info("pulling",
							zap.Int64("nodes", n),
							zap.Float64("per_second", float64(n)/time.Since(start).Seconds()))
					}
				}
			}

			refs, err := server.Retry(ctx, e.Retry, func() ([]server.ReferenceDescriptor, error) {
				return e.Remote.Browse(ctx, id)
			})
			sem.Release(1)
			if err != nil {
				summary.fail(id.String(), err)
				return
			}
			for _, ref := range refs {
				if !ref.IsForward {
					continue
				}
				visit(ref.NodeId, ref.HasValue)
			}
		}()
	}

	for _, root := range roots {
		visit(root, true)
	}
	wg.Wait()

	summary.Duration = time.Since(start)
	e.Log.Info("pull finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", len(summary.Failed)),
		zap.Duration("took", summary.Duration))
	return summary, ctx.Err()
}

// PullNode pulls exactly one node without descending into its subtree. The
// watch coordinator uses it to apply a single remote change.
func (e *Engine) PullNode(ctx context.Context, id nodeid.NodeId) error {
	transformers, err := transform.FromNames(e.Transformers, e.Fs, e.Mapper.Registry())
	if err != nil {
		return err
	}
	pipe, err := transform.Compose(transformers, transform.FromRemote)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	return e.pullNode(ctx, pipe, &mu, id)
}

func (e *Engine) pullNode(ctx context.Context, pipe *transform.Pipeline, pipeMu *sync.Mutex, id nodeid.NodeId) error {
	rr, err := server.Retry(ctx, e.Retry, func() (server.ReadResult, error) {
		return e.Remote.Read(ctx, id)
	})
	if err != nil {
		return err
	}
	if rr.Value == nil {
		// Browse-only node, nothing to store.
		return nil
	}

	file, err := e.Mapper.FromReadResult(rr)
	if err != nil {
		return err
	}

	pipeMu.Lock()
	outputs, skipped, err := pipe.Run(ctx, []*mapper.MappedFile{file})
	pipeMu.Unlock()
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		return skipped[0]
	}
	for _, out := range outputs {
		if err := e.writeFile(out.RelPath, out.Content); err != nil {
			return err
		}
	}
	return nil
}
