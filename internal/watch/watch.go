// Package watch runs the filesystem and remote-subscription watchers
// concurrently and arbitrates which side wins a simultaneous change, so a
// just-applied change is never echoed back to its origin.
package watch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/server"
)

// State is the coordinator's exclusive activity.
type State int

const (
	Idle State = iota
	Pulling
	Pushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Pulling:
		return "Pulling"
	case Pushing:
		return "Pushing"
	default:
		return "Unknown"
	}
}

// FileEvent is one filesystem change, relative to the source directory.
type FileEvent struct {
	Path    string
	ModTime time.Time
}

// Notifier triggers a browser reload; fire and forget.
type Notifier interface {
	Reload()
}

// Coordinator owns the watch state. Its fields are mutated only by the two
// event handlers; each origin is serialized behind its own handler mutex, and
// the shared state sits behind mu.
type Coordinator struct {
	pull func(ctx context.Context, id nodeid.NodeId) error
	push func(ctx context.Context, rel string) (nodeid.NodeId, error)

	notifier Notifier
	log      *zap.Logger

	fileMu   sync.Mutex
	remoteMu sync.Mutex

	mu         sync.Mutex
	state      State
	lastPull   time.Time
	lastPushed nodeid.NodeId
}

// New builds a coordinator around the single-node pull and single-file push
// operations.
func New(
	pull func(ctx context.Context, id nodeid.NodeId) error,
	push func(ctx context.Context, rel string) (nodeid.NodeId, error),
	notifier Notifier,
	log *zap.Logger,
) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{pull: pull, push: push, notifier: notifier, log: log}
}

// State reports the current activity.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleFileEvent applies one filesystem change. Events arriving while a pull
// is in progress are echoes of that pull and are dropped, as are events not
// newer than the last applied pull.
func (c *Coordinator) HandleFileEvent(ctx context.Context, ev FileEvent) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	c.mu.Lock()
	if c.state == Pulling {
		c.mu.Unlock()
		c.log.Debug("file change ignored during pull", zap.String("path", ev.Path))
		return
	}
	if !ev.ModTime.After(c.lastPull) {
		c.mu.Unlock()
		c.log.Debug("stale file change ignored", zap.String("path", ev.Path))
		return
	}
	c.state = Pushing
	c.mu.Unlock()

	id, err := c.push(ctx, ev.Path)
	c.mu.Lock()
	c.state = Idle
	if err == nil && !id.IsZero() {
		c.lastPushed = id
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("push failed", zap.String("path", ev.Path), zap.Error(err))
		return
	}
	c.log.Info("pushed", zap.String("path", ev.Path), zap.String("node", id.String()))
	c.reload()
}

// HandleRemoteEvent applies one remote change. Events arriving while a push
// is in progress are dropped; the first event matching the node just pushed
// is its echo and consumes the suppression exactly once.
func (c *Coordinator) HandleRemoteEvent(ctx context.Context, ev server.ChangeEvent) {
	c.remoteMu.Lock()
	defer c.remoteMu.Unlock()

	c.mu.Lock()
	if c.state == Pushing {
		c.mu.Unlock()
		c.log.Debug("remote change ignored during push", zap.String("node", ev.NodeId.String()))
		return
	}
	if !c.lastPushed.IsZero() && c.lastPushed.Equal(ev.NodeId) {
		c.lastPushed = nodeid.NodeId{}
		c.mu.Unlock()
		c.log.Debug("push echo suppressed", zap.String("node", ev.NodeId.String()))
		return
	}
	c.state = Pulling
	c.mu.Unlock()

	err := c.pull(ctx, ev.NodeId)
	c.mu.Lock()
	c.state = Idle
	if err == nil {
		c.lastPull = ev.ModTime
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("pull failed", zap.String("node", ev.NodeId.String()), zap.Error(err))
		return
	}
	c.log.Info("pulled", zap.String("node", ev.NodeId.String()))
	c.reload()
}

func (c *Coordinator) reload() {
	if c.notifier != nil {
		c.notifier.Reload()
	}
}

// Run consumes both event sources until ctx is canceled or both channels
// close. It enters Idle only after both watchers reported ready.
func (c *Coordinator) Run(
	ctx context.Context,
	fsReady, remoteReady <-chan struct{},
	fileEvents <-chan FileEvent,
	remoteEvents <-chan server.ChangeEvent,
) error {
	select {
	case <-fsReady:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-remoteReady:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.log.Info("watching")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for ev := range fileEvents {
			c.HandleFileEvent(ctx, ev)
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for ev := range remoteEvents {
			c.HandleRemoteEvent(ctx, ev)
			if ctx.Err() != nil {
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
