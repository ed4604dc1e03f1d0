// Package sync wires the mapper, the transform pipeline and the remote
// capability into the end-to-end pull and push operations.
package sync

import (
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"github.com/uascm/uascm/internal/mapper"
	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/server"
)

// ItemError is one per-item failure inside a batch. Sibling items keep
// running; the batch reports all failures at the end.
type ItemError struct {
	Item string
	Err  error
}

func (e ItemError) Error() string { return e.Item + ": " + e.Err.Error() }

// Summary reports a finished batch: how many items fully succeeded, which
// were skipped or failed, and the observed throughput.
type Summary struct {
	mu        sync.Mutex
	Succeeded int
	Failed    []ItemError
	Duration  time.Duration

	// Pushed lists the nodes a push batch applied, in completion order.
	Pushed []nodeid.NodeId
}

func (s *Summary) succeed() {
	s.mu.Lock()
	s.Succeeded++
	s.mu.Unlock()
}

func (s *Summary) pushed(id nodeid.NodeId) {
	s.mu.Lock()
	s.Succeeded++
	s.Pushed = append(s.Pushed, id)
	s.mu.Unlock()
}

func (s *Summary) fail(item string, err error) {
	s.mu.Lock()
	s.Failed = append(s.Failed, ItemError{Item: item, Err: err})
	s.mu.Unlock()
}

// Rate returns processed items per second.
func (s *Summary) Rate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Succeeded+len(s.Failed)) / s.Duration.Seconds()
}

// Engine holds the collaborators a pull or push run needs.
type Engine struct {
	Remote       server.Remote
	Mapper       *mapper.Mapper
	Fs           billy.Filesystem
	Transformers []string
	Concurrency  int
	Retry        server.RetryConfig
	Log          *zap.Logger
}

// New fills in defaults for unset engine fields.
func New(remote server.Remote, m *mapper.Mapper, fs billy.Filesystem) *Engine {
	return &Engine{
		Remote:       remote,
		Mapper:       m,
		Fs:           fs,
		Transformers: []string{"display", "script", "quickdynamic"},
		Concurrency:  8,
		Retry:        server.DefaultRetry(),
		Log:          zap.NewNop(),
	}
}

// writeFile writes content atomically: temp file in the target directory,
// then rename over the destination.
func (e *Engine) writeFile(rel string, content []byte) error {
	dir := path.Dir(rel)
	if dir != "." {
		if err := e.Fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	tmp, err := e.Fs.TempFile(dir, ".uascm-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = e.Fs.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = e.Fs.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := e.Fs.Rename(tmpName, rel); err != nil {
		_ = e.Fs.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", rel, err)
	}
	return nil
}
