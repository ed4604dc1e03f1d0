package transform

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/uascm/uascm/internal/nodetype"
)

// Splitting is the shared base for transformers that decompose one remote
// document into several files and reassemble them on the way back. On the
// filesystem direction a logical unit is emitted once per run, on the first
// part observed; parts missing from the batch are loaded on demand from the
// destination tree instead of failing, since auxiliary files are not always
// part of the same batch as the primary.
type Splitting struct {
	Base
	fs       billy.Filesystem
	registry *nodetype.Registry

	emitted map[string]bool
}

// NewSplitting builds the base around the destination file tree and the type
// registry. Pipelines are composed per run, so the emitted set is run-scoped.
func NewSplitting(name string, fs billy.Filesystem, reg *nodetype.Registry) Splitting {
	return Splitting{
		Base:     NewBase(name),
		fs:       fs,
		registry: reg,
		emitted:  make(map[string]bool),
	}
}

// Registry returns the type registry for metadata resolution.
func (s *Splitting) Registry() *nodetype.Registry { return s.registry }

// FirstSeen marks a logical unit key and reports whether this was the first
// part observed for it during this run.
func (s *Splitting) FirstSeen(key string) bool {
	if s.emitted == nil {
		s.emitted = make(map[string]bool)
	}
	if s.emitted[key] {
		return false
	}
	s.emitted[key] = true
	return true
}

// LoadPart lazily completes a missing auxiliary file from the destination
// tree. The second return is false when the part does not exist there either.
func (s *Splitting) LoadPart(rel string) ([]byte, bool) {
	if s.fs == nil {
		return nil, false
	}
	content, err := util.ReadFile(s.fs, rel)
	if err != nil {
		return nil, false
	}
	return content, true
}
