// Package mapper combines node identifiers, the type registry and the value
// codec into the reversible mapping between remote read results and files.
package mapper

import (
	"fmt"
	"time"

	"github.com/uascm/uascm/internal/codec"
	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
	"github.com/uascm/uascm/internal/server"
)

// MappedFile is one file moving through the transform pipeline together with
// its resolved remote-side metadata. Metadata is resolved eagerly at
// construction and never mutated afterwards. Stages own the file they hold;
// Clone before emitting derived copies.
type MappedFile struct {
	RelPath string
	Content []byte

	// Second resolution; the remote side keeps no milliseconds.
	ModTime time.Time

	Meta codec.Resolved

	// References are edges to apply remotely after all creates and writes
	// in the same batch succeeded.
	References []server.ReferenceSpec
}

// Clone returns an independent copy of f.
func (f *MappedFile) Clone() *MappedFile {
	clone := *f
	clone.Content = make([]byte, len(f.Content))
	copy(clone.Content, f.Content)
	clone.References = append([]server.ReferenceSpec(nil), f.References...)
	return &clone
}

// UnreadableValueError reports a read result without a value; value is a
// required field of a read result, not an optional one.
type UnreadableValueError struct {
	NodeId nodeid.NodeId
}

func (e *UnreadableValueError) Error() string {
	return fmt.Sprintf("read result for %s carries no value", e.NodeId)
}

// Mapper maps read results to storage paths and stored files back to node
// identifiers and typed values.
type Mapper struct {
	registry *nodetype.Registry
}

// New returns a mapper resolving types against reg.
func New(reg *nodetype.Registry) *Mapper {
	return &Mapper{registry: reg}
}

// Registry exposes the registry the mapper resolves against.
func (m *Mapper) Registry() *nodetype.Registry { return m.registry }

// FromReadResult maps one remote read result to its storage file.
func (m *Mapper) FromReadResult(rr server.ReadResult) (*MappedFile, error) {
	if rr.Value == nil {
		return nil, &UnreadableValueError{NodeId: rr.NodeId}
	}

	rel := rr.NodeId.FilePath()
	td, known := m.registry.ByTypeId(rr.TypeDefinition)
	if !known {
		td = m.registry.Variable()
	}
	switch {
	case td.KeepExtension:
		// The node name already carries its native extension.
	case td.Role == nodetype.RoleProperty:
		rel += "." + td.Identifier + "." + codec.ExtensionForDataType(rr.Value.DataType)
	case td.Role == nodetype.RoleExtended:
		rel += "." + td.Identifier
		if td.Extension != "" {
			rel += "." + td.Extension
		}
	default:
		rel += "." + codec.ExtensionForDataType(rr.Value.DataType)
	}
	switch rr.Value.ArrayType {
	case nodetype.Array:
		rel += ".array"
	case nodetype.Matrix:
		rel += ".matrix"
	}

	content, err := codec.Encode(*rr.Value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rr.NodeId, err)
	}
	return &MappedFile{
		RelPath: rel,
		Content: content,
		ModTime: rr.ModTime.Truncate(time.Second),
		Meta:    codec.InferFromPath(rel, m.registry),
	}, nil
}

// ToNodeValue recovers the node identifier and typed value a stored file
// serializes.
func (m *Mapper) ToNodeValue(f *MappedFile) (nodeid.NodeId, nodetype.Variant, error) {
	meta := f.Meta
	if meta.TypeDefinition == nil {
		meta = codec.InferFromPath(f.RelPath, m.registry)
	}

	idPath := f.RelPath
	if !meta.TypeDefinition.KeepExtension {
		idPath = meta.StripExtensions(f.RelPath)
	}
	id, err := nodeid.FromFilePath(idPath)
	if err != nil {
		return nodeid.NodeId{}, nodetype.Variant{}, err
	}

	value, err := codec.Decode(f.Content, meta.DataType, meta.ArrayType)
	if err != nil {
		return nodeid.NodeId{}, nodetype.Variant{}, fmt.Errorf("decode %s: %w", f.RelPath, err)
	}
	return id, nodetype.Variant{
		Value:     value,
		DataType:  meta.DataType,
		ArrayType: meta.ArrayType,
	}, nil
}

// Resolve returns the eager metadata for a relative path.
func (m *Mapper) Resolve(rel string) codec.Resolved {
	return codec.InferFromPath(rel, m.registry)
}
