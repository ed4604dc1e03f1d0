// Package server defines the boundary to the remote node tree: the capability
// interface the sync engine consumes, its typed errors, and a client speaking
// the server's HTTP bridge.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
)

// ReadResult is one snapshot of a remote node's value and type information.
// Value is required: a read that produced no value is an error condition the
// mapper reports, not an empty value.
type ReadResult struct {
	NodeId         nodeid.NodeId
	Value          *nodetype.Variant
	TypeDefinition nodeid.NodeId
	ModTime        time.Time
}

// ReferenceDescriptor is one edge discovered while browsing a node.
type ReferenceDescriptor struct {
	NodeId         nodeid.NodeId
	Name           string
	TypeDefinition nodeid.NodeId
	ReferenceType  string
	IsForward      bool
	HasValue       bool
}

// NodeSpec describes a node to create remotely.
type NodeSpec struct {
	NodeId         nodeid.NodeId
	Parent         nodeid.NodeId
	Name           string
	TypeDefinition nodeid.NodeId
	Value          *nodetype.Variant
}

// ReferenceSpec is an edge between two nodes, applied after the nodes exist.
type ReferenceSpec struct {
	Source        nodeid.NodeId
	Target        nodeid.NodeId
	ReferenceType string
}

// ChangeEvent is one remote-side modification notice.
type ChangeEvent struct {
	NodeId  nodeid.NodeId
	ModTime time.Time
}

// Remote is the capability set the sync engine needs from the live server.
type Remote interface {
	Browse(ctx context.Context, id nodeid.NodeId) ([]ReferenceDescriptor, error)
	Read(ctx context.Context, id nodeid.NodeId) (ReadResult, error)
	Write(ctx context.Context, id nodeid.NodeId, value *nodetype.Variant) error
	CreateNode(ctx context.Context, spec NodeSpec) error
	AddReference(ctx context.Context, ref ReferenceSpec) error
	Subscribe(ctx context.Context, ids []nodeid.NodeId) (<-chan ChangeEvent, <-chan error, error)
	Close() error
}

// ErrNodeNotFound marks a write against a node that does not exist yet; the
// push orchestrator turns it into a create.
var ErrNodeNotFound = errors.New("node not found")

// ConnectionError is fatal to the run that attempted the connection.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError is fatal per attempt and retryable at the operation level.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}
