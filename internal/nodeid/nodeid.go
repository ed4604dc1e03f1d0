// Package nodeid parses and serializes identifiers of remote tree nodes and
// maps them to filesystem-safe relative paths and back.
package nodeid

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IdentifierType discriminates the value carried by a NodeId.
type IdentifierType int

const (
	Numeric IdentifierType = iota
	String
	Guid
	ByteString
)

func (t IdentifierType) String() string {
	switch t {
	case Numeric:
		return "i"
	case String:
		return "s"
	case Guid:
		return "g"
	case ByteString:
		return "b"
	default:
		return "?"
	}
}

// DefaultNamespace is where server projects keep their addressable nodes.
const DefaultNamespace uint16 = 1

// NodeId identifies a node in the remote tree. It is immutable once
// constructed.
type NodeId struct {
	typ       IdentifierType
	namespace uint16

	text    string
	numeric uint32
	guid    uuid.UUID
	raw     []byte
}

// NewString returns a string-identifier NodeId.
func NewString(namespace uint16, value string) NodeId {
	return NodeId{typ: String, namespace: namespace, text: value}
}

// NewNumeric returns a numeric-identifier NodeId.
func NewNumeric(namespace uint16, value uint32) NodeId {
	return NodeId{typ: Numeric, namespace: namespace, numeric: value}
}

// NewGuid returns a GUID-identifier NodeId.
func NewGuid(namespace uint16, value uuid.UUID) NodeId {
	return NodeId{typ: Guid, namespace: namespace, guid: value}
}

// NewByteString returns an opaque-identifier NodeId. The bytes are copied.
func NewByteString(namespace uint16, value []byte) NodeId {
	raw := make([]byte, len(value))
	copy(raw, value)
	return NodeId{typ: ByteString, namespace: namespace, raw: raw}
}

// Type returns the identifier discriminator.
func (n NodeId) Type() IdentifierType { return n.typ }

// Namespace returns the namespace index.
func (n NodeId) Namespace() uint16 { return n.namespace }

// Text returns the string identifier value; empty for other types.
func (n NodeId) Text() string { return n.text }

// IsZero reports whether n is the zero NodeId.
func (n NodeId) IsZero() bool {
	return n.typ == Numeric && n.namespace == 0 && n.numeric == 0 &&
		n.text == "" && n.guid == uuid.Nil && n.raw == nil
}

// Equal reports identifier equality including namespace and type.
func (n NodeId) Equal(other NodeId) bool {
	if n.typ != other.typ || n.namespace != other.namespace {
		return false
	}
	switch n.typ {
	case Numeric:
		return n.numeric == other.numeric
	case String:
		return n.text == other.text
	case Guid:
		return n.guid == other.guid
	case ByteString:
		return string(n.raw) == string(other.raw)
	}
	return false
}

// String renders the canonical textual form, e.g. "ns=1;s=AGENT.DISPLAYS.Main".
func (n NodeId) String() string {
	var value string
	switch n.typ {
	case Numeric:
		value = strconv.FormatUint(uint64(n.numeric), 10)
	case String:
		value = n.text
	case Guid:
		value = n.guid.String()
	case ByteString:
		value = base64.StdEncoding.EncodeToString(n.raw)
	}
	return fmt.Sprintf("ns=%d;%s=%s", n.namespace, n.typ, value)
}

// Child returns the string NodeId one level below n, joining with the tree
// separator. Only valid for string identifiers.
func (n NodeId) Child(name string) NodeId {
	if n.typ != String || n.text == "" {
		return NewString(n.namespace, name)
	}
	return NewString(n.namespace, n.text+"."+name)
}

// Parent returns the NodeId one level above a string identifier, and false at
// the root or for non-string identifiers.
func (n NodeId) Parent() (NodeId, bool) {
	if n.typ != String {
		return NodeId{}, false
	}
	idx := strings.LastIndexByte(n.text, '.')
	if idx < 0 {
		return NodeId{}, false
	}
	return NewString(n.namespace, n.text[:idx]), true
}

// MalformedNodeIdError reports input that matches no identifier grammar.
type MalformedNodeIdError struct {
	Input  string
	Reason string
}

func (e *MalformedNodeIdError) Error() string {
	return fmt.Sprintf("malformed node id %q: %s", e.Input, e.Reason)
}

// Parse reads the canonical textual form. A bare string with no "ns=" prefix
// parses as a string identifier in the default namespace.
func Parse(s string) (NodeId, error) {
	if s == "" {
		return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "empty"}
	}
	if !strings.HasPrefix(s, "ns=") {
		return NewString(DefaultNamespace, s), nil
	}
	rest, ok := strings.CutPrefix(s, "ns=")
	if !ok {
		return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "missing namespace"}
	}
	nsPart, idPart, ok := strings.Cut(rest, ";")
	if !ok {
		return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "missing identifier part"}
	}
	ns, err := strconv.ParseUint(nsPart, 10, 16)
	if err != nil {
		return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "namespace is not a 16-bit integer"}
	}
	tag, value, ok := strings.Cut(idPart, "=")
	if !ok {
		return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "identifier has no type tag"}
	}
	switch tag {
	case "i":
		num, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "numeric identifier is not a 32-bit integer"}
		}
		return NewNumeric(uint16(ns), uint32(num)), nil
	case "s":
		return NewString(uint16(ns), value), nil
	case "g":
		id, err := uuid.Parse(value)
		if err != nil {
			return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "invalid guid"}
		}
		return NewGuid(uint16(ns), id), nil
	case "b":
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "invalid base64 identifier"}
		}
		return NewByteString(uint16(ns), raw), nil
	default:
		return NodeId{}, &MalformedNodeIdError{Input: s, Reason: "unknown identifier type " + tag}
	}
}
