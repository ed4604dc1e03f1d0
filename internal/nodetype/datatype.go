// Package nodetype models the remote tree's value types and the registry of
// well-known structural type definitions.
package nodetype

import "strings"

// DataType is the closed enumeration of value types a node can carry.
type DataType int

const (
	Null DataType = iota
	Boolean
	SByte
	Byte
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float
	Double
	String
	DateTime
	Guid
	ByteString
	XmlElement
	NodeIdType
	LocalizedText
)

var dataTypeNames = map[DataType]string{
	Null:          "Null",
	Boolean:       "Boolean",
	SByte:         "SByte",
	Byte:          "Byte",
	Int16:         "Int16",
	UInt16:        "UInt16",
	Int32:         "Int32",
	UInt32:        "UInt32",
	Int64:         "Int64",
	UInt64:        "UInt64",
	Float:         "Float",
	Double:        "Double",
	String:        "String",
	DateTime:      "DateTime",
	Guid:          "Guid",
	ByteString:    "ByteString",
	XmlElement:    "XmlElement",
	NodeIdType:    "NodeId",
	LocalizedText: "LocalizedText",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "Unknown"
}

var dataTypeByLower = func() map[string]DataType {
	m := make(map[string]DataType, len(dataTypeNames))
	for d, name := range dataTypeNames {
		m[strings.ToLower(name)] = d
	}
	return m
}()

// DataTypeFromName resolves a lowercase full type name ("int32", "datetime").
func DataTypeFromName(name string) (DataType, bool) {
	d, ok := dataTypeByLower[strings.ToLower(name)]
	return d, ok
}

// ArrayType describes the shape of a value.
type ArrayType int

const (
	Scalar ArrayType = iota
	Array
	Matrix
)

func (a ArrayType) String() string {
	switch a {
	case Scalar:
		return "Scalar"
	case Array:
		return "Array"
	case Matrix:
		return "Matrix"
	default:
		return "Unknown"
	}
}

// Variant pairs a raw value with its type tag and shape. A nil Value encodes
// to empty content and decodes back from it.
type Variant struct {
	Value     any
	DataType  DataType
	ArrayType ArrayType
}
