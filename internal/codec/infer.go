package codec

import (
	"path"
	"strings"

	"github.com/uascm/uascm/internal/nodetype"
)

// Extension aliases that differ from the lowercase full type name.
var extensionAliases = map[string]nodetype.DataType{
	"bool": nodetype.Boolean,
	"xml":  nodetype.XmlElement,
}

var aliasForDataType = func() map[nodetype.DataType]string {
	m := make(map[nodetype.DataType]string, len(extensionAliases))
	for ext, dt := range extensionAliases {
		m[dt] = ext
	}
	return m
}()

// ExtensionForDataType returns the path extension used for a data type: the
// short alias where one exists, the lowercase full name otherwise.
func ExtensionForDataType(dt nodetype.DataType) string {
	if alias, ok := aliasForDataType[dt]; ok {
		return alias
	}
	return strings.ToLower(dt.String())
}

// Resolved is the immutable value metadata recovered from a relative path.
type Resolved struct {
	DataType       nodetype.DataType
	ArrayType      nodetype.ArrayType
	TypeDefinition *nodetype.TypeDefinition

	consumed int
}

// StripExtensions removes the consumed extension tokens from a relative path,
// leaving the pre-extension node path.
func (r Resolved) StripExtensions(rel string) string {
	if r.consumed == 0 {
		return rel
	}
	dir, name := path.Split(rel)
	tokens := strings.Split(name, ".")
	tokens = tokens[:len(tokens)-r.consumed]
	return dir + strings.Join(tokens, ".")
}

// InferFromPath resolves (dataType, arrayType, typeDefinition) from a
// relative path's trailing dot-separated suffixes, consumed right to left.
// It is pure and total: every input yields a valid triple, with the generic
// binary resource as the universal fallback.
func InferFromPath(rel string, reg *nodetype.Registry) Resolved {
	name := path.Base(strings.ReplaceAll(rel, "\\", "/"))
	tokens := strings.Split(name, ".")
	// The first token is the node name itself, never an extension.
	ext := tokens[1:]

	res := Resolved{DataType: nodetype.Null, ArrayType: nodetype.Scalar}

	// Shape suffix first.
	if len(ext) > 0 {
		switch ext[len(ext)-1] {
		case "array":
			res.ArrayType = nodetype.Array
			ext = ext[:len(ext)-1]
			res.consumed++
		case "matrix":
			res.ArrayType = nodetype.Matrix
			ext = ext[:len(ext)-1]
			res.consumed++
		}
	}

	// Data type: alias exceptions first, then lowercase full names.
	if len(ext) > 0 {
		last := ext[len(ext)-1]
		if dt, ok := extensionAliases[last]; ok {
			res.DataType = dt
			ext = ext[:len(ext)-1]
			res.consumed++
		} else if dt, ok := nodetype.DataTypeFromName(last); ok && last == strings.ToLower(last) {
			res.DataType = dt
			ext = ext[:len(ext)-1]
			res.consumed++
		}
	}

	if res.DataType != nodetype.Null && len(ext) == 0 {
		res.TypeDefinition = reg.Variable()
		return res
	}

	if res.DataType != nodetype.Null && len(ext) > 0 && ext[len(ext)-1] == "prop" {
		res.TypeDefinition = reg.Property()
		res.consumed++
		return res
	}

	// Extended types: scan the remaining tokens for a registered identifier,
	// longest identifier first so overlapping identifiers resolve stably.
	// Everything from the identifier to the end of the name is the type's
	// extension segment and counts as consumed.
	for _, td := range reg.Extended() {
		idTokens := strings.Split(td.Identifier, ".")
		if at := indexOfTokens(ext, idTokens); at >= 0 {
			res.TypeDefinition = td
			res.consumed += len(ext) - at
			if res.DataType == nodetype.Null {
				res.DataType = td.DataType
			}
			return res
		}
	}

	if res.DataType != nodetype.Null {
		res.TypeDefinition = reg.Variable()
		return res
	}

	// Universal catch-all: an untyped binary resource. Never fails.
	res.TypeDefinition = reg.Resource()
	res.DataType = nodetype.ByteString
	return res
}

// indexOfTokens returns the rightmost start index of idTokens within ext, or
// -1 when absent.
func indexOfTokens(ext, idTokens []string) int {
	if len(idTokens) == 0 || len(ext) < len(idTokens) {
		return -1
	}
	for at := len(ext) - len(idTokens); at >= 0; at-- {
		match := true
		for i := range idTokens {
			if !strings.EqualFold(ext[at+i], idTokens[i]) {
				match = false
				break
			}
		}
		if match {
			return at
		}
	}
	return -1
}
