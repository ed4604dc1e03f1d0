package nodetype

import (
	"sort"
	"strings"

	"github.com/uascm/uascm/internal/nodeid"
)

// Role classifies the structural use of a node.
type Role int

const (
	RoleVariable Role = iota
	RoleProperty
	RoleExtended
	RoleResource
)

// TypeDefinition describes one well-known structural node type. Extended
// types carry the path identifier appended to their files and the extension
// configured for their content; types with KeepExtension carry a native
// extension in the node name itself and get nothing appended.
type TypeDefinition struct {
	Name          string
	Id            nodeid.NodeId
	Role          Role
	Identifier    string
	Extension     string
	DataType      DataType
	KeepExtension bool
}

// Registry is the read-only table of well-known type definitions, built once
// at startup and passed into every component that resolves types.
type Registry struct {
	byId    map[string]*TypeDefinition
	byIdent map[string]*TypeDefinition

	variable *TypeDefinition
	property *TypeDefinition
	resource *TypeDefinition

	// extended, longest identifier first, for unambiguous path inference
	extended []*TypeDefinition
}

func wellKnown() []*TypeDefinition {
	return []*TypeDefinition{
		{
			Name: "BaseDataVariableType",
			Id:   nodeid.NewNumeric(0, 63),
			Role: RoleVariable,
		},
		{
			Name:       "PropertyType",
			Id:         nodeid.NewNumeric(0, 68),
			Role:       RoleProperty,
			Identifier: "prop",
		},
		{
			Name:       "Display",
			Id:         nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.Display"),
			Role:       RoleExtended,
			Identifier: "display",
			Extension:  "xml",
			DataType:   XmlElement,
		},
		{
			Name:       "ServerScript",
			Id:         nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.ScriptCode"),
			Role:       RoleExtended,
			Identifier: "script",
			Extension:  "xml",
			DataType:   XmlElement,
		},
		{
			Name:       "QuickDynamic",
			Id:         nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.QuickDynamic"),
			Role:       RoleExtended,
			Identifier: "qd",
			Extension:  "xml",
			DataType:   XmlElement,
		},
		{
			Name:       "TranslationTable",
			Id:         nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.TranslationTable"),
			Role:       RoleExtended,
			Identifier: "locs",
			Extension:  "xml",
			DataType:   XmlElement,
		},
		{
			Name:          "HelpDocument",
			Id:            nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.HtmlHelp"),
			Role:          RoleExtended,
			Identifier:    "help",
			DataType:      ByteString,
			KeepExtension: true,
		},
		{
			Name:          "Resource",
			Id:            nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.Resource"),
			Role:          RoleResource,
			DataType:      ByteString,
			KeepExtension: true,
		},
	}
}

// NewRegistry builds the registry from the static well-known table.
func NewRegistry() *Registry {
	r := &Registry{
		byId:    make(map[string]*TypeDefinition),
		byIdent: make(map[string]*TypeDefinition),
	}
	for _, td := range wellKnown() {
		r.byId[td.Id.String()] = td
		if td.Identifier != "" {
			r.byIdent[td.Identifier] = td
		}
		switch td.Role {
		case RoleVariable:
			r.variable = td
		case RoleProperty:
			r.property = td
		case RoleResource:
			r.resource = td
		case RoleExtended:
			r.extended = append(r.extended, td)
		}
	}
	// Longest identifier wins when two extended identifiers could both match
	// a path suffix; ties break lexicographically so inference is stable.
	sort.Slice(r.extended, func(i, j int) bool {
		a, b := r.extended[i].Identifier, r.extended[j].Identifier
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return r
}

// ByTypeId resolves a type-definition node id; false when unknown.
func (r *Registry) ByTypeId(id nodeid.NodeId) (*TypeDefinition, bool) {
	td, ok := r.byId[id.String()]
	return td, ok
}

// ByIdentifier resolves a short path identifier like "display" or "prop".
func (r *Registry) ByIdentifier(ident string) (*TypeDefinition, bool) {
	td, ok := r.byIdent[strings.ToLower(ident)]
	return td, ok
}

// Extended returns the extended types, longest identifier first.
func (r *Registry) Extended() []*TypeDefinition { return r.extended }

// Variable is the plain-variable type definition.
func (r *Registry) Variable() *TypeDefinition { return r.variable }

// Property is the property type definition.
func (r *Registry) Property() *TypeDefinition { return r.property }

// Resource is the catch-all type for unrecognized binary content.
func (r *Registry) Resource() *TypeDefinition { return r.resource }
