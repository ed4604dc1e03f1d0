package mapper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
	"github.com/uascm/uascm/internal/server"
)

func newMapper() *Mapper {
	return New(nodetype.NewRegistry())
}

func TestFromReadResult_BooleanVariable(t *testing.T) {
	m := newMapper()
	mtime := time.Date(2026, 3, 1, 12, 30, 45, 987654321, time.UTC)

	f, err := m.FromReadResult(server.ReadResult{
		NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.DISPLAYS.Main"),
		TypeDefinition: nodeid.NewNumeric(0, 63),
		Value:          &nodetype.Variant{Value: false, DataType: nodetype.Boolean},
		ModTime:        mtime,
	})
	require.NoError(t, err)

	assert.Equal(t, "AGENT/DISPLAYS/Main.bool", f.RelPath)
	assert.Equal(t, "false", string(f.Content))
	assert.Equal(t, mtime.Truncate(time.Second), f.ModTime)
	assert.Equal(t, nodetype.Boolean, f.Meta.DataType)
}

func TestToNodeValue_BooleanVariable(t *testing.T) {
	m := newMapper()

	f := &MappedFile{RelPath: "AGENT/DISPLAYS/Main.bool", Content: []byte("false")}
	f.Meta = m.Resolve(f.RelPath)

	id, v, err := m.ToNodeValue(f)
	require.NoError(t, err)
	assert.Equal(t, "ns=1;s=AGENT.DISPLAYS.Main", id.String())
	assert.Equal(t, false, v.Value)
	assert.Equal(t, nodetype.Boolean, v.DataType)
	assert.Equal(t, nodetype.Scalar, v.ArrayType)
}

func TestFromReadResult_Property(t *testing.T) {
	m := newMapper()

	f, err := m.FromReadResult(server.ReadResult{
		NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.OBJECTS.Pump.EngineeringUnit"),
		TypeDefinition: nodeid.NewNumeric(0, 68),
		Value:          &nodetype.Variant{Value: "rpm", DataType: nodetype.String},
	})
	require.NoError(t, err)
	assert.Equal(t, "AGENT/OBJECTS/Pump/EngineeringUnit.prop.string", f.RelPath)
	assert.Equal(t, nodetype.RoleProperty, f.Meta.TypeDefinition.Role)
}

func TestFromReadResult_ExtendedType(t *testing.T) {
	m := newMapper()

	f, err := m.FromReadResult(server.ReadResult{
		NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.DISPLAYS.Overview"),
		TypeDefinition: nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.Display"),
		Value:          &nodetype.Variant{Value: "<svg/>", DataType: nodetype.XmlElement},
	})
	require.NoError(t, err)
	assert.Equal(t, "AGENT/DISPLAYS/Overview.display.xml", f.RelPath)
}

func TestFromReadResult_ArraySuffix(t *testing.T) {
	m := newMapper()

	f, err := m.FromReadResult(server.ReadResult{
		NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.OBJECTS.Setpoints"),
		TypeDefinition: nodeid.NewNumeric(0, 63),
		Value: &nodetype.Variant{
			Value:     []any{int64(1), int64(2)},
			DataType:  nodetype.Int32,
			ArrayType: nodetype.Array,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "AGENT/OBJECTS/Setpoints.int32.array", f.RelPath)
	assert.Equal(t, nodetype.Array, f.Meta.ArrayType)
}

func TestFromReadResult_KeepExtension(t *testing.T) {
	m := newMapper()

	f, err := m.FromReadResult(server.ReadResult{
		NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.RESOURCES.readme"),
		TypeDefinition: nodeid.NewString(nodeid.DefaultNamespace, "VariableTypes.PROJECT.Resource"),
		Value:          &nodetype.Variant{Value: []byte{0x89, 0x50}, DataType: nodetype.ByteString},
	})
	require.NoError(t, err)
	// No extension appended for keep-extension types.
	assert.Equal(t, "AGENT/RESOURCES/readme", f.RelPath)
}

func TestFromReadResult_MissingValue(t *testing.T) {
	m := newMapper()

	_, err := m.FromReadResult(server.ReadResult{
		NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.OBJECTS.Broken"),
		TypeDefinition: nodeid.NewNumeric(0, 63),
	})
	var unreadable *UnreadableValueError
	require.True(t, errors.As(err, &unreadable))
	assert.Equal(t, "ns=1;s=AGENT.OBJECTS.Broken", unreadable.NodeId.String())
}

func TestRoundTrip_PreservesIdentityAndValue(t *testing.T) {
	m := newMapper()

	cases := []server.ReadResult{
		{
			NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.OBJECTS.Counter"),
			TypeDefinition: nodeid.NewNumeric(0, 63),
			Value:          &nodetype.Variant{Value: int64(42), DataType: nodetype.Int32},
		},
		{
			NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.OBJECTS.Pump.Description"),
			TypeDefinition: nodeid.NewNumeric(0, 68),
			Value:          &nodetype.Variant{Value: "main pump", DataType: nodetype.String},
		},
		{
			NodeId:         nodeid.NewString(nodeid.DefaultNamespace, "AGENT.OBJECTS.Rates"),
			TypeDefinition: nodeid.NewNumeric(0, 63),
			Value: &nodetype.Variant{
				Value:     []any{float64(0.5), float64(1.5)},
				DataType:  nodetype.Double,
				ArrayType: nodetype.Array,
			},
		},
	}

	for _, rr := range cases {
		f, err := m.FromReadResult(rr)
		require.NoError(t, err, rr.NodeId.String())

		id, v, err := m.ToNodeValue(f)
		require.NoError(t, err, rr.NodeId.String())
		assert.True(t, rr.NodeId.Equal(id), "%s != %s", rr.NodeId, id)
		assert.Equal(t, rr.Value.Value, v.Value)
		assert.Equal(t, rr.Value.DataType, v.DataType)
		assert.Equal(t, rr.Value.ArrayType, v.ArrayType)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	f := &MappedFile{
		RelPath: "A/B.bool",
		Content: []byte("true"),
		References: []server.ReferenceSpec{
			{ReferenceType: "HasDependency"},
		},
	}
	clone := f.Clone()
	clone.Content[0] = 'x'
	clone.References[0].ReferenceType = "other"

	assert.Equal(t, "true", string(f.Content))
	assert.Equal(t, "HasDependency", f.References[0].ReferenceType)
}
