package nodeid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CanonicalForms(t *testing.T) {
	cases := []struct {
		input string
		want  NodeId
	}{
		{"ns=1;s=AGENT.DISPLAYS.Main", NewString(1, "AGENT.DISPLAYS.Main")},
		{"ns=0;i=63", NewNumeric(0, 63)},
		{"ns=2;s=Some.Other", NewString(2, "Some.Other")},
	}
	for _, tc := range cases {
		got, err := Parse(tc.input)
		require.NoError(t, err, tc.input)
		assert.True(t, tc.want.Equal(got), tc.input)
		assert.Equal(t, tc.input, got.String())
	}
}

func TestParse_BareStringDefaultsNamespace(t *testing.T) {
	got, err := Parse("AGENT.OBJECTS.Pump")
	require.NoError(t, err)
	assert.Equal(t, String, got.Type())
	assert.Equal(t, DefaultNamespace, got.Namespace())
	assert.Equal(t, "AGENT.OBJECTS.Pump", got.Text())
}

func TestParse_Guid(t *testing.T) {
	id := uuid.MustParse("12345678-1234-5678-1234-567812345678")
	got, err := Parse("ns=1;g=" + id.String())
	require.NoError(t, err)
	assert.True(t, NewGuid(1, id).Equal(got))
}

func TestParse_Malformed(t *testing.T) {
	for _, input := range []string{
		"",
		"ns=x;s=A",
		"ns=1;q=A",
		"ns=1;i=notanumber",
		"ns=1;g=not-a-guid",
		"ns=70000;s=A",
	} {
		_, err := Parse(input)
		var malformed *MalformedNodeIdError
		require.Error(t, err, input)
		assert.ErrorAs(t, err, &malformed, input)
	}
}

func TestFilePath_StringIdentifier(t *testing.T) {
	id := NewString(DefaultNamespace, "AGENT.DISPLAYS.Main")
	assert.Equal(t, "AGENT/DISPLAYS/Main", id.FilePath())
}

func TestFilePath_EscapesReservedCharacters(t *testing.T) {
	id := NewString(DefaultNamespace, `AGENT.a/b.c:d`)
	path := id.FilePath()
	assert.Equal(t, "AGENT/a%2Fb/c%3Ad", path)

	back, err := FromFilePath(path)
	require.NoError(t, err)
	assert.True(t, id.Equal(back))
}

func TestFilePath_EmptySegment(t *testing.T) {
	id := NewString(DefaultNamespace, "AGENT..Main")
	path := id.FilePath()
	back, err := FromFilePath(path)
	require.NoError(t, err)
	assert.True(t, id.Equal(back))
}

func TestFilePath_NonStringIdentifiersSingleSegment(t *testing.T) {
	for _, id := range []NodeId{
		NewNumeric(1, 42),
		NewGuid(1, uuid.MustParse("12345678-1234-5678-1234-567812345678")),
		NewByteString(1, []byte{0x01, 0xff}),
		NewString(2, "Other.Namespace"),
	} {
		path := id.FilePath()
		assert.NotContains(t, path, "/", id.String())
		back, err := FromFilePath(path)
		require.NoError(t, err, id.String())
		assert.True(t, id.Equal(back), id.String())
	}
}

func TestFilePath_Injective(t *testing.T) {
	ids := []NodeId{
		NewString(DefaultNamespace, "A.B"),
		NewString(DefaultNamespace, "A/B"),
		NewString(DefaultNamespace, "A.B.C"),
		NewString(DefaultNamespace, "A%2FB"),
		NewNumeric(1, 7),
		NewString(DefaultNamespace, "ns=1;i=7"),
	}
	seen := map[string]NodeId{}
	for _, id := range ids {
		path := id.FilePath()
		prev, dup := seen[path]
		require.False(t, dup, "%s and %s collide on %s", prev, id, path)
		seen[path] = id
	}
}

func TestFromFilePath_Malformed(t *testing.T) {
	for _, input := range []string{
		"",
		"A/%zz/B",
		"A/%3/B",
	} {
		_, err := FromFilePath(input)
		var malformed *MalformedNodeIdError
		require.Error(t, err, input)
		assert.ErrorAs(t, err, &malformed, input)
	}
}

func TestParentChild(t *testing.T) {
	id := NewString(DefaultNamespace, "AGENT.OBJECTS.Pump")
	parent, ok := id.Parent()
	require.True(t, ok)
	assert.Equal(t, "AGENT.OBJECTS", parent.Text())
	assert.True(t, id.Equal(parent.Child("Pump")))

	root := NewString(DefaultNamespace, "AGENT")
	_, ok = root.Parent()
	assert.False(t, ok)
}
