package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_KeyOrderAndEscaping(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b":   int64(2),
		"a":   "x<y>&\"q\"\n",
		"out": []string{"1", "2"},
		"z":   []any{true, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x<y>&\"q\"\n","b":2,"out":["1","2"],"z":[true,3]}`, string(got))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 sorts after U+E000 in UTF-8 byte order but before it in UTF-16.
	got, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "\uE000": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uE000\":2}", string(got))
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b\u2029c\x01")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\\u0001\"", string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"k": struct{}{}})
	assert.Error(t, err)
}

func TestNodeID_NFCEquivalentNamesCollide(t *testing.T) {
	composed, err := NodeID("ConceptNode", "caf\u00e9")
	require.NoError(t, err)
	decomposed, err := NodeID("ConceptNode", "cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
	assert.Len(t, composed, 64)
}

func TestIDs_DomainSeparated(t *testing.T) {
	n, err := NodeID("ListLink", "")
	require.NoError(t, err)
	l, err := LinkID("ListLink", []string{})
	require.NoError(t, err)
	assert.NotEqual(t, n, l)

	l1, _ := LinkID("ListLink", []string{"a", "b"})
	l2, _ := LinkID("ListLink", []string{"b", "a"})
	assert.NotEqual(t, l1, l2, "order matters for the raw id")
}

func TestHandle(t *testing.T) {
	assert.False(t, Invalid.Valid())
	assert.True(t, Handle(7).Valid())
	assert.Equal(t, "#7", Handle(7).String())
}

func TestAtom_Clone(t *testing.T) {
	a := Atom{Handle: 3, Out: []Handle{1, 2}}
	c := a.Clone()
	c.Out[0] = 9
	assert.Equal(t, Handle(1), a.Out[0])
	assert.True(t, a.IsLink())
	assert.Equal(t, 2, a.Arity())
}
