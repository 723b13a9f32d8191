package pyobj

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// A small dump: module "m" with a class C deriving from object, an int
// constant, a failing attribute and an auxiliary attr outside dir.
const sampleGraph = `{
  "root": 0,
  "objects": [
    {"type": 1, "name": "m", "isModule": true, "doc": "module m",
     "dir": ["C", "answer", "broken"],
     "attrs": {"C": 4, "answer": 5, "aux": 6},
     "errors": {"broken": "no access"}},
    {"type": 2, "name": "module", "module": "builtins", "class": true},
    {"type": 2, "name": "type", "module": "builtins", "class": true, "bases": [3]},
    {"type": 2, "name": "object", "module": "builtins", "class": true},
    {"type": 2, "name": "C", "module": "m", "class": true, "bases": [3],
     "dir": ["f"], "attrs": {"f": 7}},
    {"type": 8, "repr": "42"},
    {"type": 9, "repr": "2.5", "float": "2.5"},
    {"type": 10, "name": "f", "callable": true, "doc": "f(self)",
     "sig": "(self)", "argspec": {"args": ["self"]}},
    {"type": 2, "name": "int", "module": "builtins", "class": true},
    {"type": 2, "name": "float", "module": "builtins", "class": true},
    {"type": 2, "name": "function", "module": "builtins", "class": true}
  ]
}`

func TestDecodeGraph(t *testing.T) {
	root, err := DecodeGraph(strings.NewReader(sampleGraph))
	require.NoError(t, err)
	require.True(t, root.IsModule())
	require.Equal(t, "m", root.Name())
	require.Equal(t, "module m", root.Doc())
	require.Equal(t, []string{"C", "answer", "broken"}, root.Dir())

	c, err := root.GetAttr("C")
	require.NoError(t, err)
	require.True(t, c.IsClass())
	require.True(t, c.IsCallable())
	require.Equal(t, "m", c.Module())
	require.Len(t, c.Bases(), 1)
	require.Equal(t, "object", c.Bases()[0].Name())
	// No explicit mro in the dump, so one is derived from the bases.
	require.Len(t, c.MRO(), 2)

	f, err := c.GetAttr("f")
	require.NoError(t, err)
	require.Equal(t, "(self)", f.Sig())
	require.Equal(t, []string{"self"}, f.Spec().Args)

	answer, err := root.GetAttr("answer")
	require.NoError(t, err)
	repr, ok := answer.Repr()
	require.True(t, ok)
	require.Equal(t, "42", repr)
	require.Equal(t, "int", answer.TypeOf().Name())

	_, err = root.GetAttr("broken")
	require.EqualError(t, err, "no access")

	// "aux" is linked even though it does not enumerate in dir.
	aux, err := root.GetAttr("aux")
	require.NoError(t, err)
	val, ok := aux.Float()
	require.True(t, ok)
	require.Equal(t, 2.5, val)
}

func TestDecodeGraphNonFiniteFloat(t *testing.T) {
	const g = `{"root": 0, "objects": [{"type": -1, "repr": "nan", "float": "nan"}]}`
	root, err := DecodeGraph(strings.NewReader(g))
	require.NoError(t, err)
	f, ok := root.Float()
	require.True(t, ok)
	require.NotEqual(t, f, f)
	require.Nil(t, root.TypeOf())
}

func TestDecodeGraphErrors(t *testing.T) {
	bad := []string{
		`not json`,
		`{"root": 3, "objects": []}`,
		`{"root": 0, "objects": [{"type": 7}]}`,
		`{"root": 0, "objects": [{"type": -1, "float": "wat"}]}`,
	}
	for _, g := range bad {
		_, err := DecodeGraph(strings.NewReader(g))
		require.Error(t, err, g)
	}
}
