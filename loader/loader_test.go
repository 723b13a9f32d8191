package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	const dump = `{
  "root": 0,
  "objects": [
    {"type": -1, "name": "m", "isModule": true,
     "dir": ["x"], "attrs": {"x": 1}},
    {"type": -1, "repr": "1"}
  ]
}`
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte(dump), 0o644))

	root, err := ReadFile(path)
	require.NoError(t, err)
	require.True(t, root.IsModule())
	require.Equal(t, "m", root.Name())

	x, err := root.GetAttr("x")
	require.NoError(t, err)
	repr, ok := x.Repr()
	require.True(t, ok)
	require.Equal(t, "1", repr)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = ReadFile(path)
	require.Error(t, err)
}

func TestLoadMissingHelper(t *testing.T) {
	_, err := Load("sys", Options{Command: filepath.Join(t.TempDir(), "no-such-pydump")})
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	require.Error(t, Check(filepath.Join(t.TempDir(), "no-such-pydump")))
}
