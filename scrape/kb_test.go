package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeBaseLookup(t *testing.T) {
	kb, err := NewKnowledgeBase()
	require.NoError(t, err)

	spec, ok := kb.ArgSpec("", "", "__contains__")
	require.True(t, ok)
	assert.Equal(t, "(self, value)", spec)

	exprs, ok := kb.ReturnExprs("", "", "__reduce__")
	require.True(t, ok)
	assert.Equal(t, []string{"''", "()"}, exprs)

	// An empty curated value behaves as absent.
	_, ok = kb.ReturnExprs("", "", "__init__")
	assert.False(t, ok)

	_, ok = kb.ArgSpec("", "", "no_such_member")
	assert.False(t, ok)

	assert.True(t, kb.LiesAboutModule("os.stat_result"))
	assert.True(t, kb.LiesAboutModule("builtins.weakref"))
	assert.False(t, kb.LiesAboutModule("os.path"))
}

func TestKnowledgeBasePrecedence(t *testing.T) {
	kb, err := NewKnowledgeBase(OverlayBuiltins)
	require.NoError(t, err)

	// Alias beats scope beats bare name.
	spec, ok := kb.ArgSpec("__Bytes__", "bytes", "center")
	require.True(t, ok)
	assert.Equal(t, "(self, width, fillbyte=b' ')", spec)

	spec, ok = kb.ArgSpec("", "", "capitalize")
	require.True(t, ok)
	assert.Equal(t, "(self)", spec)

	exprs, ok := kb.ReturnExprs("__Dict__", "dict", "keys")
	require.True(t, ok)
	assert.Equal(t, []string{"__DictKeys__()"}, exprs)
}

func TestKnowledgeBaseLegacyOverlay(t *testing.T) {
	kb, err := NewKnowledgeBase(OverlayBuiltins, OverlayLegacy)
	require.NoError(t, err)

	// Null overlay values delete the alias-level key; lookup falls back to
	// the generic protocol entry.
	exprs, ok := kb.ReturnExprs("__BytesIterator__", "", "__next__")
	require.True(t, ok)
	assert.Equal(t, []string{"Any"}, exprs)

	exprs, ok = kb.ReturnExprs("__BytesIterator__", "", "next")
	require.True(t, ok)
	assert.Equal(t, []string{"b''"}, exprs)

	spec, ok := kb.ArgSpec("__UnicodeIterator__", "", "next")
	require.True(t, ok)
	assert.Equal(t, "(self)", spec)
}

func TestKnowledgeBaseUnknownOverlay(t *testing.T) {
	_, err := NewKnowledgeBase(Overlay("nope"))
	require.Error(t, err)
}
