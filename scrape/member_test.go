package scrape

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunebeam/PTVS/pyobj"
)

func newTestClassifier(t *testing.T, overlays ...Overlay) *Classifier {
	t.Helper()
	kb, err := NewKnowledgeBase(overlays...)
	require.NoError(t, err)
	return NewClassifier(kb, NewResolver(kb, nil), nil)
}

func TestClassifyLocalClass(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	cls := u.NewClass("mymod", "Widget", u.Type("object"))
	cls.SetDoc("a widget")
	e := c.Classify("Widget", cls, ClassifyOptions{Module: "mymod"})
	require.Equal(t, "Widget", e.TypeName)
	require.Equal(t, "Widget", e.ScopeName)
	require.Empty(t, e.Literal)
	require.Equal(t, []string{"builtins.object"}, e.Bases)
	require.Equal(t, []string{"mymod", "builtins"}, e.NeedImports)
	require.Equal(t, "a widget", e.Doc)
}

func TestClassifyForeignClass(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	cls := u.NewClass("other", "Widget", u.Type("object"))
	e := c.Classify("Widget", cls, ClassifyOptions{Module: "mymod"})
	require.Equal(t, "other.Widget", e.Literal)
	require.Equal(t, []string{"other"}, e.NeedImports)
	require.Empty(t, e.ScopeName)
	require.Equal(t, "Widget = other.Widget", e.Render(""))
}

func TestClassifyLyingClass(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	// os.stat_result claims builtins-adjacent origins it does not have, so it
	// is declared locally instead of referenced.
	cls := u.NewClass("os", "stat_result", u.Type("object"))
	e := c.Classify("stat_result", cls, ClassifyOptions{Module: "posix"})
	require.Equal(t, "stat_result", e.TypeName)
	require.Equal(t, "stat_result", e.ScopeName)
	require.Empty(t, e.Literal)
}

func TestClassifyValues(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	e := c.Classify("answer", u.NewInt(42), ClassifyOptions{Module: "mymod"})
	require.Empty(t, e.TypeName)
	require.Equal(t, "answer = 42", e.Render(""))

	e = c.Classify("greeting", u.NewStr("hi"), ClassifyOptions{Module: "mymod"})
	require.Equal(t, "greeting = 'hi'", e.Render(""))

	e = c.Classify("env", u.NewValue(u.Type("dict"), "{'PATH': '/bin'}"), ClassifyOptions{Module: "mymod"})
	require.Equal(t, "builtins.dict", e.TypeName)
	require.Equal(t, "env = builtins.dict()", e.Render(""))

	e = c.Classify("missing", u.NewNone(), ClassifyOptions{Module: "mymod"})
	require.Equal(t, "missing = None", e.Render(""))

	e = c.Classify("ghost", nil, ClassifyOptions{Module: "mymod"})
	require.Equal(t, "ghost = None", e.Render(""))
}

func TestClassifyFloats(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	tests := []struct {
		val  float64
		want string
	}{
		{1.5, "x = 1.5"},
		{math.NaN(), "x = float('nan')"},
		{math.Inf(1), "x = float('inf')"},
		{math.Inf(-1), "x = float('-inf')"},
	}
	for _, tt := range tests {
		e := c.Classify("x", u.NewFloat(tt.val), ClassifyOptions{Module: "mymod"})
		require.Equal(t, tt.want, e.Render(""))
	}
}

func TestClassifyBindingDecorators(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	fn := u.NewClassMethodDescriptor("fromkeys", "")
	e := c.Classify("fromkeys", fn, ClassifyOptions{Scope: "dict", Module: "builtins"})
	require.NotNil(t, e.Signature)
	require.Equal(t, []string{"@classmethod"}, e.Signature.Decorators)
	require.Equal(t, "cls", e.Signature.Params[0])

	// Module-level callables never get binding decorators.
	e = c.Classify("fromkeys", fn, ClassifyOptions{Module: "builtins"})
	require.Empty(t, e.Signature.Decorators)
}

func TestClassifyAccessor(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	get := u.NewGetSet("real", "the real part")
	e := c.Classify("real", get, ClassifyOptions{Scope: "complex", Module: "builtins"})
	require.NotNil(t, e.Signature)
	require.Equal(t, []string{"@property"}, e.Signature.Decorators)
	require.Equal(t, "@property\ndef real(self):\n    'the real part'\n    pass", e.Render(""))
}

func TestClassifyNormalizesHyphens(t *testing.T) {
	u := pyobj.NewUniverse()
	c := newTestClassifier(t)

	e := c.Classify("not-an-identifier", u.NewInt(1), ClassifyOptions{Module: "mymod"})
	require.Equal(t, "not_an_identifier", e.Name)
}
