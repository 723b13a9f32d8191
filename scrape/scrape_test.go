package scrape

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunebeam/PTVS/pyobj"
)

func newTestScraper(t *testing.T, overlays ...Overlay) *Scraper {
	t.Helper()
	kb, err := NewKnowledgeBase(overlays...)
	require.NoError(t, err)
	return New(kb, nil)
}

// buildModule assembles a small namespace exercising most collection paths:
// a local class, a callable, plain values, a value of an unbound local type,
// a nested module, a keyword-named member and a failing attribute.
func buildModule(u *pyobj.Universe) *pyobj.Object {
	mod := u.NewModule("mymod", "module docs")

	widget := u.NewClass("mymod", "Widget", u.Type("object"))
	widget.SetDoc("a widget")
	widget.SetAttr("size", u.NewInt(3))
	widget.SetDir([]string{"__bases__", "__class__", "size"})

	hidden := u.NewClass("mymod", "Hidden", u.Type("object"))
	hidden.SetDir([]string{"__class__"})

	mod.SetAttr("Widget", widget)
	mod.SetAttr("factory", u.NewBuiltin("factory", "factory(spec) -> Widget"))
	mod.SetAttr("VERSION", u.NewStr("1.0"))
	mod.SetAttr("w", u.NewValue(hidden, "<Hidden object>"))
	mod.SetAttrError("broken", "access denied")
	mod.SetAttr("sub", u.NewModule("sub", ""))
	mod.SetAttr("__builtins__", u.NewDict())
	mod.SetAttr("__spec__", u.NewNone())
	mod.SetDir([]string{
		"Widget", "factory", "VERSION", "w",
		"class", "broken", "sub", "__builtins__", "__spec__",
	})
	return mod
}

func TestRun(t *testing.T) {
	u := pyobj.NewUniverse()
	s := newTestScraper(t)
	scan := s.NewScan("mymod", buildModule(u))

	var out bytes.Buffer
	require.NoError(t, s.Run(scan, &out))

	want := `import builtins

class Hidden(builtins.object):
    __class__ = Hidden

class Widget(builtins.object):
    'a widget'
    __bases__ = ()
    __class__ = Widget
    size = 3

def factory(spec):
    'factory(spec) -> Widget'
    pass

VERSION = '1.0'

w = Hidden()

__builtins__ = {}
`
	require.Equal(t, want, out.String())
}

func TestCollectTopLevelSkips(t *testing.T) {
	u := pyobj.NewUniverse()
	s := newTestScraper(t)
	scan := s.NewScan("mymod", buildModule(u))
	require.NoError(t, s.CollectTopLevel(scan))

	var names []string
	for _, m := range scan.Members {
		names = append(names, m.Name)
	}
	// "class" is a keyword, "broken" failed retrieval, "sub" is a nested
	// module, "__spec__" is suppressed. "Hidden" is backfilled up front.
	require.Equal(t, []string{"Hidden", "Widget", "factory", "VERSION", "w", "__builtins__"}, names)
}

func TestCollectTopLevelNilModule(t *testing.T) {
	s := newTestScraper(t)
	scan := s.NewScan("mymod", nil)
	require.Error(t, s.CollectTopLevel(scan))
}

func TestFilterExcluded(t *testing.T) {
	u := pyobj.NewUniverse()
	s := newTestScraper(t)
	scan := s.NewScan("mymod", buildModule(u))
	scan.Excluded = []string{"VERSION", "w"}
	require.NoError(t, s.CollectTopLevel(scan))
	s.FilterExcluded(scan)

	var names []string
	for _, m := range scan.Members {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"Hidden", "Widget", "factory", "__builtins__"}, names)
}

func TestCollectSkipsInheritedValues(t *testing.T) {
	u := pyobj.NewUniverse()
	s := newTestScraper(t)

	base := u.NewClass("mymod", "Base", u.Type("object"))
	shared := u.NewBuiltin("ping", "ping(self)")
	base.SetAttr("ping", shared)

	derived := u.NewClass("mymod", "Derived", base)
	derived.SetAttr("ping", shared)
	derived.SetAttr("pong", u.NewBuiltin("pong", "pong(self)"))
	derived.SetDir([]string{"__class__", "ping", "pong"})

	mod := u.NewModule("mymod", "")
	mod.SetAttr("Derived", derived)
	mod.SetDir([]string{"Derived"})

	scan := s.NewScan("mymod", mod)
	require.NoError(t, s.CollectTopLevel(scan))
	require.NoError(t, s.CollectSecondLevel(scan))

	var names []string
	for _, m := range scan.Members[0].Members {
		names = append(names, m.Name)
	}
	// The identical inherited "ping" is dropped; "pong" is Derived's own.
	require.Equal(t, []string{"__class__", "pong"}, names)
}

func TestCollectDuplicateNames(t *testing.T) {
	u := pyobj.NewUniverse()
	s := newTestScraper(t)

	// Hyphen normalization makes "name-a" collide with an existing sibling;
	// the later entry gets a numeric suffix.
	mod := u.NewModule("mymod", "")
	mod.SetAttr("name_a", u.NewInt(1))
	mod.SetAttr("name-a", u.NewInt(2))
	mod.SetDir([]string{"name_a", "name-a"})

	scan := s.NewScan("mymod", mod)
	require.NoError(t, s.CollectTopLevel(scan))
	require.Len(t, scan.Members, 2)
	require.Equal(t, "name_a", scan.Members[0].Name)
	require.Equal(t, "name_a2", scan.Members[1].Name)
}

func TestCompiledLibMembersBecomeStatic(t *testing.T) {
	u := pyobj.NewUniverse()
	s := newTestScraper(t)

	libType := u.NewClass("builtins", "CompiledLib", u.Type("object"))
	lib := u.NewValue(libType, "<Lib object>")
	lib.SetAttr("checksum", u.NewBuiltin("checksum", "checksum(data) -> int"))
	lib.SetDir([]string{"checksum"})

	mod := u.NewModule("mylib", "")
	mod.SetAttr("lib", lib)
	mod.SetDir([]string{"lib"})

	scan := s.NewScan("mylib", mod)
	require.NoError(t, s.CollectTopLevel(scan))
	require.NoError(t, s.CollectSecondLevel(scan))

	require.Len(t, scan.Members, 1)
	e := scan.Members[0]
	require.Equal(t, "builtins.CompiledLib", e.TypeName)
	require.Len(t, e.Members, 1)
	require.Equal(t, []string{"@staticmethod"}, e.Members[0].Signature.Decorators)
	require.Equal(t, []string{"data"}, e.Members[0].Signature.Params)
}

func TestAddBuiltinObjects(t *testing.T) {
	u := pyobj.NewUniverse()
	s := newTestScraper(t, OverlayBuiltins)

	mod := u.NewModule("builtins", "")
	scan := s.NewScan("builtins", mod)

	moduleNames := u.NewValue(u.Type("tuple"), "'sys,builtins'")
	s.AddBuiltinObjects(scan, func(name string) *pyobj.Object {
		if name == "builtin_module_names" {
			return moduleNames
		}
		return u.Type(name)
	})

	byName := map[string]*Entry{}
	for _, m := range scan.Members {
		byName[m.Name] = m
	}

	require.Equal(t, `"<unknown>"`, byName["__Unknown__"].Members[0].Literal)
	require.Equal(t, "dict", byName["__Dict__"].Literal)
	require.Equal(t, "str", byName["__Unicode__"].Literal)
	require.Equal(t, "__Unicode__", byName["__Str__"].Literal)
	require.Equal(t, "__Int__", byName["__Long__"].Literal)
	require.Equal(t, `"sys,builtins"`, byName["__builtin_module_names__"].Literal)

	// The aliased type itself is declared alongside the alias binding.
	dict := byName["dict"]
	require.NotNil(t, dict)
	require.Equal(t, "dict", dict.TypeName)
	require.Equal(t, "__Dict__", dict.Alias)

	// Seeded names win over the namespace's own bindings.
	require.NoError(t, s.CollectTopLevel(scan))
}

func TestBuiltinExclusions(t *testing.T) {
	require.Equal(t, []string{"None", "False", "True", "__debug__"}, BuiltinExclusions(false))
	require.Contains(t, BuiltinExclusions(true), "print")
}
