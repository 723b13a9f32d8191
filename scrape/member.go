package scrape

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/lunebeam/PTVS/pyobj"
)

// Entry is one declaration of the stub: a literal binding, a class with
// members, a callable with a signature, a typed value, a repr-rendered value,
// or a bare name. Exactly one rendering path applies, chosen by Render.
type Entry struct {
	Name        string
	Value       *pyobj.Object
	Literal     string
	Members     []*Entry
	NeedImports []string
	TypeName    string
	ScopeName   string
	Bases       []string
	Signature   *Signature
	Doc         string
	Alias       string
}

// noValueMember is a placeholder member: it renders nothing but keeps a
// class body non-empty so only the docstring is emitted.
var noValueMember = &Entry{}

// Value types whose instances render by repr rather than by typename.
var skipTypenameFor = map[string]bool{
	"builtins.bool":  true,
	"builtins.str":   true,
	"builtins.bytes": true,
	"builtins.int":   true,
	"builtins.float": true,
}

// Binding-modifier detection by callable type. No type maps to a static
// binding on modern runtimes; the static fixup for namespace-style classes
// happens during traversal instead.
var (
	staticMethodTypes = map[string]bool{}
	classMethodTypes  = map[string]bool{
		"builtins.classmethod_descriptor": true,
	}
	propertyTypes = map[string]bool{
		"builtins.getset_descriptor": true,
		"builtins.member_descriptor": true,
	}
)

// Float values whose repr would not survive a round trip through the parser.
var floatReprFix = map[float64]string{
	math.Inf(1):  "float('inf')",
	math.Inf(-1): "float('-inf')",
}

// ClassifyOptions carries the context a value is classified in.
type ClassifyOptions struct {
	// Literal overrides classification with a fixed right-hand side.
	Literal string
	// Scope is the enclosing class name, empty at module level.
	Scope string
	// ScopeAlias is the knowledge-base alias of the enclosing class.
	ScopeAlias string
	// Module is the namespace being scraped.
	Module string
	// NamespaceDoc is the enclosing namespace's documentation.
	NamespaceDoc string
	// Alias is the knowledge-base alias this entry is published under.
	Alias string
}

// Classifier turns introspected values into stub entries.
type Classifier struct {
	kb  *KnowledgeBase
	res *Resolver
	log *zap.Logger
}

func NewClassifier(kb *KnowledgeBase, res *Resolver, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{kb: kb, res: res, log: log}
}

// Classify builds the entry for a single member.
func (c *Classifier) Classify(name string, value *pyobj.Object, o ClassifyOptions) *Entry {
	e := &Entry{
		Name:    strings.ReplaceAll(name, "-", "_"),
		Value:   value,
		Literal: o.Literal,
		Alias:   o.Alias,
	}
	if value != nil && value != pyobj.NoValue {
		e.Doc = value.Doc()
	}

	switch {
	case value != nil && value.IsClass():
		c.classifyClass(e, value, o.Module)

	case value != nil && value != pyobj.NoValue && value.IsCallable():
		var dec []string
		if o.Scope != "" {
			key := typeKey(value.TypeOf())
			switch {
			case staticMethodTypes[key]:
				dec = append(dec, "@staticmethod")
			case classMethodTypes[key]:
				dec = append(dec, "@classmethod")
			}
		}
		e.Signature = c.res.Resolve(e.Name, value, ResolveOptions{
			Scope:        o.Scope,
			ScopeAlias:   o.ScopeAlias,
			Decorators:   dec,
			NamespaceDoc: o.NamespaceDoc,
		})

	case value != nil && value != pyobj.NoValue && !isNone(value):
		key := typeKey(value.TypeOf())
		if propertyTypes[key] {
			e.Signature = c.res.Resolve(e.Name, value, ResolveOptions{
				Scope:      o.Scope,
				ScopeAlias: o.ScopeAlias,
			})
		}
		if !skipTypenameFor[key] {
			e.NeedImports, e.TypeName = c.typeName(value.TypeOf(), o.Module)
		}
		if f, ok := value.Float(); ok {
			if math.IsNaN(f) {
				e.Literal = "float('nan')"
			} else if fix, ok := floatReprFix[f]; ok {
				e.Literal = fix
			}
		}

	default:
		if e.Literal == "" {
			e.Literal = "None"
		}
	}
	return e
}

func (c *Classifier) classifyClass(e *Entry, value *pyobj.Object, module string) {
	imports, typeName := c.typeName(value, module)
	e.NeedImports = imports
	if typeName == "" {
		return
	}
	if strings.Contains(typeName, ".") {
		// Foreign type: reference it by its qualified name.
		e.Literal = typeName
		return
	}
	e.ScopeName = typeName
	e.TypeName = typeName
	for _, base := range value.Bases() {
		ni, t := c.typeName(base, module)
		if t == "" {
			continue
		}
		if t == typeName && containsString(ni, module) {
			continue
		}
		e.Bases = append(e.Bases, t)
		e.NeedImports = append(e.NeedImports, ni...)
	}
}

// typeName resolves a type's rendered name and the imports it requires. A
// local type yields its bare name; a foreign one its qualified name, unless
// its claimed origin is a known lie, in which case it is treated as local.
func (c *Classifier) typeName(t *pyobj.Object, inModule string) ([]string, string) {
	if t == nil {
		c.log.Warn("could not get type name", zap.String("module", inModule))
		return nil, ""
	}
	name := strings.ReplaceAll(t.Name(), "-", "_")
	if name == "" {
		c.log.Warn("could not get type name", zap.String("module", inModule))
		return nil, ""
	}
	module := t.Module()
	if module == "" || module == "<unknown>" {
		return nil, name
	}
	if module == inModule {
		return []string{module}, name
	}
	fullname := module + "." + name
	if c.kb.LiesAboutModule(fullname) {
		return []string{inModule}, name
	}
	return []string{module}, fullname
}

func typeKey(t *pyobj.Object) string {
	if t == nil {
		return ""
	}
	return t.Module() + "." + t.Name()
}

func isNone(v *pyobj.Object) bool {
	return typeKey(v.TypeOf()) == "builtins.NoneType"
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
