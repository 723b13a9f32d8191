package scrape

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lunebeam/PTVS/pyobj"
	"github.com/lunebeam/PTVS/pysig"
)

// Signature is a resolved callable declaration: parameter tokens in their
// final rendered form and a return expression (a "return ..." statement
// chain, or "pass").
type Signature struct {
	Name       string
	Params     []string
	RetExpr    string
	Decorators []string
}

// String renders the header portion, "name(p1, p2=None)".
func (s *Signature) String() string {
	return s.Name + "(" + strings.Join(s.Params, ", ") + ")"
}

// ResolveOptions carries the context a callable is resolved in.
type ResolveOptions struct {
	// Scope is the enclosing class name, empty at module level.
	Scope string
	// ScopeAlias is the knowledge-base alias of the enclosing class.
	ScopeAlias string
	// Decorators are binding modifiers already attached by the classifier.
	Decorators []string
	// NamespaceDoc is the enclosing namespace's documentation, consulted
	// for constructors.
	NamespaceDoc string
}

// Resolver derives signatures through a fixed strategy chain: constructor
// documentation, accessor detection, native introspection, argspec, the
// knowledge base, docstring parsing, and a bare fallback. The first strategy
// producing parameters wins; later ones are not consulted.
type Resolver struct {
	kb  *KnowledgeBase
	log *zap.Logger
}

func NewResolver(kb *KnowledgeBase, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{kb: kb, log: log}
}

// Resolve derives the signature of fn when bound under name.
func (r *Resolver) Resolve(name string, fn *pyobj.Object, o ResolveOptions) *Signature {
	dec := append([]string(nil), o.Decorators...)
	defaults := implicitLeading(o.Scope, dec)

	var params []string
	if (name == "__init__" || name == "__new__") && o.NamespaceDoc != "" {
		params = r.fromDocstring(name, o.NamespaceDoc, true, defaults)
	}
	if params == nil && fn != nil && fn != pyobj.NoValue && !fn.IsCallable() && fn.IsDescriptor() {
		dec = []string{"@property"}
		params = append([]string(nil), defaults...)
	}
	if params == nil {
		params = r.fromNativeSig(fn, defaults)
	}
	if params == nil {
		params = r.fromArgSpec(fn, defaults)
	}
	if params == nil {
		params = r.fromKnown(name, o.Scope, o.ScopeAlias)
	}
	if params == nil && fn != nil && fn != pyobj.NoValue {
		params = r.fromDocstring(name, fn.Doc(), false, defaults)
	}
	if params == nil {
		params = append([]string(nil), defaults...)
	}

	ret := r.restype(name, fn, o.Scope, o.ScopeAlias)
	return &Signature{Name: name, Params: params, RetExpr: ret, Decorators: dec}
}

// implicitLeading returns the leading parameter tokens implied by the scope
// and binding modifiers: "self" for instance members, "cls" for class-bound
// ones, nothing for static or module-level callables.
func implicitLeading(scope string, decorators []string) []string {
	if scope == "" || hasDecorator(decorators, "@staticmethod") {
		return nil
	}
	if hasDecorator(decorators, "@classmethod") {
		return []string{"cls"}
	}
	return []string{"self"}
}

func hasDecorator(decorators []string, d string) bool {
	for _, have := range decorators {
		if have == d {
			return true
		}
	}
	return false
}

func (r *Resolver) restype(name string, fn *pyobj.Object, scope, alias string) string {
	ret := ""
	if fn != nil && fn != pyobj.NoValue && fn.Sig() != "" {
		// Native introspection succeeded; any annotation is already part
		// of the signature.
		ret = "pass"
	}
	if ret == "" {
		if exprs, ok := r.kb.ReturnExprs(alias, scope, name); ok {
			ret = "return " + strings.Join(exprs, "; return ")
		}
	}
	if ret == "" {
		ret = "pass"
	}
	if scope != "" {
		ret = strings.ReplaceAll(ret, "__T", scope)
	}
	if ret == "return Any" || ret == "return Unknown" {
		ret = "pass"
	}
	return ret
}

// fromNativeSig builds parameters from the runtime's own signature text.
// Positional-only markers are dropped (widening) and defaults that are not
// literal expressions become None.
func (r *Resolver) fromNativeSig(fn *pyobj.Object, defaults []string) []string {
	if fn == nil || fn == pyobj.NoValue || fn.Sig() == "" {
		return nil
	}
	args := pysig.Parse(fn.Sig())
	params := make([]string, 0, len(args))
	for _, a := range args {
		if a.Name == "/" {
			continue
		}
		tok := a.Name
		if a.DefVal != "" {
			tok += "=" + r.canonicalDefault(a.DefVal)
		}
		params = append(params, tok)
	}
	return reconcile(params, defaults)
}

func (r *Resolver) canonicalDefault(text string) string {
	e, err := pysig.ParseExpr(text)
	if err != nil {
		r.log.Debug("unparseable default value", zap.String("value", text), zap.Error(err))
		return "None"
	}
	if !pysig.Literal(e) {
		return "None"
	}
	v, ok := pysig.Render(e)
	if !ok {
		return "None"
	}
	return v
}

func (r *Resolver) fromArgSpec(fn *pyobj.Object, defaults []string) []string {
	if fn == nil || fn == pyobj.NoValue {
		return nil
	}
	spec := fn.Spec()
	if spec == nil {
		return nil
	}
	params := append([]string(nil), spec.Args...)
	if spec.VarArgs != "" {
		params = append(params, "*"+spec.VarArgs)
	}
	if spec.VarKw != "" {
		params = append(params, "**"+spec.VarKw)
	}
	return reconcile(params, defaults)
}

func (r *Resolver) fromKnown(name, scope, alias string) []string {
	spec, ok := r.kb.ArgSpec(alias, scope, name)
	if !ok {
		return nil
	}
	params := pysig.SplitArgs(spec)
	if params == nil {
		params = []string{}
	}
	return params
}

// fromDocstring extracts the leading call expression of a docstring and
// parses it as a miniature function header, trying each textual repair in
// turn. When allowMismatch is false a header declaring a different name is
// rejected with a warning.
func (r *Resolver) fromDocstring(name, doc string, allowMismatch bool, defaults []string) []string {
	call := pysig.ExtractCall(doc)
	if call == "" {
		return nil
	}
	for _, variant := range pysig.RepairVariants(call) {
		h, err := pysig.ParseHeader(variant)
		if err != nil {
			continue
		}
		if !allowMismatch && h.Name != name {
			r.log.Warn("function had call to different name in docstring",
				zap.String("function", name),
				zap.String("called", h.Name))
			continue
		}
		return reconcile(r.headerParams(h), defaults)
	}
	return nil
}

// headerParams renders header parameters into their final token form. Once
// any parameter has carried a default, later defaultless parameters are
// backfilled with None so the header stays valid Python.
func (r *Resolver) headerParams(h *pysig.Header) []string {
	seen := map[string]bool{}
	sawDefault := false
	params := make([]string, 0, len(h.Params))
	for _, p := range h.Params {
		if p.PosOnly || p.Name == "*" {
			continue
		}
		name := uniqueName(p.Name, seen)
		switch p.Star {
		case 1:
			params = append(params, "*"+name)
			continue
		case 2:
			params = append(params, "**"+name)
			continue
		}
		if p.Default != nil {
			if v, ok := pysig.Render(p.Default); ok {
				sawDefault = true
				params = append(params, name+"="+v)
				continue
			}
			r.log.Debug("dropping unrenderable default", zap.String("param", p.Name))
		}
		if sawDefault {
			params = append(params, name+"=None")
			continue
		}
		params = append(params, name)
	}
	return params
}

// reconcile splices the implicit leading parameters into a derived parameter
// list: prepended wholesale when the list is shorter, otherwise replacing the
// prefix up to the first mismatching token. A "type" token matching an
// expected "cls" is not a mismatch.
func reconcile(params, defaults []string) []string {
	if len(params) < len(defaults) {
		return append(append([]string(nil), defaults...), params...)
	}
	for i, want := range defaults {
		if want == "cls" && params[i] == "type" {
			continue
		}
		if want != params[i] {
			return append(append([]string(nil), defaults...), params[i:]...)
		}
	}
	return params
}

func uniqueName(name string, seen map[string]bool) string {
	if !seen[name] {
		seen[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !seen[candidate] {
			seen[candidate] = true
			return candidate
		}
	}
}
