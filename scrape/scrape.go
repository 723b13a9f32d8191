package scrape

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lunebeam/PTVS/pyobj"
	"github.com/lunebeam/PTVS/pysig"
)

// Scraper drives the two-phase traversal of a namespace: the top-level pass
// over the namespace's members, then a second pass into the locally declared
// classes. It holds no per-scan state; a Scan does.
type Scraper struct {
	kb  *KnowledgeBase
	res *Resolver
	cls *Classifier
	log *zap.Logger
}

func New(kb *KnowledgeBase, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	res := NewResolver(kb, log)
	return &Scraper{
		kb:  kb,
		res: res,
		cls: NewClassifier(kb, res, log),
		log: log,
	}
}

// Scan is the mutable state of one scrape: the target namespace, the entries
// collected so far, and the names to drop after the top-level pass.
type Scan struct {
	ModuleName string
	Module     *pyobj.Object
	Members    []*Entry
	Excluded   []string
}

func (s *Scraper) NewScan(moduleName string, module *pyobj.Object) *Scan {
	return &Scan{ModuleName: moduleName, Module: module}
}

// Run performs a complete scrape and writes the stub to w.
func (s *Scraper) Run(scan *Scan, w io.Writer) error {
	if err := s.CollectTopLevel(scan); err != nil {
		return err
	}
	s.FilterExcluded(scan)
	if err := s.CollectSecondLevel(scan); err != nil {
		return err
	}
	return s.Dump(scan, w)
}

// CollectTopLevel collects the namespace's own members, then prepends
// declarations for any locally named types that were used but never bound.
func (s *Scraper) CollectTopLevel(scan *Scan) error {
	if err := s.collectMembers(scan, scan.Module, &scan.Members, moduleSubstitutes(), nil); err != nil {
		return err
	}

	names := map[string]bool{}
	for _, m := range scan.Members {
		names[m.Name] = true
	}
	var undeclared []*Entry
	for _, m := range scan.Members {
		if m.Value == nil || m.Value == pyobj.NoValue || isNone(m.Value) {
			continue
		}
		if m.TypeName == "" || strings.Contains(m.TypeName, ".") || names[m.TypeName] {
			continue
		}
		undeclared = append(undeclared, s.cls.Classify(m.TypeName, m.Value.TypeOf(), ClassifyOptions{
			Module: scan.ModuleName,
		}))
		names[m.TypeName] = true
	}
	scan.Members = append(undeclared, scan.Members...)
	return nil
}

// FilterExcluded drops top-level entries by name.
func (s *Scraper) FilterExcluded(scan *Scan) {
	if len(scan.Excluded) == 0 {
		return
	}
	excluded := map[string]bool{}
	for _, name := range scan.Excluded {
		excluded[name] = true
	}
	kept := scan.Members[:0]
	for _, m := range scan.Members {
		if !excluded[m.Name] {
			kept = append(kept, m)
		}
	}
	scan.Members = kept
}

// CollectSecondLevel collects the members of every locally declared class.
// When a class's bound name differs from its own name it behaves as a static
// namespace, so every callable member gains a static binding.
func (s *Scraper) CollectSecondLevel(scan *Scan) error {
	for _, mi := range scan.Members {
		if !s.shouldCollectMembers(scan, mi) {
			continue
		}
		subs := classSubstitutes()
		subs["__class__"] = &Entry{Name: "__class__", Literal: mi.TypeName}
		if err := s.collectMembers(scan, mi.Value, &mi.Members, subs, mi); err != nil {
			return err
		}
		if mi.ScopeName != mi.TypeName {
			for _, m := range mi.Members {
				if m.Signature != nil {
					m.Signature.Decorators = append(m.Signature.Decorators, "@staticmethod")
				}
			}
		}
	}
	return nil
}

func (s *Scraper) shouldCollectMembers(scan *Scan, mi *Entry) bool {
	if containsString(mi.NeedImports, scan.ModuleName) && mi.Name == mi.TypeName {
		return true
	}
	// cffi libs expose their real members behind a marker type.
	return mi.TypeName == "builtins.CompiledLib"
}

func (s *Scraper) collectMembers(scan *Scan, mod *pyobj.Object, members *[]*Entry, substitutes map[string]*Entry, outer *Entry) error {
	if mod == nil {
		return fmt.Errorf("failed to import module %s", scan.ModuleName)
	}
	if mod == pyobj.NoValue {
		return nil
	}

	existing := map[string]bool{}
	for _, m := range *members {
		existing[m.Name] = true
	}

	scope, scopeAlias := "", ""
	if outer != nil {
		scope, scopeAlias = outer.ScopeName, outer.Alias
	}
	modScope := scan.ModuleName
	if scope != "" {
		modScope = scan.ModuleName + "." + scope
	}
	namespaceDoc := mod.Doc()
	var mro []*pyobj.Object
	if full := mod.MRO(); len(full) > 1 {
		mro = full[1:]
	}

	for _, name := range mod.Dir() {
		if pysig.IsKeyword(name) {
			continue
		}
		if sub, ok := substitutes[name]; ok {
			if sub != nil {
				*members = append(*members, sub)
			}
			continue
		}
		if sub, ok := substitutes[modScope+"."+name]; ok {
			if sub != nil {
				*members = append(*members, sub)
			}
			continue
		}
		if existing[name] {
			continue
		}
		value, err := mod.GetAttr(name)
		if err != nil {
			s.log.Warn("error getting attribute",
				zap.String("scope", modScope),
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		if !shouldAddValue(value) {
			continue
		}
		if mroContains(mro, name, value) {
			continue
		}
		e := s.cls.Classify(name, value, ClassifyOptions{
			Scope:        scope,
			ScopeAlias:   scopeAlias,
			Module:       scan.ModuleName,
			NamespaceDoc: namespaceDoc,
		})
		e.Name = uniqueName(e.Name, existing)
		*members = append(*members, e)
	}
	return nil
}

// shouldAddValue rejects nested namespaces; everything else is collected,
// with cffi lib markers allowed through unconditionally.
func shouldAddValue(v *pyobj.Object) bool {
	if v == nil {
		return false
	}
	if typeKey(v.TypeOf()) == "builtins.CompiledLib" {
		return true
	}
	return !v.IsModule()
}

// mroContains reports whether an ancestor already provides this exact value,
// by identity.
func mroContains(mro []*pyobj.Object, name string, value *pyobj.Object) bool {
	for _, ancestor := range mro {
		if inherited, err := ancestor.GetAttr(name); err == nil && inherited == value {
			return true
		}
	}
	return false
}

func moduleSubstitutes() map[string]*Entry {
	return map[string]*Entry{
		"__builtins__": {Name: "__builtins__", Literal: "{}"},
		"__spec__":     nil,
		"__loader__":   nil,
	}
}

func classSubstitutes() map[string]*Entry {
	return map[string]*Entry{
		"__bases__": {Name: "__bases__", Literal: "()"},
		"__mro__":   {Name: "__mro__", Literal: "()"},
		"__dict__":  {Name: "__dict__", Literal: "{}"},
		"__doc__":   nil,
		"__new__":   nil,
	}
}

// Dump writes the collected entries: sorted imports first, then every
// top-level entry separated by a single blank line.
func (s *Scraper) Dump(scan *Scan, w io.Writer) error {
	imports := map[string]bool{}
	var walk func(entries []*Entry)
	walk = func(entries []*Entry) {
		for _, e := range entries {
			if e == noValueMember {
				continue
			}
			for _, im := range e.NeedImports {
				if im != "" {
					imports[im] = true
				}
			}
			walk(e.Members)
		}
	}
	walk(scan.Members)
	delete(imports, scan.ModuleName)

	names := make([]string, 0, len(imports))
	for name := range imports {
		names = append(names, name)
	}
	sort.Strings(names)

	bw := bufio.NewWriter(w)
	for _, name := range names {
		fmt.Fprintln(bw, "import "+name)
	}
	if len(names) > 0 {
		fmt.Fprintln(bw)
	}
	for i, e := range scan.Members {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, e.Render(""))
	}
	return bw.Flush()
}
