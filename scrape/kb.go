// Package scrape inspects an introspected Python namespace and synthesizes a
// deterministic, syntactically valid stub of its public shape.
package scrape

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed kb.yaml kb_builtins.yaml kb_legacy.yaml
var kbFS embed.FS

// Overlay selects an additional knowledge-base document merged over the base
// tables at construction time.
type Overlay string

const (
	// OverlayBuiltins adds the protocol tables keyed by the builtin alias
	// scopes (__Int__, __Dict__, ...), used when scraping the builtin
	// namespace.
	OverlayBuiltins Overlay = "builtins"
	// OverlayLegacy adjusts the tables for old interpreters.
	OverlayLegacy Overlay = "legacy"
)

// KnowledgeBase holds curated return-expression and parameter-list tables for
// well-known protocol members, plus the set of type origins known to be
// wrong. It is immutable once constructed.
type KnowledgeBase struct {
	restypes map[string][]string
	argspecs map[string]string
	lies     map[string]bool
}

type kbDoc struct {
	Restypes map[string]*restypeEntry `yaml:"restypes"`
	Argspecs map[string]*string       `yaml:"argspecs"`
	Lies     []string                 `yaml:"liesAboutModule"`
}

// restypeEntry is a scalar or a sequence of return expressions. A null value
// in an overlay deletes the key.
type restypeEntry struct {
	exprs []string
}

func (r *restypeEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		r.exprs = []string{s}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&r.exprs)
	}
	return fmt.Errorf("restype entry must be a string or a list, got %v", node.Kind)
}

// NewKnowledgeBase loads the base tables and merges the requested overlays,
// in order. Null overlay values delete keys.
func NewKnowledgeBase(overlays ...Overlay) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		restypes: map[string][]string{},
		argspecs: map[string]string{},
		lies:     map[string]bool{},
	}
	docs := []string{"kb.yaml"}
	for _, o := range overlays {
		switch o {
		case OverlayBuiltins:
			docs = append(docs, "kb_builtins.yaml")
		case OverlayLegacy:
			docs = append(docs, "kb_legacy.yaml")
		default:
			return nil, fmt.Errorf("unknown knowledge base overlay %q", o)
		}
	}
	for _, name := range docs {
		data, err := kbFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("load knowledge base %s: %w", name, err)
		}
		var doc kbDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse knowledge base %s: %w", name, err)
		}
		for key, entry := range doc.Restypes {
			if entry == nil {
				delete(kb.restypes, key)
				continue
			}
			kb.restypes[key] = entry.exprs
		}
		for key, spec := range doc.Argspecs {
			if spec == nil {
				delete(kb.argspecs, key)
				continue
			}
			kb.argspecs[key] = *spec
		}
		for _, name := range doc.Lies {
			kb.lies[name] = true
		}
	}
	return kb, nil
}

// ArgSpec returns the curated parameter-list string for a member, trying the
// alias-qualified key, then the scope-qualified key, then the bare name.
// Empty values behave as absent at every level.
func (kb *KnowledgeBase) ArgSpec(alias, scope, name string) (string, bool) {
	for _, key := range kbKeys(alias, scope, name) {
		if spec := kb.argspecs[key]; spec != "" {
			return spec, true
		}
	}
	return "", false
}

// ReturnExprs returns the curated return expressions for a member, with the
// same precedence as ArgSpec.
func (kb *KnowledgeBase) ReturnExprs(alias, scope, name string) ([]string, bool) {
	for _, key := range kbKeys(alias, scope, name) {
		exprs := kb.restypes[key]
		if len(exprs) == 0 || (len(exprs) == 1 && exprs[0] == "") {
			continue
		}
		return exprs, true
	}
	return nil, false
}

// LiesAboutModule reports whether the fully qualified type name is known to
// report a wrong origin module.
func (kb *KnowledgeBase) LiesAboutModule(fullname string) bool {
	return kb.lies[fullname]
}

func kbKeys(alias, scope, name string) []string {
	keys := make([]string, 0, 3)
	if alias != "" {
		keys = append(keys, alias+"."+name)
	}
	if scope != "" {
		keys = append(keys, scope+"."+name)
	}
	return append(keys, name)
}
