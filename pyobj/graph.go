package pyobj

// graph.go — JSON wire format for dump graphs produced by _xtool/pydump.
//
// The interpreter-side object graph is cyclic (a type's type is type), so
// objects are serialized as a flat table and cross-linked by index. Floats
// travel as strings because JSON cannot carry nan/inf.

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

type graphFile struct {
	Root    int           `json:"root"`
	Objects []graphObject `json:"objects"`
}

type graphObject struct {
	Type       int               `json:"type"`
	Name       string            `json:"name,omitempty"`
	Module     string            `json:"module,omitempty"`
	Doc        string            `json:"doc,omitempty"`
	Repr       *string           `json:"repr,omitempty"`
	Class      bool              `json:"class,omitempty"`
	IsModule   bool              `json:"isModule,omitempty"`
	Callable   bool              `json:"callable,omitempty"`
	Descriptor bool              `json:"descriptor,omitempty"`
	Sig        string            `json:"sig,omitempty"`
	ArgSpec    *ArgSpec          `json:"argspec,omitempty"`
	Float      string            `json:"float,omitempty"`
	Bases      []int             `json:"bases,omitempty"`
	MRO        []int             `json:"mro,omitempty"`
	Dir        []string          `json:"dir,omitempty"`
	Attrs      map[string]int    `json:"attrs,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// DecodeGraph reads a dump graph and returns its root object (the scraped
// namespace).
func DecodeGraph(r io.Reader) (*Object, error) {
	var g graphFile
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode dump graph: %w", err)
	}
	if g.Root < 0 || g.Root >= len(g.Objects) {
		return nil, fmt.Errorf("decode dump graph: root index %d out of range", g.Root)
	}

	objs := make([]*Object, len(g.Objects))
	for i := range g.Objects {
		objs[i] = &Object{}
	}
	at := func(idx int) (*Object, error) {
		if idx == -1 {
			return nil, nil
		}
		if idx < 0 || idx >= len(objs) {
			return nil, fmt.Errorf("decode dump graph: object index %d out of range", idx)
		}
		return objs[idx], nil
	}

	for i, raw := range g.Objects {
		o := objs[i]
		typ, err := at(raw.Type)
		if err != nil {
			return nil, err
		}
		o.typ = typ
		o.name = raw.Name
		o.module = raw.Module
		o.doc = raw.Doc
		if raw.Repr != nil {
			o.repr = *raw.Repr
			o.hasRepr = true
		}
		o.class = raw.Class
		o.modns = raw.IsModule
		o.callable = raw.Callable
		o.descriptor = raw.Descriptor
		o.sig = raw.Sig
		o.argspec = raw.ArgSpec
		if raw.Float != "" {
			f, err := strconv.ParseFloat(raw.Float, 64)
			if err != nil {
				return nil, fmt.Errorf("decode dump graph: object %d: bad float %q", i, raw.Float)
			}
			o.floatVal = f
			o.isFloat = true
		}
		for _, b := range raw.Bases {
			base, err := at(b)
			if err != nil {
				return nil, err
			}
			o.bases = append(o.bases, base)
		}
		for _, m := range raw.MRO {
			entry, err := at(m)
			if err != nil {
				return nil, err
			}
			o.mro = append(o.mro, entry)
		}
		o.dir = raw.Dir
		seen := make(map[string]bool, len(raw.Dir))
		for _, name := range raw.Dir {
			seen[name] = true
			if idx, ok := raw.Attrs[name]; ok {
				v, err := at(idx)
				if err != nil {
					return nil, err
				}
				o.SetAttr(name, v)
			} else if msg, ok := raw.Errors[name]; ok {
				o.SetAttrError(name, msg)
			}
		}
		// Attrs outside dir are allowed: dump helpers use them to expose
		// objects that have no importable name (iterator types and such).
		extra := make([]string, 0, len(raw.Attrs))
		for name := range raw.Attrs {
			if !seen[name] {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			v, err := at(raw.Attrs[name])
			if err != nil {
				return nil, err
			}
			o.SetAttr(name, v)
		}
	}
	// Base links must all exist before resolution orders are derived.
	for _, o := range objs {
		if o.class && o.mro == nil {
			o.mro = linearize(o)
		}
	}
	return objs[g.Root], nil
}
