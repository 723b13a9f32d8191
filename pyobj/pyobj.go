// Package pyobj models introspected Python runtime values: modules, type
// objects, callables, descriptors and plain values, together with the
// metadata the scraper needs (doc, repr, bases, mro, dir/getattr results,
// signature text and argspecs).
//
// Objects are created either by decoding a dump graph produced by the
// _xtool/pydump helper, or directly through a Universe in tests. Identity is
// pointer identity, matching the interpreter's `is`.
package pyobj

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lunebeam/PTVS/pysig"
)

// ArgSpec is the low-fidelity argument list of a callable, the equivalent of
// inspect.getfullargspec without annotations or defaults.
type ArgSpec struct {
	Args    []string `json:"args"`
	VarArgs string   `json:"varargs,omitempty"`
	VarKw   string   `json:"varkw,omitempty"`
}

// Object is one introspected runtime value.
type Object struct {
	typ        *Object
	name       string
	module     string
	doc        string
	repr       string
	hasRepr    bool
	class      bool
	modns      bool
	callable   bool
	descriptor bool
	sig        string
	argspec    *ArgSpec
	floatVal   float64
	isFloat    bool
	bases      []*Object
	mro        []*Object
	dir        []string
	names      []string
	attrs      map[string]*Object
	attrErrs   map[string]string
}

// NoValue marks an attribute that deliberately has no runtime value, used by
// synthetic entries injected around a scan. It is skipped by traversal.
var NoValue = &Object{}

// TypeOf returns the runtime type object, or nil if unknown.
func (o *Object) TypeOf() *Object { return o.typ }

// Name returns __name__ for types and modules, "" otherwise.
func (o *Object) Name() string { return o.name }

// Module returns __module__ for types, "" otherwise.
func (o *Object) Module() string { return o.module }

// Doc returns the attached __doc__ text, "" if absent or not a string.
func (o *Object) Doc() string { return o.doc }

// Repr returns the value's textual rendering and whether one exists.
func (o *Object) Repr() (string, bool) { return o.repr, o.hasRepr }

// IsClass reports whether the value is itself a type object.
func (o *Object) IsClass() bool { return o.class }

// IsModule reports whether the value is a module namespace.
func (o *Object) IsModule() bool { return o.modns }

// IsCallable reports whether the value exposes call access.
func (o *Object) IsCallable() bool { return o.callable || o.class }

// IsDescriptor reports whether the value exposes read access via __get__.
func (o *Object) IsDescriptor() bool { return o.descriptor }

// Sig returns the runtime's own signature text (inspect.signature), "" if
// unavailable.
func (o *Object) Sig() string { return o.sig }

// Spec returns the low-fidelity argspec, nil if unavailable.
func (o *Object) Spec() *ArgSpec { return o.argspec }

// Float returns the value as a float when it is one.
func (o *Object) Float() (float64, bool) { return o.floatVal, o.isFloat }

// Bases returns the declared base types of a type object.
func (o *Object) Bases() []*Object { return o.bases }

// MRO returns the method resolution order, starting with the object itself.
func (o *Object) MRO() []*Object { return o.mro }

// Dir enumerates attribute names. When no explicit dir was recorded (dump
// graphs always record one), the union of own and inherited names is
// returned sorted, like the interpreter's dir().
func (o *Object) Dir() []string {
	if o.dir != nil {
		return o.dir
	}
	seen := make(map[string]bool, len(o.names))
	names := make([]string, 0, len(o.names))
	add := func(ns []string) {
		for _, n := range ns {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	add(o.names)
	if len(o.mro) > 1 {
		for _, m := range o.mro[1:] {
			add(m.names)
		}
	}
	sort.Strings(names)
	return names
}

// GetAttr resolves an attribute by name, walking the mro for type objects.
// A recorded retrieval failure or an absent name yields an error.
func (o *Object) GetAttr(name string) (*Object, error) {
	if msg, ok := o.attrErrs[name]; ok {
		return nil, fmt.Errorf("%s", msg)
	}
	if v, ok := o.attrs[name]; ok {
		return v, nil
	}
	if len(o.mro) > 1 {
		for _, m := range o.mro[1:] {
			if v, ok := m.attrs[name]; ok {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("attribute %s is not retrievable", name)
}

// SetAttr binds an attribute. First binding of a name appends it to the
// object's own name list.
func (o *Object) SetAttr(name string, v *Object) {
	if o.attrs == nil {
		o.attrs = make(map[string]*Object)
	}
	if _, ok := o.attrs[name]; !ok {
		o.names = append(o.names, name)
	}
	o.attrs[name] = v
}

// SetAttrError records a name that enumerates but cannot be retrieved.
func (o *Object) SetAttrError(name, msg string) {
	if o.attrErrs == nil {
		o.attrErrs = make(map[string]string)
	}
	if _, ok := o.attrs[name]; !ok {
		if _, dup := o.attrErrs[name]; !dup {
			o.names = append(o.names, name)
		}
	}
	o.attrErrs[name] = msg
}

// SetDir pins the enumeration order (dump graphs use the interpreter's dir).
func (o *Object) SetDir(names []string) { o.dir = names }

// SetDoc attaches documentation text.
func (o *Object) SetDoc(doc string) { o.doc = doc }

// SetSig attaches the runtime's signature text.
func (o *Object) SetSig(sig string) { o.sig = sig }

// SetSpec attaches the low-fidelity argspec.
func (o *Object) SetSpec(spec *ArgSpec) { o.argspec = spec }

// SetDescriptor marks the value as exposing __get__.
func (o *Object) SetDescriptor(v bool) { o.descriptor = v }

// SetCallable marks the value as exposing __call__.
func (o *Object) SetCallable(v bool) { o.callable = v }

// SetMRO overrides the computed method resolution order.
func (o *Object) SetMRO(mro []*Object) { o.mro = mro }

// Universe owns the builtin type objects a graph is built against. Every
// test-constructed object hangs off one Universe so type identity works the
// same way it does in a decoded dump.
type Universe struct {
	builtins map[string]*Object
}

// builtinTypeNames lists the builtin types every graph starts with. The
// iterator and descriptor types matter for the builtins scan mode.
var builtinTypeNames = []string{
	"int", "float", "bool", "complex", "str", "bytes", "bytearray",
	"tuple", "list", "dict", "set", "frozenset",
	"NoneType", "ellipsis", "module", "mappingproxy",
	"function", "builtin_function_or_method", "method_descriptor",
	"wrapper_descriptor", "classmethod_descriptor", "classmethod",
	"staticmethod", "property", "getset_descriptor", "member_descriptor",
	"generator",
	"tuple_iterator", "list_iterator", "bytes_iterator", "str_iterator",
	"set_iterator", "dict_keys", "dict_values", "dict_items",
	"callable_iterator",
}

// NewUniverse seeds the builtin type graph.
func NewUniverse() *Universe {
	u := &Universe{builtins: make(map[string]*Object)}
	object := &Object{class: true, name: "object", module: "builtins"}
	typ := &Object{class: true, name: "type", module: "builtins", bases: []*Object{object}}
	object.typ = typ
	typ.typ = typ
	object.mro = []*Object{object}
	typ.mro = []*Object{typ, object}
	u.builtins["object"] = object
	u.builtins["type"] = typ
	for _, n := range builtinTypeNames {
		u.builtins[n] = u.NewClass("builtins", n, object)
	}
	return u
}

// Type returns a builtin type object by bare name, nil if not seeded.
func (u *Universe) Type(name string) *Object { return u.builtins[name] }

// NewClass creates a type object with the given origin module and bases.
func (u *Universe) NewClass(module, name string, bases ...*Object) *Object {
	o := &Object{
		typ:    u.builtins["type"],
		class:  true,
		name:   name,
		module: module,
		bases:  bases,
	}
	o.mro = linearize(o)
	return o
}

// NewModule creates a module namespace object.
func (u *Universe) NewModule(name, doc string) *Object {
	return &Object{typ: u.builtins["module"], modns: true, name: name, doc: doc}
}

// NewFunction creates a plain Python function value.
func (u *Universe) NewFunction(name, doc string) *Object {
	return &Object{typ: u.builtins["function"], callable: true, name: name, doc: doc}
}

// NewBuiltin creates a builtin function value (no Python-level metadata
// beyond its doc, which is the common case for extension modules).
func (u *Universe) NewBuiltin(name, doc string) *Object {
	return &Object{typ: u.builtins["builtin_function_or_method"], callable: true, name: name, doc: doc}
}

// NewMethodDescriptor creates an unbound builtin method value.
func (u *Universe) NewMethodDescriptor(name, doc string) *Object {
	return &Object{typ: u.builtins["method_descriptor"], callable: true, descriptor: true, name: name, doc: doc}
}

// NewClassMethodDescriptor creates a builtin classmethod wrapper value.
func (u *Universe) NewClassMethodDescriptor(name, doc string) *Object {
	return &Object{typ: u.builtins["classmethod_descriptor"], callable: true, descriptor: true, name: name, doc: doc}
}

// NewGetSet creates a property-like accessor value: read access, no call
// access.
func (u *Universe) NewGetSet(name, doc string) *Object {
	return &Object{typ: u.builtins["getset_descriptor"], descriptor: true, name: name, doc: doc}
}

// NewValue creates an otherwise-opaque instance of the given type with the
// given repr text.
func (u *Universe) NewValue(typ *Object, repr string) *Object {
	return &Object{typ: typ, repr: repr, hasRepr: true}
}

// NewStr creates a string value.
func (u *Universe) NewStr(s string) *Object {
	return &Object{typ: u.builtins["str"], repr: StringRepr(s), hasRepr: true}
}

// NewInt creates an integer value.
func (u *Universe) NewInt(i int64) *Object {
	return &Object{typ: u.builtins["int"], repr: strconv.FormatInt(i, 10), hasRepr: true}
}

// NewBool creates a boolean value.
func (u *Universe) NewBool(b bool) *Object {
	repr := "False"
	if b {
		repr = "True"
	}
	return &Object{typ: u.builtins["bool"], repr: repr, hasRepr: true}
}

// NewFloat creates a float value. The repr mirrors the interpreter's
// spellings, including the irreproducible nan/inf forms the classifier
// corrects.
func (u *Universe) NewFloat(f float64) *Object {
	return &Object{
		typ:      u.builtins["float"],
		repr:     floatRepr(f),
		hasRepr:  true,
		floatVal: f,
		isFloat:  true,
	}
}

// NewNone creates the null value.
func (u *Universe) NewNone() *Object {
	return &Object{typ: u.builtins["NoneType"], repr: "None", hasRepr: true}
}

// NewDict creates an opaque dict value.
func (u *Universe) NewDict() *Object { return u.NewValue(u.builtins["dict"], "{}") }

// NewTuple creates an opaque tuple value.
func (u *Universe) NewTuple() *Object { return u.NewValue(u.builtins["tuple"], "()") }

// NewList creates an opaque list value.
func (u *Universe) NewList() *Object { return u.NewValue(u.builtins["list"], "[]") }

func floatRepr(f float64) string {
	switch {
	case f != f:
		return "nan"
	case f > 0 && f*0.5 == f:
		return "inf"
	case f < 0 && f*0.5 == f:
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// linearize computes a depth-first, duplicate-free resolution order. It is
// not full C3 but matches it for the single-inheritance graphs dumps carry.
func linearize(o *Object) []*Object {
	seen := make(map[*Object]bool)
	var out []*Object
	var walk func(t *Object)
	walk = func(t *Object) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
		for _, b := range t.bases {
			walk(b)
		}
	}
	walk(o)
	return out
}

// StringRepr renders a Go string the way the interpreter's repr() renders
// str.
func StringRepr(s string) string { return pysig.Quote(s) }
