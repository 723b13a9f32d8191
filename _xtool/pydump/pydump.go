// pydump imports a Python module inside a live interpreter and writes its
// object graph as JSON on stdout. The graph is cyclic, so objects are emitted
// as a flat table cross-linked by index; floats travel as strings.
//
// Built with llgo so that it links against libpython directly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	_ "unsafe"

	"github.com/goplus/lib/c"
	"github.com/goplus/lib/py"
	"github.com/goplus/lib/py/inspect"
)

//go:linkname ErrClear C.PyErr_Clear
func ErrClear()

//go:linkname LongFromLong C.PyLong_FromLong
func LongFromLong(v c.Long) *py.Object { return nil }

//go:linkname UnicodeFromString C.PyUnicode_FromString
func UnicodeFromString(s *c.Char) *py.Object { return nil }

type argSpec struct {
	Args    []string `json:"args"`
	VarArgs string   `json:"varargs,omitempty"`
	VarKw   string   `json:"varkw,omitempty"`
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
	ArgSpec    *argSpec          `json:"argspec,omitempty"`
	Float      string            `json:"float,omitempty"`
	Bases      []int             `json:"bases,omitempty"`
	MRO        []int             `json:"mro,omitempty"`
	Dir        []string          `json:"dir,omitempty"`
	Attrs      map[string]int    `json:"attrs,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type graphFile struct {
	Root    int            `json:"root"`
	Objects []*graphObject `json:"objects"`
}

type dumper struct {
	objects  []*graphObject
	index    map[*py.Object]int
	expanded map[int]int

	builtins   *py.Object
	typeType   *py.Object
	floatType  *py.Object
	strType    *py.Object
	moduleType *py.Object
	reprFn     *py.Object
	dirFn      *py.Object
	isinstance *py.Object
	argspecFn  *py.Object
}

func newDumper() *dumper {
	builtins := py.ImportModule(c.AllocaCStr("builtins"))
	types := py.ImportModule(c.AllocaCStr("types"))
	insp := py.ImportModule(c.AllocaCStr("inspect"))
	d := &dumper{
		index:      make(map[*py.Object]int),
		expanded:   make(map[int]int),
		builtins:   builtins,
		typeType:   builtins.GetAttrString(c.Str("type")),
		floatType:  builtins.GetAttrString(c.Str("float")),
		strType:    builtins.GetAttrString(c.Str("str")),
		moduleType: types.GetAttrString(c.Str("ModuleType")),
		reprFn:     builtins.GetAttrString(c.Str("repr")),
		dirFn:      builtins.GetAttrString(c.Str("dir")),
		isinstance: builtins.GetAttrString(c.Str("isinstance")),
		argspecFn:  insp.GetAttrString(c.Str("getfullargspec")),
	}
	return d
}

func (d *dumper) isa(obj, typ *py.Object) bool {
	r := d.isinstance.Call(py.Tuple(obj, typ), nil)
	if r == nil {
		ErrClear()
		return false
	}
	return r.IsTrue() == 1
}

func goStr(obj *py.Object) string {
	if obj == nil {
		return ""
	}
	s := obj.Str()
	if s == nil {
		ErrClear()
		return ""
	}
	return c.GoString(s.CStr())
}

// visit registers obj and returns its table index. expand controls how far
// the graph is walked: 0 records only metadata, higher values record dir()
// and attribute links one level deeper each.
func (d *dumper) visit(obj *py.Object, expand int) int {
	idx, seen := d.index[obj]
	if !seen {
		idx = len(d.objects)
		d.objects = append(d.objects, &graphObject{Type: -1})
		d.index[obj] = idx
		d.fillMeta(obj, idx)
	}
	if expand > d.expanded[idx] {
		d.expanded[idx] = expand
		d.fillLinks(obj, idx, expand)
	}
	return idx
}

func (d *dumper) fillMeta(obj *py.Object, idx int) {
	o := d.objects[idx]
	o.Class = d.isa(obj, d.typeType)
	o.IsModule = d.isa(obj, d.moduleType)
	if t := obj.Type(); t != nil {
		o.Type = d.visit(t, 0)
	}

	if o.Class || o.IsModule {
		o.Name = attrString(obj, "__name__")
		if o.Class {
			o.Module = attrString(obj, "__module__")
		}
	}
	if doc := obj.GetAttrString(c.Str("__doc__")); doc != nil {
		if d.isa(doc, d.strType) {
			o.Doc = goStr(doc)
		}
	} else {
		ErrClear()
	}

	o.Callable = !o.Class && obj.Callable() == 1
	if !o.Callable {
		if get := obj.GetAttrString(c.Str("__get__")); get != nil {
			o.Descriptor = true
		} else {
			ErrClear()
		}
	}

	if o.Callable || o.Class {
		if sig := inspect.Signature(obj); sig != nil {
			o.Sig = goStr(sig)
		} else {
			ErrClear()
		}
		o.ArgSpec = d.fullArgSpec(obj)
	}

	if !o.Class && !o.Callable && !o.IsModule {
		if d.isa(obj, d.floatType) {
			o.Float = goStr(d.reprFn.CallOneArg(obj))
			if o.Float == "nan" || o.Float == "inf" || o.Float == "-inf" {
				// strconv spells these differently but parses both forms.
				repr := "float('" + o.Float + "')"
				o.Repr = &repr
			} else {
				repr := o.Float
				o.Repr = &repr
			}
			return
		}
		if r := d.reprFn.CallOneArg(obj); r != nil {
			repr := goStr(r)
			o.Repr = &repr
		} else {
			ErrClear()
		}
	}
}

func (d *dumper) fillLinks(obj *py.Object, idx, expand int) {
	o := d.objects[idx]
	if o.Class {
		if bases := obj.GetAttrString(c.Str("__bases__")); bases != nil {
			o.Bases = o.Bases[:0]
			for i, n := 0, bases.TupleLen(); i < n; i++ {
				o.Bases = append(o.Bases, d.visit(bases.TupleItem(i), expand))
			}
		} else {
			ErrClear()
		}
		if mro := obj.GetAttrString(c.Str("__mro__")); mro != nil {
			o.MRO = o.MRO[:0]
			for i, n := 0, mro.TupleLen(); i < n; i++ {
				o.MRO = append(o.MRO, d.visit(mro.TupleItem(i), expand))
			}
		} else {
			ErrClear()
		}
	}

	names := d.dirFn.CallOneArg(obj)
	if names == nil {
		ErrClear()
		return
	}
	o.Dir = o.Dir[:0]
	if o.Attrs == nil {
		o.Attrs = map[string]int{}
	}
	for i, n := 0, names.ListLen(); i < n; i++ {
		nameObj := names.ListItem(i)
		name := c.GoString(nameObj.CStr())
		o.Dir = append(o.Dir, name)
		val := obj.GetAttr(nameObj)
		if val == nil {
			ErrClear()
			if o.Errors == nil {
				o.Errors = map[string]string{}
			}
			o.Errors[name] = "in dir() but not getattr()"
			continue
		}
		o.Attrs[name] = d.visit(val, expand-1)
	}
}

func (d *dumper) fullArgSpec(obj *py.Object) *argSpec {
	spec := d.argspecFn.CallOneArg(obj)
	if spec == nil {
		ErrClear()
		return nil
	}
	out := &argSpec{}
	if args := spec.GetAttrString(c.Str("args")); args != nil {
		for i, n := 0, args.ListLen(); i < n; i++ {
			out.Args = append(out.Args, c.GoString(args.ListItem(i).CStr()))
		}
	} else {
		ErrClear()
	}
	out.VarArgs = attrString(spec, "varargs")
	out.VarKw = attrString(spec, "varkw")
	return out
}

func attrString(obj *py.Object, name string) string {
	v := obj.GetAttrString(c.AllocaCStr(name))
	if v == nil {
		ErrClear()
		return ""
	}
	if v.CStr() == nil {
		ErrClear()
		return ""
	}
	return c.GoString(v.CStr())
}

// addBuiltinAux attaches types that have no importable name (iterator types
// and friends) to the root as out-of-dir attributes, so the scraper can look
// them up by a stable name.
func (d *dumper) addBuiltinAux(root *py.Object, rootIdx int) {
	o := d.objects[rootIdx]
	if o.Attrs == nil {
		o.Attrs = map[string]int{}
	}
	iterFn := d.builtins.GetAttrString(c.Str("iter"))
	noneObj := d.builtins.GetAttrString(c.Str("None"))
	types := py.ImportModule(c.AllocaCStr("types"))

	instance := func(typeName string) *py.Object {
		t := d.builtins.GetAttrString(c.AllocaCStr(typeName))
		if t == nil {
			ErrClear()
			return nil
		}
		v := t.Call(py.Tuple(), nil)
		if v == nil {
			ErrClear()
		}
		return v
	}
	iterType := func(v *py.Object) *py.Object {
		if v == nil {
			return nil
		}
		it := iterFn.CallOneArg(v)
		if it == nil {
			ErrClear()
			return nil
		}
		return it.Type()
	}
	add := func(name string, t *py.Object) {
		if t == nil {
			fmt.Fprintf(os.Stderr, "pydump: no auxiliary type %s\n", name)
			return
		}
		o.Attrs[name] = d.visit(t, 1)
	}

	add("module", types.GetAttrString(c.Str("ModuleType")))
	add("function", types.GetAttrString(c.Str("FunctionType")))
	add("generator", types.GetAttrString(c.Str("GeneratorType")))
	if objectType := d.builtins.GetAttrString(c.Str("object")); objectType != nil {
		if hash := objectType.GetAttrString(c.Str("__hash__")); hash != nil {
			add("method_descriptor", hash.Type())
		}
	}
	if ell := d.builtins.GetAttrString(c.Str("Ellipsis")); ell != nil {
		add("ellipsis", ell.Type())
	}

	add("tuple_iterator", iterType(instance("tuple")))
	add("list_iterator", iterType(instance("list")))
	add("set_iterator", iterType(instance("set")))
	add("bytes_iterator", iterType(instance("bytes")))
	add("str_iterator", iterType(instance("str")))
	if dict := instance("dict"); dict != nil {
		for _, method := range []string{"keys", "values", "items"} {
			view := dict.GetAttrString(c.AllocaCStr(method)).Call(py.Tuple(), nil)
			if view == nil {
				ErrClear()
				continue
			}
			add("dict_"+method, view.Type())
		}
	}
	if printFn := d.builtins.GetAttrString(c.Str("print")); printFn != nil {
		it := iterFn.Call(py.Tuple(printFn, noneObj), nil)
		if it == nil {
			ErrClear()
		} else {
			add("callable_iterator", it.Type())
		}
	}

	// Cache the compiled-in module names as a plain string value.
	if sysMod := py.ImportModule(c.AllocaCStr("sys")); sysMod != nil {
		if namesObj := sysMod.GetAttrString(c.Str("builtin_module_names")); namesObj != nil {
			var names []string
			for i, n := 0, namesObj.TupleLen(); i < n; i++ {
				names = append(names, c.GoString(namesObj.TupleItem(i).CStr()))
			}
			repr := "'" + strings.Join(names, ",") + "'"
			d.objects = append(d.objects, &graphObject{Type: -1, Repr: &repr})
			o.Attrs["builtin_module_names"] = len(d.objects) - 1
		} else {
			ErrClear()
		}
	}
}

func insertSearchPath(path string) {
	sysMod := py.ImportModule(c.AllocaCStr("sys"))
	if sysMod == nil {
		return
	}
	sysPath := sysMod.GetAttrString(c.Str("path"))
	if sysPath == nil {
		ErrClear()
		return
	}
	insert := sysPath.GetAttrString(c.Str("insert"))
	if insert == nil {
		ErrClear()
		return
	}
	if insert.Call(py.Tuple(LongFromLong(0), UnicodeFromString(c.AllocaCStr(path))), nil) == nil {
		ErrClear()
	}
}

func main() {
	searchPath := flag.String("path", "", "prepend to the module search path")
	preimport := flag.String("preimport", "", "import this module first")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pydump [-path dir] [-preimport mod] <py_module_name>")
		os.Exit(1)
	}
	moduleName := flag.Arg(0)

	if *searchPath != "" {
		insertSearchPath(*searchPath)
	}
	if *preimport != "" {
		if py.ImportModule(c.AllocaCStr(*preimport)) == nil {
			ErrClear()
			fmt.Fprintf(os.Stderr, "pydump: preimport %s failed\n", *preimport)
		}
	}

	mod := py.ImportModule(c.AllocaCStr(moduleName))
	if mod == nil {
		fmt.Fprintf(os.Stderr, "failed to import module %s\n", moduleName)
		os.Exit(1)
	}

	d := newDumper()
	rootIdx := d.visit(mod, 2)
	if moduleName == "builtins" {
		d.addBuiltinAux(mod, rootIdx)
	}

	data, err := json.Marshal(&graphFile{Root: rootIdx, Objects: d.objects})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal json: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
