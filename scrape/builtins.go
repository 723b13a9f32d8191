package scrape

import (
	"strings"

	"go.uber.org/zap"

	"github.com/lunebeam/PTVS/pyobj"
)

// BuiltinExclusions returns the member names dropped from a builtins scan
// after the top-level pass. None, False and True are keywords in the stub
// grammar; __debug__ cannot be assigned.
func BuiltinExclusions(legacy bool) []string {
	names := []string{"None", "False", "True", "__debug__"}
	if legacy {
		names = append(names, "print")
	}
	return names
}

// AddBuiltinObjects seeds a builtins scan with the alias-type entries the
// analysis backend relies on: each well-known type is published under its own
// name plus a stable __Alias__ binding, so protocol knowledge keyed by alias
// applies during the second-level pass. Must run before CollectTopLevel so
// the seeded names take precedence over the plain scan.
//
// lookup resolves a type by name against the live namespace and may return
// nil; iterator types have no importable name and come from the dump helper's
// auxiliary attributes.
func (s *Scraper) AddBuiltinObjects(scan *Scan, lookup func(name string) *pyobj.Object) {
	addSimple := func(name, doc string, members ...*Entry) {
		scan.Members = append(scan.Members, &Entry{
			Name:        name,
			Value:       pyobj.NoValue,
			Doc:         doc,
			NeedImports: []string{scan.ModuleName},
			Members:     members,
		})
	}
	addLiteral := func(name, literal string) {
		scan.Members = append(scan.Members, &Entry{Name: name, Literal: literal})
	}
	addType := func(alias, typeName string) {
		t := lookup(typeName)
		if t == nil {
			s.log.Warn("builtin type not found", zap.String("type", typeName))
			return
		}
		mi := s.cls.Classify(t.Name(), t, ClassifyOptions{Module: scan.ModuleName, Alias: alias})
		scan.Members = append(scan.Members, mi, &Entry{Name: alias, Literal: mi.Name})
	}

	addSimple("__Unknown__", "<unknown>", &Entry{Name: "__name__", Literal: `"<unknown>"`})
	addSimple("__NoneType__", "the type of the None object", noValueMember)

	addType("__Object__", "object")
	addType("__Type__", "type")
	addType("__Int__", "int")
	addType("__Bool__", "bool")
	addLiteral("__Long__", "__Int__")
	addType("__Float__", "float")
	addType("__Complex__", "complex")
	addType("__Tuple__", "tuple")
	addType("__List__", "list")
	addType("__Dict__", "dict")
	addType("__Set__", "set")
	addType("__FrozenSet__", "frozenset")
	addType("__Bytes__", "bytes")
	addType("__BytesIterator__", "bytes_iterator")
	addType("__Unicode__", "str")
	addType("__UnicodeIterator__", "str_iterator")
	addLiteral("__Str__", "__Unicode__")
	addLiteral("__StrIterator__", "__UnicodeIterator__")
	addType("__Module__", "module")
	addType("__Function__", "function")
	addType("__BuiltinMethodDescriptor__", "method_descriptor")
	addType("__BuiltinFunction__", "builtin_function_or_method")
	addType("__Generator__", "generator")
	addType("__Property__", "property")
	addType("__ClassMethod__", "classmethod")
	addType("__StaticMethod__", "staticmethod")
	addType("__Ellipsis__", "ellipsis")
	addType("__TupleIterator__", "tuple_iterator")
	addType("__ListIterator__", "list_iterator")
	addType("__DictKeys__", "dict_keys")
	addType("__DictValues__", "dict_values")
	addType("__DictItems__", "dict_items")
	addType("__SetIterator__", "set_iterator")
	addType("__CallableIterator__", "callable_iterator")

	// Cache the interpreter's compiled-in module names alongside the stub.
	if names := lookup("builtin_module_names"); names != nil {
		if repr, ok := names.Repr(); ok {
			addLiteral("__builtin_module_names__", `"`+strings.Trim(repr, `'"`)+`"`)
		}
	}
}
