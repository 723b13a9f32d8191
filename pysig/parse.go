// Package pysig parses Python signature and docstring text: the loose
// arg-list form reported by the runtime's own introspection, and the strict
// miniature function headers found at the start of docstrings, including the
// textual repairs needed to make real-world docstrings parse.
package pysig

import "strings"

// Arg is one token of a loosely parsed signature such as
// "(a, b=1, *args, c: int = 2, **kw)". Markers like "*" and "/" appear as
// args with those literal names.
type Arg struct {
	Name     string
	Type     string
	DefVal   string
	Optional bool
}

// Parse tokenizes the parenthesized argument list at the start of sig.
// It is deliberately forgiving: unrenderable defaults (e.g. "<object ...>")
// come back verbatim in DefVal for the caller to canonicalize, bracketed
// optional groups are flattened with Optional set, and a trailing "..."
// becomes a variadic marker. Returns nil when sig has no argument list.
func Parse(sig string) (args []*Arg) {
	end := matchBracket(sig, '(', ')')
	if end == -1 {
		return nil
	}
	sig = sig[1:end]

	for {
		sig = strings.TrimSpace(sig)
		if sig == "" {
			return args
		}
		switch sig[0] {
		case ',':
			sig = sig[1:]
			continue
		case '[': // optional group: [a, b]
			var opt []*Arg
			opt, sig = parseOptional(sig)
			args = append(args, opt...)
			continue
		case '(': // grouped name: (a1, a2, ...)
			pos := matchBracket(sig, '(', ')')
			if pos < 0 {
				return args
			}
			args = append(args, &Arg{Name: strings.TrimSpace(sig[:pos+1])})
			sig = sig[pos+1:]
			continue
		}
		pos := strings.IndexAny(sig, ",:=[")
		if pos < 0 {
			pos = len(sig)
		}
		name := strings.TrimSpace(sig[:pos])
		if name == "" {
			sig = sig[pos:]
			if sig != "" {
				sig = sig[1:]
			}
			continue
		}
		if name == "..." {
			// A trailing ellipsis after keyword args means "more keyword
			// args"; after positional args it means "more positionals".
			if n := len(args); n > 0 && args[n-1].DefVal != "" {
				name = "**kwargs"
			} else {
				name = "**args"
			}
		}
		arg := &Arg{Name: name}
		args = append(args, arg)
		if pos == len(sig) {
			return args
		}
		switch sig[pos] {
		case ',':
			sig = sig[pos+1:]
		case '[':
			var opt []*Arg
			opt, sig = parseOptional(sig[pos:])
			args = append(args, opt...)
		case ':':
			arg.Type, sig = parseTypeText(sig[pos+1:])
			if strings.HasPrefix(sig, "=") {
				arg.DefVal, sig = parseDefaultText(sig[1:])
			}
			sig = strings.TrimPrefix(strings.TrimSpace(sig), ",")
		case '=':
			arg.DefVal, sig = parseDefaultText(sig[pos+1:])
			sig = strings.TrimPrefix(strings.TrimSpace(sig), ",")
		}
	}
}

func parseOptional(sig string) (opt []*Arg, rest string) {
	end := matchBracket(sig, '[', ']')
	if end == -1 {
		return nil, ""
	}
	opt = Parse("(" + sig[1:end] + ")")
	for _, a := range opt {
		a.Optional = true
	}
	return opt, sig[end+1:]
}

var bracketPairs = map[byte]byte{
	'(': ')',
	'[': ']',
	'{': '}',
}

func parseDefaultText(sig string) (defVal, rest string) {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return "", ""
	}
	if close, ok := bracketPairs[sig[0]]; ok {
		if idx := matchBracket(sig, sig[0], close); idx > 0 {
			return strings.TrimSpace(sig[:idx+1]), sig[idx+1:]
		}
	}
	pos := strings.IndexAny(sig, "[,)")
	if pos < 0 {
		return strings.TrimSpace(sig), ""
	}
	return strings.TrimSpace(sig[:pos]), sig[pos:]
}

func parseTypeText(sig string) (typeStr, rest string) {
	right := strings.IndexAny(sig, "=,)[")
	if right < 0 {
		return "", sig
	}
	if sig[right] == '[' { // subscripted type: Union[int, float]
		tail := strings.TrimSpace(sig[right+1:])
		if tail != "" && tail[0] != ',' {
			right += matchBracket(sig[right:], '[', ']')
			if idx := strings.IndexAny(sig[right:], "=,)"); idx >= 0 {
				right += idx
			}
		}
	}
	return strings.TrimSpace(sig[:right]), sig[right:]
}

// matchBracket returns the index of the close bracket matching the open
// bracket at position 0, or -1.
func matchBracket(s string, open, close byte) int {
	if s == "" || s[0] != open {
		return -1
	}
	depth := 1
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SplitArgs splits a parenthesized parameter-list string into its top-level
// comma-separated tokens, respecting nested brackets and quotes. Used for
// canonical parameter strings from the knowledge base, which are stored in
// their rendered form.
func SplitArgs(spec string) []string {
	spec = strings.TrimSpace(spec)
	spec = strings.TrimPrefix(spec, "(")
	spec = strings.TrimSuffix(spec, ")")
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(spec); i++ {
		c := spec[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				if tok := strings.TrimSpace(spec[start:i]); tok != "" {
					out = append(out, tok)
				}
				start = i + 1
			}
		}
	}
	if tok := strings.TrimSpace(spec[start:]); tok != "" {
		out = append(out, tok)
	}
	return out
}

// pythonKeywords are reserved words that can never be attribute or parameter
// names.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true,
}

// IsKeyword reports whether name is a Python reserved word.
func IsKeyword(name string) bool { return pythonKeywords[name] }
