package pysig

import (
	"fmt"
	"regexp"
	"strings"
)

// Param is one parameter of a strictly parsed function header.
type Param struct {
	Name       string
	Annotation string // parsed and discarded by rendering
	Default    Expr   // nil when absent
	Star       int    // 0 plain, 1 *name or bare *, 2 **name
	PosOnly    bool   // true for the "/" marker
}

// Header is a miniature function header of the form "name(params)".
type Header struct {
	Name   string
	Params []Param
}

// ExtractCall returns the leading balanced call expression of a docstring,
// e.g. "range(stop) -> range object" yields "range(stop)". Returns "" when
// the text does not start with one.
func ExtractCall(text string) string {
	if text == "" || !strings.Contains(text, ")") {
		return ""
	}
	text = strings.TrimLeft(text, " \t\r\n")
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ')':
			depth--
			if depth <= 0 {
				return text[:i+1]
			}
		case '(':
			depth++
		}
	}
	return ""
}

var (
	bracketedRe = regexp.MustCompile(`[\[\]]`)
	ownerCallRe = regexp.MustCompile(`^(\w+)\.(\w+)\(`)
	defaultRe   = regexp.MustCompile(`=.+?([,)])`)
)

// RepairVariants returns the candidate texts tried against ParseHeader, in
// order: the call as written, the call with square brackets (optional-group
// markers) removed, two rewrites of an "Owner.method(" prefix into a method
// header with a leading self, and finally the bracket-stripped call with
// default values removed. The first variant that parses wins.
func RepairVariants(call string) []string {
	stripped := bracketedRe.ReplaceAllString(call, "")
	return []string{
		call,
		stripped,
		ownerCallRe.ReplaceAllString(stripped, "$2(self : $1, "),
		ownerCallRe.ReplaceAllString(stripped, "$2(self, "),
		defaultRe.ReplaceAllString(stripped, "$1"),
	}
}

// ParseHeader parses text as a strict miniature function header. Unlike
// Parse it accepts only well-formed Python parameter syntax (annotations,
// defaults, *name/**name, bare * and /, trailing commas) and fails on
// anything else, so that the repair chain can move on to its next variant.
func ParseHeader(text string) (*Header, error) {
	p := &exprParser{s: text}
	p.skipSpace()
	name := p.ident()
	if name == "" || IsKeyword(name) {
		return nil, p.errf("expected function name")
	}
	p.skipSpace()
	if p.peek() != '(' {
		return nil, p.errf("expected '('")
	}
	p.pos++
	h := &Header{Name: name}
	sawDefault := false
	sawStar := false
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			break
		}
		if len(h.Params) > 0 {
			if p.peek() != ',' {
				return nil, p.errf("expected ',' or ')'")
			}
			p.pos++
			p.skipSpace()
			if p.peek() == ')' { // trailing comma
				p.pos++
				break
			}
		}
		param, err := parseParam(p)
		if err != nil {
			return nil, err
		}
		switch {
		case param.Star > 0:
			sawStar = true
		case param.Default != nil:
			sawDefault = true
		case sawDefault && !sawStar && !param.PosOnly:
			// A positional parameter without a default cannot follow one
			// with a default.
			return nil, p.errf("parameter %s lacks a default", param.Name)
		}
		h.Params = append(h.Params, param)
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errf("unexpected trailing text %q", p.s[p.pos:])
	}
	return h, nil
}

func parseParam(p *exprParser) (Param, error) {
	var param Param
	switch p.peek() {
	case '/':
		p.pos++
		return Param{Name: "/", PosOnly: true}, nil
	case '*':
		p.pos++
		param.Star = 1
		if p.peek() == '*' {
			p.pos++
			param.Star = 2
		}
		p.skipSpace()
		param.Name = p.ident()
		if param.Name == "" {
			if param.Star == 2 {
				return param, p.errf("expected parameter name after **")
			}
			param.Name = "*" // keyword-only marker
			return param, nil
		}
	default:
		param.Name = p.ident()
		if param.Name == "" {
			return param, p.errf("expected parameter name")
		}
	}
	if IsKeyword(param.Name) {
		return param, fmt.Errorf("parameter name %q is a keyword", param.Name)
	}
	p.skipSpace()
	if p.peek() == ':' {
		p.pos++
		ann, err := p.parseExprUntil()
		if err != nil {
			return param, err
		}
		param.Annotation, _ = Render(ann)
	}
	p.skipSpace()
	if p.peek() == '=' {
		p.pos++
		def, err := p.parseExprUntil()
		if err != nil {
			return param, err
		}
		param.Default = def
	}
	return param, nil
}

// parseExprUntil parses one expression stopping cleanly before a top-level
// ',' or ')'.
func (p *exprParser) parseExprUntil() (Expr, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if c := p.peek(); c != ',' && c != ')' {
		return nil, p.errf("unexpected character %q", c)
	}
	return e, nil
}
