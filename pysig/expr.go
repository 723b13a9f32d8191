package pysig

import (
	"fmt"
	"strings"
)

// Expr is a parsed default-value expression. The grammar is the small subset
// of Python expressions that appears in signature text: names, dotted names,
// numeric and string literals, unary minus, the "|" union operator, tuple,
// list and dict displays, calls, and the ellipsis.
type Expr interface {
	render(b *strings.Builder) bool
}

type (
	// NameExpr is an identifier, including the constants True/False/None.
	NameExpr struct{ ID string }
	// NumExpr carries the literal source text of a number.
	NumExpr struct{ Text string }
	// StrExpr carries the unescaped content of a string literal.
	StrExpr struct {
		Content string
		Prefix  string // "b" for bytes literals
	}
	// EllipsisExpr is the "..." token.
	EllipsisExpr struct{}
	// UnaryExpr is unary minus.
	UnaryExpr struct{ Operand Expr }
	// BinaryExpr is a "|" union.
	BinaryExpr struct{ Left, Right Expr }
	// AttrExpr is dotted attribute access.
	AttrExpr struct {
		Value Expr
		Name  string
	}
	// TupleExpr is a parenthesized or bare tuple display.
	TupleExpr struct{ Elts []Expr }
	// ListExpr is a list display.
	ListExpr struct{ Elts []Expr }
	// DictExpr is a dict or set display. Contents are not kept: dict
	// defaults always collapse to an empty display.
	DictExpr struct{}
	// CallExpr is a call. Calls are never renderable as defaults.
	CallExpr struct{ Fn Expr }
)

// Render converts an expression to its canonical textual form, reporting
// whether the expression is representable at all. Calls are not; containers
// holding an unrepresentable element collapse to their empty display; dicts
// always collapse to "{}".
func Render(e Expr) (string, bool) {
	var b strings.Builder
	if !e.render(&b) {
		return "", false
	}
	return b.String(), true
}

// Literal reports whether e is a literal in the sense of the runtime's
// literal evaluator: names other than the singleton constants are not.
func Literal(e Expr) bool {
	switch e := e.(type) {
	case *NameExpr:
		return e.ID == "True" || e.ID == "False" || e.ID == "None"
	case *NumExpr, *StrExpr, *EllipsisExpr, *DictExpr:
		return true
	case *UnaryExpr:
		return Literal(e.Operand)
	case *TupleExpr:
		for _, elt := range e.Elts {
			if !Literal(elt) {
				return false
			}
		}
		return true
	case *ListExpr:
		for _, elt := range e.Elts {
			if !Literal(elt) {
				return false
			}
		}
		return true
	}
	return false
}

func (e *NameExpr) render(b *strings.Builder) bool {
	b.WriteString(e.ID)
	return true
}

func (e *NumExpr) render(b *strings.Builder) bool {
	b.WriteString(e.Text)
	return true
}

func (e *StrExpr) render(b *strings.Builder) bool {
	b.WriteString(e.Prefix)
	b.WriteString(Quote(e.Content))
	return true
}

func (e *EllipsisExpr) render(b *strings.Builder) bool {
	b.WriteString("...")
	return true
}

func (e *UnaryExpr) render(b *strings.Builder) bool {
	b.WriteByte('-')
	return e.Operand.render(b)
}

func (e *BinaryExpr) render(b *strings.Builder) bool {
	if !e.Left.render(b) {
		return false
	}
	b.WriteByte('|')
	return e.Right.render(b)
}

func (e *AttrExpr) render(b *strings.Builder) bool {
	if !e.Value.render(b) {
		return false
	}
	b.WriteByte('.')
	b.WriteString(e.Name)
	return true
}

func (e *TupleExpr) render(b *strings.Builder) bool {
	return renderElts(b, e.Elts, "(", ")", len(e.Elts) == 1)
}

func (e *ListExpr) render(b *strings.Builder) bool {
	return renderElts(b, e.Elts, "[", "]", false)
}

// renderElts writes a container display; if any element is unrepresentable
// the whole display collapses to its empty form.
func renderElts(b *strings.Builder, elts []Expr, open, close string, trailing bool) bool {
	var inner strings.Builder
	ok := true
	for i, elt := range elts {
		if i > 0 {
			inner.WriteString(", ")
		}
		if !elt.render(&inner) {
			ok = false
			break
		}
	}
	b.WriteString(open)
	if ok {
		b.WriteString(inner.String())
		if trailing {
			b.WriteByte(',')
		}
	}
	b.WriteString(close)
	return true
}

func (e *DictExpr) render(b *strings.Builder) bool {
	b.WriteString("{}")
	return true
}

func (e *CallExpr) render(b *strings.Builder) bool { return false }

// ParseExpr parses a complete default-value expression.
func ParseExpr(text string) (Expr, error) {
	p := &exprParser{s: text}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.s[p.pos:], p.pos)
	}
	return e, nil
}

type exprParser struct {
	s   string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

func (p *exprParser) errf(format string, args ...any) error {
	return fmt.Errorf(format+" at offset %d", append(args, p.pos)...)
}

// parseExpr handles the lowest-precedence "|" chain.
func (p *exprParser) parseExpr() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.peek() != '|' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Right: right}
	}
}

func (p *exprParser) parseUnary() (Expr, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses an atom followed by any number of ".name" accesses and
// "(...)" calls.
func (p *exprParser) parsePostfix() (Expr, error) {
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '.':
			if strings.HasPrefix(p.s[p.pos:], "...") {
				return e, nil
			}
			p.pos++
			p.skipSpace()
			name := p.ident()
			if name == "" {
				return nil, p.errf("expected attribute name")
			}
			e = &AttrExpr{Value: e, Name: name}
		case '(':
			if err := p.skipBalanced('(', ')'); err != nil {
				return nil, err
			}
			e = &CallExpr{Fn: e}
		default:
			return e, nil
		}
	}
}

func (p *exprParser) parseAtom() (Expr, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == 0:
		return nil, p.errf("expected expression")
	case strings.HasPrefix(p.s[p.pos:], "..."):
		p.pos += 3
		return &EllipsisExpr{}, nil
	case c == '\'' || c == '"':
		return p.parseString("")
	case c >= '0' && c <= '9':
		return p.parseNumber()
	case isIdentStart(c):
		id := p.ident()
		if (id == "b" || id == "B") && (p.peek() == '\'' || p.peek() == '"') {
			return p.parseString("b")
		}
		if (id == "u" || id == "U" || id == "r" || id == "R") && (p.peek() == '\'' || p.peek() == '"') {
			return p.parseString("")
		}
		return &NameExpr{ID: id}, nil
	case c == '(':
		return p.parseDisplay('(', ')')
	case c == '[':
		return p.parseDisplay('[', ']')
	case c == '{':
		if err := p.skipBalanced('{', '}'); err != nil {
			return nil, err
		}
		return &DictExpr{}, nil
	}
	return nil, p.errf("unexpected character %q", c)
}

func (p *exprParser) parseDisplay(open, close byte) (Expr, error) {
	p.pos++ // open
	var elts []Expr
	trailingComma := false
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			break
		}
		if len(elts) > 0 || trailingComma {
			if p.peek() != ',' {
				return nil, p.errf("expected ',' or %q", close)
			}
			p.pos++
			p.skipSpace()
			if p.peek() == close {
				trailingComma = true
				p.pos++
				break
			}
		}
		elt, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, elt)
	}
	if open == '[' {
		return &ListExpr{Elts: elts}, nil
	}
	// A parenthesized single expression without a trailing comma is just
	// that expression.
	if len(elts) == 1 && !trailingComma {
		return elts[0], nil
	}
	return &TupleExpr{Elts: elts}, nil
}

func (p *exprParser) parseNumber() (Expr, error) {
	start := p.pos
	s := p.s
	if strings.HasPrefix(s[p.pos:], "0x") || strings.HasPrefix(s[p.pos:], "0X") {
		p.pos += 2
		for p.pos < len(s) && isHexDigit(s[p.pos]) {
			p.pos++
		}
		if p.pos == start+2 {
			return nil, p.errf("malformed hex literal")
		}
		return &NumExpr{Text: s[start:p.pos]}, nil
	}
	for p.pos < len(s) && isDigit(s[p.pos]) {
		p.pos++
	}
	if p.peek() == '.' && !strings.HasPrefix(s[p.pos:], "...") {
		p.pos++
		for p.pos < len(s) && isDigit(s[p.pos]) {
			p.pos++
		}
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		mark := p.pos
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if !isDigit(p.peek()) {
			p.pos = mark // not an exponent, e.g. "1end"
		} else {
			for p.pos < len(s) && isDigit(s[p.pos]) {
				p.pos++
			}
		}
	}
	if c := p.peek(); c == 'j' || c == 'J' || c == 'l' || c == 'L' {
		p.pos++
	}
	return &NumExpr{Text: s[start:p.pos]}, nil
}

func (p *exprParser) parseString(prefix string) (Expr, error) {
	quote := p.s[p.pos]
	p.pos++
	var content strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch c {
		case quote:
			p.pos++
			return &StrExpr{Content: content.String(), Prefix: prefix}, nil
		case '\\':
			p.pos++
			if p.pos >= len(p.s) {
				return nil, p.errf("unterminated escape")
			}
			content.WriteString(unescape(p.s[p.pos]))
			p.pos++
		default:
			content.WriteByte(c)
			p.pos++
		}
	}
	return nil, p.errf("unterminated string literal")
}

func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case '\\', '\'', '"':
		return string(c)
	}
	// Unknown escapes keep the backslash, as the runtime does.
	return "\\" + string(c)
}

// skipBalanced consumes a bracketed region, honoring nesting and string
// literals.
func (p *exprParser) skipBalanced(open, close byte) error {
	depth := 0
	for p.pos < len(p.s) {
		switch c := p.s[p.pos]; c {
		case open:
			depth++
			p.pos++
		case close:
			depth--
			p.pos++
			if depth == 0 {
				return nil
			}
		case '\'', '"':
			if _, err := p.parseString(""); err != nil {
				return err
			}
		default:
			p.pos++
		}
	}
	return p.errf("unbalanced %q", open)
}

func (p *exprParser) ident() string {
	start := p.pos
	if p.pos < len(p.s) && isIdentStart(p.s[p.pos]) {
		p.pos++
		for p.pos < len(p.s) && isIdentPart(p.s[p.pos]) {
			p.pos++
		}
	}
	return p.s[start:p.pos]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Quote renders s the way the interpreter's repr() renders str: quoted,
// preferring single quotes, with control characters escaped.
func Quote(s string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte(quote)
	return b.String()
}
