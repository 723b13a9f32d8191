package scrape

import (
	"strings"

	"github.com/lunebeam/PTVS/pysig"
)

// Render emits the entry as stub source, without a trailing newline. The
// rendering paths are mutually exclusive and tried in a fixed order: literal
// binding, class with members, callable, typed value, repr value, bare name.
func (e *Entry) Render(indent string) string {
	switch {
	case e.Literal != "":
		return indent + e.Name + " = " + e.Literal
	case len(e.Members) > 0:
		return joinIndented(indent, e.classLines())
	case e.Signature != nil:
		return joinIndented(indent, e.signatureLines())
	case e.TypeName != "":
		return indent + e.Name + " = " + e.TypeName + "()"
	}
	if e.Value != nil {
		if repr, ok := e.Value.Repr(); ok {
			return indent + e.Name + " = " + repr
		}
	}
	return indent + e.Name
}

func joinIndented(indent string, lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteString(line)
	}
	return b.String()
}

func (e *Entry) classLines() []string {
	head := "class " + e.Name
	if len(e.Bases) > 0 {
		head += "(" + strings.Join(e.Bases, ",") + ")"
	}
	lines := []string{head + ":"}
	if e.Doc != "" {
		lines = append(lines, "    "+pysig.Quote(e.Doc))
	}
	body := 0
	for _, m := range e.Members {
		if m == noValueMember {
			continue
		}
		lines = append(lines, m.Render("    "))
		body++
	}
	if body == 0 && e.Doc == "" {
		lines = append(lines, "    pass")
	}
	return lines
}

func (e *Entry) signatureLines() []string {
	var lines []string
	seen := map[string]bool{}
	for _, d := range e.Signature.Decorators {
		if !seen[d] {
			seen[d] = true
			lines = append(lines, d)
		}
	}
	lines = append(lines, "def "+e.Signature.String()+":")
	if e.Doc != "" {
		lines = append(lines, "    "+pysig.Quote(e.Doc))
	}
	ret := e.Signature.RetExpr
	if ret == "" {
		ret = "pass"
	}
	return append(lines, "    "+ret)
}
