package dice

import (
	"strconv"
	"strings"
)

// Render returns the canonical formula text for n. first reports whether n is
// the first term rendered at its level; it controls the leading " + ".
//
// Inside min(...)/max(...) argument lists a positive term has no sign and a
// negative one a bare "-". Elsewhere negative terms always render " - ".
func Render(n Node, first bool) string {
	var b strings.Builder
	b.WriteString(signText(n, first))
	switch n := n.(type) {
	case *Group:
		b.WriteString(n.op.Keyword())
		b.WriteByte('(')
		b.WriteString(n.RenderChildren())
		b.WriteByte(')')
	case *DiceTerm:
		b.WriteString(strconv.Itoa(n.count))
		b.WriteByte('d')
		b.WriteString(strconv.Itoa(n.sides))
	case *Constant:
		b.WriteString(strconv.Itoa(n.magnitude))
	}
	b.WriteString(nameText(n))
	return b.String()
}

// RenderResult returns n's value in bold followed by the breakdown of its
// children or individual dice. Unevaluated values render as "undefined".
func RenderResult(n Node) string {
	var parts []string
	switch n := n.(type) {
	case *Group:
		parts = make([]string, len(n.children))
		for i, c := range n.children {
			parts[i] = RenderResult(c)
		}
	case *DiceTerm:
		parts = make([]string, len(n.rolls))
		for i, r := range n.rolls {
			parts[i] = strconv.Itoa(r)
		}
	}

	var b strings.Builder
	b.WriteString(bold(n))
	if len(parts) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteByte(')')
	}
	b.WriteString(nameText(n))
	return b.String()
}

// Render renders g as a term; see the package-level Render. An OpAdd root
// renders wrapped in bare parentheses, e.g. "(2d6 + 3)", which Parse rejects
// as ErrUnbalanced. Use String for text that parses back.
func (g *Group) Render(first bool) string {
	return Render(g, first)
}

// RenderChildren renders g's children without g's own sign, keyword or
// parentheses. Children of an OpAdd group are concatenated; min/max
// arguments are separated by ", ".
func (g *Group) RenderChildren() string {
	sep := ", "
	if g.op == OpAdd {
		sep = ""
	}
	parts := make([]string, len(g.children))
	for i, c := range g.children {
		parts[i] = Render(c, i == 0)
	}
	return strings.Join(parts, sep)
}

// RenderResult renders g's results breakdown.
func (g *Group) RenderResult() string {
	return RenderResult(g)
}

// String returns the canonical formula, e.g. "2d6 + 3" for "2d6+3".
func (g *Group) String() string {
	return g.RenderChildren()
}

func signText(n Node, first bool) string {
	if p := n.Parent(); p != nil && (p.op == OpMin || p.op == OpMax) {
		if n.Negative() {
			return "-"
		}
		return ""
	}
	switch {
	case n.Negative():
		return " - "
	case first:
		return ""
	default:
		return " + "
	}
}

func nameText(n Node) string {
	if name := n.Name(); name != "" {
		return " " + name
	}
	return ""
}

func bold(n Node) string {
	v, ok := n.Value()
	if !ok {
		return "**undefined**"
	}
	return "**" + strconv.Itoa(v) + "**"
}
