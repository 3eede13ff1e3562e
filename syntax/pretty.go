package syntax

import "strings"

// Pretty renders cmds back to source text, reindenting nested blocks.
// Grounded in original_source/src/print.rs; exposed to the language
// itself through the `pretty` builtin (SPEC_FULL.md §4).
func Pretty(cmds *Commands) string {
	var b strings.Builder
	prettyCommands(&b, cmds, 0, false)
	return b.String()
}

func prettyCommands(b *strings.Builder, cmds *Commands, depth int, dollar bool) {
	if dollar {
		b.WriteByte('$')
	}
	b.WriteByte('(')
	switch len(cmds.List) {
	case 0:
	case 1:
		prettyCommand(b, &cmds.List[0], depth+1)
	default:
		for _, cmd := range cmds.List {
			b.WriteByte('\n')
			tab(b, depth+1)
			prettyCommand(b, &cmd, depth+1)
		}
		b.WriteByte('\n')
		tab(b, depth)
	}
	b.WriteByte(')')
}

func prettyCommand(b *strings.Builder, cmd *Command, depth int) {
	for i, e := range cmd.Exprs {
		if i > 0 {
			b.WriteByte(' ')
		}
		prettyExpr(b, &e, depth)
	}
}

func prettyExpr(b *strings.Builder, e *Expr, depth int) {
	switch e.Kind {
	case KindString:
		b.WriteByte('\'')
		for _, r := range e.String {
			if r == '\'' {
				b.WriteString("''")
			} else {
				b.WriteRune(r)
			}
		}
		b.WriteByte('\'')
	case KindClosure:
		prettyCommands(b, e.Commands, depth, false)
	case KindBlock:
		prettyCommands(b, e.Commands, depth, true)
	}
}

func tab(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("    ")
	}
}
