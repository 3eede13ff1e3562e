package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alush-lang/alush/syntax"
)

func TestParseStripsShebang(t *testing.T) {
	rest, line, had := StripShebang("#!/usr/bin/env alush -strategy aggressive\nvar x 1\n")
	if !had {
		t.Fatalf("expected a shebang line to be detected")
	}
	if line != "/usr/bin/env alush -strategy aggressive" {
		t.Fatalf("got shebang line %q", line)
	}
	if rest != "var x 1\n" {
		t.Fatalf("got remainder %q", rest)
	}
}

func TestParseNoShebangIsPassthrough(t *testing.T) {
	rest, _, had := StripShebang("var x 1\n")
	if had {
		t.Fatalf("did not expect a shebang")
	}
	if rest != "var x 1\n" {
		t.Fatalf("got remainder %q", rest)
	}
}

func TestParseBareAndQuotedStrings(t *testing.T) {
	cmds, err := Parse("var x 'it''s fine'\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds.List) != 1 || len(cmds.List[0].Exprs) != 3 {
		t.Fatalf("got %+v", cmds)
	}
	got := cmds.List[0].Exprs[2]
	if got.Kind != syntax.KindString || got.String != "it's fine" {
		t.Fatalf("got %+v, want unescaped quoted string", got)
	}
}

func TestParseDollarDesugarsToGet(t *testing.T) {
	cmds, err := Parse("println $x\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	arg := cmds.List[0].Exprs[1]
	if arg.Kind != syntax.KindBlock {
		t.Fatalf("got %+v, want a block ($x desugars to $(get x))", arg)
	}
	inner := arg.Commands.List[0]
	if len(inner.Exprs) != 2 || inner.Exprs[0].String != "get" || inner.Exprs[1].String != "x" {
		t.Fatalf("got %+v, want (get x)", inner)
	}
}

func TestParseInlineClosure(t *testing.T) {
	cmds, err := Parse("var f (+ 1 2)\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	closure := cmds.List[0].Exprs[2]
	if closure.Kind != syntax.KindClosure {
		t.Fatalf("got %+v, want a closure", closure)
	}
	if len(closure.Commands.List) != 1 || len(closure.Commands.List[0].Exprs) != 3 {
		t.Fatalf("got %+v", closure.Commands)
	}
}

func TestParseMultilineClosureBody(t *testing.T) {
	src := "var f (\n" +
		"    var y 1\n" +
		"    + y 1\n" +
		")\n"
	cmds, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	closure := cmds.List[0].Exprs[2]
	if closure.Kind != syntax.KindClosure || len(closure.Commands.List) != 2 {
		t.Fatalf("got %+v", closure)
	}
}

func TestParseBlockDollarParen(t *testing.T) {
	cmds, err := Parse("if $(!= 1 2) (println 'neq')\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cond := cmds.List[0].Exprs[1]
	if cond.Kind != syntax.KindBlock {
		t.Fatalf("got %+v, want a block for $(...)", cond)
	}
}

func TestParseCommentsAndBlankLinesIgnored(t *testing.T) {
	src := "# a leading comment\n\nvar x 1\n# trailing\n"
	cmds, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds.List) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds.List))
	}
}

func TestParseBackslashContinuationJoinsLinesUntilSemicolon(t *testing.T) {
	src := "println 'a' \\\n'b' \\\n'c' ;\n"
	cmds, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds.List) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds.List))
	}
	exprs := cmds.List[0].Exprs
	if len(exprs) != 4 {
		t.Fatalf("got %d exprs, want 4 (println a b c, ; dropped): %+v", len(exprs), exprs)
	}
}

func TestParseUnterminatedParenIsIncomplete(t *testing.T) {
	_, err := Parse("var x (+ 1 2\n")
	if err != ErrIncomplete {
		t.Fatalf("got %v, want ErrIncomplete", err)
	}
}

func TestParseUnterminatedQuoteIsIncomplete(t *testing.T) {
	_, err := Parse("var x 'unterminated\n")
	if err != ErrIncomplete {
		t.Fatalf("got %v, want ErrIncomplete", err)
	}
}

func TestParseCommandSingleLine(t *testing.T) {
	cmd, err := ParseCommand("+ 1 2")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if len(cmd.Exprs) != 3 {
		t.Fatalf("got %+v", cmd)
	}
}

// TestParseBuildsExactTree checks the whole parsed shape against a tree
// built directly from the syntax package's own constructors, the same
// "compare the structured result wholesale" style heap_test.go and
// storage_test.go use go-cmp for.
func TestParseBuildsExactTree(t *testing.T) {
	got, err := Parse("get $x\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := &syntax.Commands{
		List: []syntax.Command{
			{Exprs: []syntax.Expr{syntax.Str("get"), syntax.Dollar("x")}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse(\"get $x\") mismatch (-want +got):\n%s", diff)
	}
}

func TestPrettyRoundTripsThroughParse(t *testing.T) {
	cmds, err := Parse("var f (+ x 1)\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	closure := cmds.List[0].Exprs[2]
	rendered := syntax.Pretty(closure.Commands)
	reparsed, err := Parse("var f " + rendered + "\n")
	if err != nil {
		t.Fatalf("Parse(pretty output): %v\nrendered:\n%s", err, rendered)
	}
	got := reparsed.List[0].Exprs[2]
	if len(got.Commands.List) != len(closure.Commands.List) {
		t.Fatalf("round trip changed command count: %d vs %d", len(got.Commands.List), len(closure.Commands.List))
	}
}
