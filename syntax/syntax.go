// Package syntax is the command-tree AST the parser builds and the
// evaluator walks. It is intentionally a thin, immutable tree — the
// tokenizer/parser that produces it is an external collaborator per
// spec.md §1, not part of the engineering center this repo specifies in
// depth.
package syntax

// Expr is one argument position: a bare/quoted string, a closure
// literal `(...)`, or an immediately-evaluated block `$(...)`.
type Expr struct {
	// Kind discriminates the three expression forms.
	Kind ExprKind
	// String holds the text for KindString.
	String string
	// Commands holds the command tree for KindClosure/KindBlock.
	Commands *Commands
}

// ExprKind discriminates Expr's three forms.
type ExprKind int

const (
	KindString ExprKind = iota
	KindClosure
	KindBlock
)

// Command is one whitespace-delimited command: a head expression
// followed by zero or more argument expressions.
type Command struct {
	Exprs []Expr
}

// Commands is a sequence of Command, evaluated in source order.
type Commands struct {
	List []Command
}

// Str builds a KindString Expr.
func Str(s string) Expr { return Expr{Kind: KindString, String: s} }

// Closure builds a KindClosure Expr.
func Closure(cmds *Commands) Expr { return Expr{Kind: KindClosure, Commands: cmds} }

// Block builds a KindBlock Expr.
func Block(cmds *Commands) Expr { return Expr{Kind: KindBlock, Commands: cmds} }

// Dollar desugars `$name` into `$(get name)`, a single-command block
// (spec §6: "$name desugars to $(get name)").
func Dollar(name string) Expr {
	return Block(&Commands{List: []Command{{Exprs: []Expr{Str("get"), Str(name)}}}})
}
