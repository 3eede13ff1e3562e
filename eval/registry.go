package eval

import "github.com/alush-lang/alush/value"

// strictBuiltinDecl and lazyBuiltinDecl are the declarative source of
// truth cmd/alush-gen reads to emit builtins_table.go: the name each
// built-in is bound under in the root frame, its native function, and a
// one-line doc string. Nothing in the CLI or REPL prints Doc.
type strictBuiltinDecl struct {
	Name string
	Fn   value.Strict
	Doc  string
}

type lazyBuiltinDecl struct {
	Name string
	Fn   value.Lazy
	Doc  string
}

// strictBuiltinDecls is the hand-maintained declaration list;
// builtins_table.go (generated) turns it into the StrictBuiltins slice
// consumed by New. Keeping the declaration and the generated table
// separate means adding a built-in here is the only edit needed.
var strictBuiltinDecls = []strictBuiltinDecl{
	{"val", biVal, "val v -> v, re-rooted"},
	{"get", biGet, "get name -> innermost bound value of name"},
	{"set", biSet, "set name v -> updates an existing innermost binding"},
	{"var", biVar, "var (name v)* -> binds name/value pairs in the current frame"},
	{"del", biDel, "del name -> removes an existing innermost binding"},
	{"inc", biInc, "inc n -> numeric increment of a string-encoded integer"},
	{"+", biAdd, "+ n... -> numeric sum of string-encoded integers"},
	{"*", biMul, "* n... -> numeric product of string-encoded integers"},
	{"=", biEq, "= a b -> \"true\"/\"false\" string equality"},
	{"!=", biNeq, "!= a b -> \"true\"/\"false\" string inequality"},
	{"..", biConcat, ".. s... -> string concatenation"},
	{"throw", biThrow, "throw v -> wraps v as an Exception value"},
	{"println", biPrintln, "println v... -> render each value, space-joined, with a trailing newline"},
	{"print", biPrint, "print v... -> render each value, space-joined"},
	{"map", biMap, "map (k v)* -> construct an ordered string-keyed map"},
	{"apply", biApply, "apply head args... -> dispatch head(args...) as if it were a command"},
	{"unix", biUnix, "unix prog args... -> spawn prog, capture its stdout as a string"},
	{"lines", biLines, "lines s -> split s on newline into a map keyed by decimal index"},
	{"source", biSource, "source path -> parse and evaluate another file's commands in the current frame"},
	{"pretty", biPretty, "pretty v -> render a closure's captured commands back to source text"},
}

// lazyBuiltinDecls is the lazy-builtin counterpart of strictBuiltinDecls.
var lazyBuiltinDecls = []lazyBuiltinDecl{
	{"if", biIf, "if cond then else -> evaluate then iff cond is the string \"true\", else else; a non-string cond is an error"},
	{"repeat", biRepeat, "repeat body -> evaluate body until it yields an Exception, then return it"},
	{"catch", biCatch, "catch body -> unwrap body's Exception result, or pass a non-Exception through"},
}
