package eval

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alush-lang/alush"
	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/parser"
	"github.com/alush-lang/alush/value"
)

func asString(env value.Env, h heap.Handle) (string, bool) {
	s, ok := env.Heap().Get(h).(value.String)
	return s.Value, ok
}

func asInt(env value.Env, h heap.Handle) (int, error) {
	s, ok := asString(env, h)
	if !ok {
		return 0, errf("operand must be a string-encoded integer")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errf("operand %q is not an integer", s)
	}
	return n, nil
}

// biVal implements `val v` → v, re-rooted (spec §4.4).
func biVal(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("val", 1, len(args))
	}
	return env.Heap().Root(args[0]), nil
}

// biGet implements `get name`.
func biGet(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("get", 1, len(args))
	}
	name, ok := asString(env, args[0])
	if !ok {
		return heap.Handle{}, errf("get: name must be a string")
	}
	h, ok := env.Lookup(name)
	if !ok {
		return heap.Handle{}, errf("get: unbound name %q", name)
	}
	return env.Heap().Root(h), nil
}

// biSet implements `set name v`: updates an existing innermost binding,
// errors if none exists (spec §9's resolved open question: only `var`
// creates bindings).
func biSet(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 2 {
		return heap.Handle{}, arityErr("set", 2, len(args))
	}
	name, ok := asString(env, args[0])
	if !ok {
		return heap.Handle{}, errf("set: name must be a string")
	}
	if !env.Update(name, args[1]) {
		return heap.Handle{}, errf("set: no binding for %q", name)
	}
	return env.Heap().Rooted(value.String{Value: "ok"}), nil
}

// biVar implements `var (name v)*`: creates or overwrites bindings in
// the current frame directly, never walking up the chain.
func biVar(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args)%2 != 0 {
		return heap.Handle{}, errf("var: arguments must be name/value pairs")
	}
	st := env.Heap().Get(env.Stack()).(value.Stack)
	for i := 0; i < len(args); i += 2 {
		name, ok := asString(env, args[i])
		if !ok {
			return heap.Handle{}, errf("var: name must be a string")
		}
		st.Frame.Variables[name] = args[i+1]
	}
	return env.Heap().Rooted(value.String{Value: "ok"}), nil
}

// biDel implements `del name`.
func biDel(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("del", 1, len(args))
	}
	name, ok := asString(env, args[0])
	if !ok {
		return heap.Handle{}, errf("del: name must be a string")
	}
	if !env.Forget(name) {
		return heap.Handle{}, errf("del: no binding for %q", name)
	}
	return env.Heap().Rooted(value.String{Value: "ok"}), nil
}

// biInc implements `inc n`.
func biInc(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("inc", 1, len(args))
	}
	n, err := asInt(env, args[0])
	if err != nil {
		return heap.Handle{}, err
	}
	return env.Heap().Rooted(value.String{Value: strconv.Itoa(n + 1)}), nil
}

// biAdd implements `+ n…`.
func biAdd(env value.Env, args []heap.Handle) (heap.Handle, error) {
	sum := 0
	for _, a := range args {
		n, err := asInt(env, a)
		if err != nil {
			return heap.Handle{}, err
		}
		sum += n
	}
	return env.Heap().Rooted(value.String{Value: strconv.Itoa(sum)}), nil
}

// biMul implements `* n…`.
func biMul(env value.Env, args []heap.Handle) (heap.Handle, error) {
	product := 1
	for _, a := range args {
		n, err := asInt(env, a)
		if err != nil {
			return heap.Handle{}, err
		}
		product *= n
	}
	return env.Heap().Rooted(value.String{Value: strconv.Itoa(product)}), nil
}

// biEq implements `= a b`: string equality, "false" for any non-string
// operand (spec §4.4).
func biEq(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 2 {
		return heap.Handle{}, arityErr("=", 2, len(args))
	}
	return env.Heap().Rooted(value.String{Value: boolStr(stringsEqual(env, args[0], args[1]))}), nil
}

// biNeq implements `!= a b`: "true" for any non-string operand.
func biNeq(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 2 {
		return heap.Handle{}, arityErr("!=", 2, len(args))
	}
	return env.Heap().Rooted(value.String{Value: boolStr(!stringsEqual(env, args[0], args[1]))}), nil
}

func stringsEqual(env value.Env, a, b heap.Handle) bool {
	sa, aok := env.Heap().Get(a).(value.String)
	sb, bok := env.Heap().Get(b).(value.String)
	return aok && bok && sa.Value == sb.Value
}

// biConcat implements `.. s…`.
func biConcat(env value.Env, args []heap.Handle) (heap.Handle, error) {
	var b strings.Builder
	for _, a := range args {
		s, ok := asString(env, a)
		if !ok {
			return heap.Handle{}, errf("..: operand must be a string")
		}
		b.WriteString(s)
	}
	return env.Heap().Rooted(value.String{Value: b.String()}), nil
}

// biThrow implements `throw v`.
func biThrow(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("throw", 1, len(args))
	}
	return env.Heap().Rooted(value.Exception{Wrapped: args[0]}), nil
}

// biPrintln implements `println v…`.
func biPrintln(env value.Env, args []heap.Handle) (heap.Handle, error) {
	fmt.Fprintln(env.Stdout(), renderJoined(env, args))
	return env.Heap().Rooted(value.String{Value: "ok"}), nil
}

// biPrint implements `print v…`.
func biPrint(env value.Env, args []heap.Handle) (heap.Handle, error) {
	fmt.Fprint(env.Stdout(), renderJoined(env, args))
	return env.Heap().Rooted(value.String{Value: "ok"}), nil
}

func renderJoined(env value.Env, args []heap.Handle) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Render(env, a)
	}
	return strings.Join(parts, " ")
}

// biMap implements `map (k v)*`.
func biMap(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args)%2 != 0 {
		return heap.Handle{}, errf("map: arguments must be key/value pairs")
	}
	m := value.NewMap()
	for i := 0; i < len(args); i += 2 {
		key, ok := asString(env, args[i])
		if !ok {
			return heap.Handle{}, errf("map: key must be a string")
		}
		m.Set(key, args[i+1])
	}
	return env.Heap().Rooted(m), nil
}

// biApply implements `apply head args…`: a tail-call into
// env.Apply(head, args) that gives the callee its own root on head and
// every argument, so env.Apply's unrooting doesn't underflow the root
// this builtin's own caller still holds (spec §4.4).
func biApply(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) < 1 {
		return heap.Handle{}, errf("apply: requires a head value")
	}
	head := env.Heap().Root(args[0])
	rest := make([]heap.Handle, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = env.Heap().Root(a)
	}
	return env.Apply(head, rest)
}

// biUnix implements `unix prog args…`.
func biUnix(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) < 1 {
		return heap.Handle{}, errf("unix: requires a program name")
	}
	prog, ok := asString(env, args[0])
	if !ok {
		return heap.Handle{}, errf("unix: program name must be a string")
	}
	argv := make([]string, len(args)-1)
	for i, a := range args[1:] {
		s, ok := asString(env, a)
		if !ok {
			return heap.Handle{}, errf("unix: argument %d must be a string", i+1)
		}
		argv[i] = s
	}
	out, err := exec.Command(prog, argv...).Output()
	if err != nil {
		return heap.Handle{}, alush.WithStack(err)
	}
	if !utf8.Valid(out) {
		return heap.Handle{}, errf("unix: %s produced non-UTF-8 output", prog)
	}
	return env.Heap().Rooted(value.String{Value: string(out)}), nil
}

// biLines implements `lines s`: splits on newline into an ordered map
// keyed by string-decimal indices.
func biLines(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("lines", 1, len(args))
	}
	s, ok := asString(env, args[0])
	if !ok {
		return heap.Handle{}, errf("lines: argument must be a string")
	}
	m := value.NewMap()
	for i, line := range strings.Split(s, "\n") {
		h := env.Heap().Rooted(value.String{Value: line})
		m.Set(strconv.Itoa(i), h)
		env.Heap().Unroot(h)
	}
	return env.Heap().Rooted(m), nil
}

// biSource implements the supplemented `source path` builtin: reads,
// strips any shebang line, parses, and evaluates path's contents in the
// caller's current frame, without pushing a new one (SPEC_FULL.md §4).
func biSource(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("source", 1, len(args))
	}
	path, ok := asString(env, args[0])
	if !ok {
		return heap.Handle{}, errf("source: path must be a string")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return heap.Handle{}, alush.WithStack(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return heap.Handle{}, alush.WithStack(err)
	}
	mtime := info.ModTime().UnixNano()

	cache := env.ScriptCache()
	cmds, cached := cache.Get(abs, mtime)
	if !cached {
		data, err := alush.ReadFile(abs)
		if err != nil {
			return heap.Handle{}, alush.WithStack(err)
		}
		rest, _, _ := parser.StripShebang(string(data))
		cmds, err = parser.Parse(rest)
		if err != nil {
			return heap.Handle{}, alush.WithStack(err)
		}
		cache.Put(abs, mtime, cmds)
	}

	return env.EvalCommands(cmds)
}

// biPretty implements the supplemented `pretty v` builtin: renders a
// closure's captured command tree back to source text.
func biPretty(env value.Env, args []heap.Handle) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("pretty", 1, len(args))
	}
	cl, ok := env.Heap().Get(args[0]).(value.Closure)
	if !ok {
		return heap.Handle{}, errf("pretty: argument must be a closure")
	}
	return env.Heap().Rooted(value.String{Value: env.Pretty(cl.Code)}), nil
}
