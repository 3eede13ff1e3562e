// Package eval walks syntax.Commands trees against a heap.Heap,
// implementing the rooting contract of spec.md §4.3: every handle
// returned to a caller is rooted exactly once, and every builtin
// receives already-rooted arguments it must unroot through its caller.
package eval

import (
	"io"
	"os"

	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/internal/scriptcache"
	"github.com/alush-lang/alush/syntax"
	"github.com/alush-lang/alush/value"
)

// Evaluator is the single-threaded interpreter state: one heap and a
// handle to the current stack frame chain. Stack is the evaluator's
// only permanent root.
type Evaluator struct {
	h       *heap.Heap
	stack   heap.Handle
	scripts *scriptcache.Cache
	stdout  io.Writer
}

var _ value.Env = (*Evaluator)(nil)

// New builds an Evaluator over a fresh Heap under strategy, with a root
// stack frame pre-populated with every built-in (spec §4.3
// "Initialization"). println/print write to os.Stdout until SetStdout
// redirects them — the SSH server does this per session.
func New(strategy heap.Strategy) *Evaluator {
	h := heap.New(strategy)
	root := h.Rooted(value.Stack{Frame: value.Frame{Variables: map[string]heap.Handle{}}})
	scripts, _ := scriptcache.New(32)
	ev := &Evaluator{h: h, stack: root, scripts: scripts, stdout: os.Stdout}

	st := h.Get(root).(value.Stack)
	for _, b := range StrictBuiltins {
		handle := h.Rooted(value.Builtin{Name: b.Name, Fn: b.Fn})
		st.Frame.Variables[b.Name] = handle
		h.Unroot(handle)
	}
	for _, b := range LazyBuiltins {
		handle := h.Rooted(value.LazyBuiltin{Name: b.Name, Fn: b.Fn})
		st.Frame.Variables[b.Name] = handle
		h.Unroot(handle)
	}
	return ev
}

// Heap implements value.Env.
func (ev *Evaluator) Heap() *heap.Heap { return ev.h }

// Stack implements value.Env.
func (ev *Evaluator) Stack() heap.Handle { return ev.stack }

// Lookup implements value.Env: walks stack.up* for the innermost
// binding, returning it unrooted.
func (ev *Evaluator) Lookup(name string) (heap.Handle, bool) {
	cur := ev.stack
	for {
		st := ev.h.Get(cur).(value.Stack)
		if v, ok := st.Frame.Variables[name]; ok {
			return v, true
		}
		if st.Up == nil {
			return heap.Handle{}, false
		}
		cur = *st.Up
	}
}

// Update implements value.Env: replaces the innermost existing binding.
func (ev *Evaluator) Update(name string, v heap.Handle) bool {
	cur := ev.stack
	for {
		st := ev.h.Get(cur).(value.Stack)
		if _, ok := st.Frame.Variables[name]; ok {
			st.Frame.Variables[name] = v
			return true
		}
		if st.Up == nil {
			return false
		}
		cur = *st.Up
	}
}

// Forget implements value.Env: removes the innermost existing binding.
func (ev *Evaluator) Forget(name string) bool {
	cur := ev.stack
	for {
		st := ev.h.Get(cur).(value.Stack)
		if _, ok := st.Frame.Variables[name]; ok {
			delete(st.Frame.Variables, name)
			return true
		}
		if st.Up == nil {
			return false
		}
		cur = *st.Up
	}
}

// EvalExpr implements value.Env; expr is a *syntax.Expr.
func (ev *Evaluator) EvalExpr(expr any) (heap.Handle, error) {
	return ev.evalExpr(expr.(*syntax.Expr))
}

// Pretty implements value.Env; code is a *syntax.Commands.
func (ev *Evaluator) Pretty(code any) string {
	return syntax.Pretty(code.(*syntax.Commands))
}

// ScriptCache implements value.Env.
func (ev *Evaluator) ScriptCache() *scriptcache.Cache {
	return ev.scripts
}

// Stdout implements value.Env.
func (ev *Evaluator) Stdout() io.Writer {
	return ev.stdout
}

// SetStdout redirects println/print output to w. The SSH server calls
// this once per session so concurrent sessions never share a writer.
func (ev *Evaluator) SetStdout(w io.Writer) {
	ev.stdout = w
}

// Apply implements value.Env, and is the `apply` spec operation
// (§4.3): head and every args[i] are consumed (unrooted) exactly once
// on every exit path.
func (ev *Evaluator) Apply(head heap.Handle, args []heap.Handle) (heap.Handle, error) {
	return ev.apply(head, args)
}

// EvalCommand evaluates a single top-level command (used by the
// interactive line loop).
func (ev *Evaluator) EvalCommand(cmd *syntax.Command) (heap.Handle, error) {
	return ev.evalCmd(cmd)
}

// EvalCommands implements value.Env; commands is a *syntax.Commands.
// It evaluates the sequence against the current frame without pushing
// a new one, unrooting every intermediate result (used to run a whole
// script file sequentially per spec §6, and by the `source` builtin to
// install bindings into the caller's scope).
func (ev *Evaluator) EvalCommands(commands any) (heap.Handle, error) {
	return ev.evalCommandsSequential(commands.(*syntax.Commands))
}

func (ev *Evaluator) evalExpr(e *syntax.Expr) (heap.Handle, error) {
	switch e.Kind {
	case syntax.KindString:
		return ev.h.Rooted(value.String{Value: e.String}), nil
	case syntax.KindClosure:
		return ev.h.Rooted(value.Closure{Code: e.Commands, Stack: ev.stack}), nil
	case syntax.KindBlock:
		return ev.evalBlock(e.Commands)
	default:
		return heap.Handle{}, errf("unknown expression kind")
	}
}

// evalBlock implements the Block row of spec §4.3's eval_expr table:
// push a fresh frame linked to the current stack, run the commands,
// pop back.
func (ev *Evaluator) evalBlock(cmds *syntax.Commands) (heap.Handle, error) {
	prevStack := ev.stack
	newStack := ev.h.Rooted(value.Stack{Frame: value.Frame{Variables: map[string]heap.Handle{}}, Up: &prevStack})
	ev.stack = newStack
	result, err := ev.evalCommandsSequential(cmds)
	ev.stack = prevStack
	ev.h.Unroot(newStack)
	return result, err
}

// evalCommandsSequential runs cmds against the current frame in source
// order, unrooting every intermediate result but the last. An empty
// sequence returns an allocated-and-rooted "ok" string.
func (ev *Evaluator) evalCommandsSequential(cmds *syntax.Commands) (heap.Handle, error) {
	if len(cmds.List) == 0 {
		return ev.h.Rooted(value.String{Value: "ok"}), nil
	}
	var result heap.Handle
	for i := range cmds.List {
		r, err := ev.evalCmd(&cmds.List[i])
		if err != nil {
			return heap.Handle{}, err
		}
		if i < len(cmds.List)-1 {
			ev.h.Unroot(r)
		} else {
			result = r
		}
	}
	return result, nil
}

// evalCmd implements spec §4.3's eval_cmd contract.
func (ev *Evaluator) evalCmd(cmd *syntax.Command) (heap.Handle, error) {
	headExpr := &cmd.Exprs[0]

	var head heap.Handle
	if headExpr.Kind == syntax.KindString {
		h, ok := ev.Lookup(headExpr.String)
		if !ok {
			return heap.Handle{}, errf("unbound name %q", headExpr.String)
		}
		head = ev.h.Root(h)
	} else {
		h, err := ev.evalExpr(headExpr)
		if err != nil {
			return heap.Handle{}, err
		}
		head = h
	}

	if lazy, ok := ev.h.Get(head).(value.LazyBuiltin); ok {
		argExprs := cmd.Exprs[1:]
		rawArgs := make([]any, len(argExprs))
		for i := range argExprs {
			rawArgs[i] = &argExprs[i]
		}
		result, err := lazy.Fn(ev, rawArgs)
		ev.h.Unroot(head)
		return result, err
	}

	argExprs := cmd.Exprs[1:]
	args := make([]heap.Handle, 0, len(argExprs))
	for i := range argExprs {
		v, err := ev.evalExpr(&argExprs[i])
		if err != nil {
			unrootAll(ev.h, args...)
			ev.h.Unroot(head)
			return heap.Handle{}, err
		}
		if _, isExc := ev.h.Get(v).(value.Exception); isExc {
			unrootAll(ev.h, args...)
			ev.h.Unroot(head)
			return v, nil
		}
		args = append(args, v)
	}

	return ev.apply(head, args)
}

// apply implements spec §4.3's `apply(head_H, args)`: head and args
// must already be rooted by the caller; every exit path unroots them
// exactly once.
func (ev *Evaluator) apply(head heap.Handle, args []heap.Handle) (heap.Handle, error) {
	switch hv := ev.h.Get(head).(type) {
	case value.String:
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return heap.Handle{}, errf("cmd's fn must not be a string")
	case value.Builtin:
		result, err := hv.Fn(ev, args)
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return result, err
	case value.Closure:
		result, err := ev.applyClosure(hv, args)
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return result, err
	case value.Exception:
		unrootAll(ev.h, args...)
		return head, nil
	case value.LazyBuiltin:
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return heap.Handle{}, errf("a lazy builtin cannot be applied to evaluated arguments")
	case *value.Map:
		return ev.dispatchMap(hv, head, args)
	default:
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return heap.Handle{}, errf("value is not callable")
	}
}
