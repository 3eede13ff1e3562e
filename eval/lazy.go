package eval

import (
	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/syntax"
	"github.com/alush-lang/alush/value"
)

// runBody evaluates a lazy built-in's raw expression argument as a
// control-flow body: a Block expr runs directly per eval_expr's Block
// row, and — since `if`/`repeat`/`catch` bodies are conventionally
// written as a bare `(...)` closure literal rather than a `$(...)`
// block (spec.md §8's factorial fixture) — a Closure expr is run the
// same way rather than merely packaged as a Closure value. Any other
// expression kind falls back to ordinary evaluation.
func runBody(env value.Env, rawExpr any) (heap.Handle, error) {
	if expr, ok := rawExpr.(*syntax.Expr); ok && expr.Kind == syntax.KindClosure {
		if ev, ok := env.(*Evaluator); ok {
			return ev.evalBlock(expr.Commands)
		}
	}
	return env.EvalExpr(rawExpr)
}

// biIf implements the lazy `if cond then else` builtin (spec §4.4):
// cond is evaluated eagerly, then exactly one of then/else runs
// depending on whether cond's String payload is "true".
func biIf(env value.Env, args []any) (heap.Handle, error) {
	if len(args) != 3 {
		return heap.Handle{}, arityErr("if", 3, len(args))
	}
	cond, err := env.EvalExpr(args[0])
	if err != nil {
		return heap.Handle{}, err
	}
	s, ok := env.Heap().Get(cond).(value.String)
	env.Heap().Unroot(cond)
	if !ok {
		return heap.Handle{}, errf("if: condition must be a string")
	}
	if s.Value == "true" {
		return runBody(env, args[1])
	}
	return runBody(env, args[2])
}

// biRepeat implements the lazy `repeat body` builtin: body runs over
// and over; each non-Exception result is discarded, an Exception
// result ends the loop and is returned as the loop's own result (spec
// §4.4). The loop otherwise ends only when body returns a host-level
// error, which is passed through.
func biRepeat(env value.Env, args []any) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("repeat", 1, len(args))
	}
	for {
		result, err := runBody(env, args[0])
		if err != nil {
			return heap.Handle{}, err
		}
		if _, isExc := env.Heap().Get(result).(value.Exception); isExc {
			return result, nil
		}
		env.Heap().Unroot(result)
	}
}

// biCatch implements the lazy `catch body` builtin: if body yields an
// Exception, its wrapped payload becomes the result; otherwise body's
// own result passes through unchanged (spec §4.4, property P5).
func biCatch(env value.Env, args []any) (heap.Handle, error) {
	if len(args) != 1 {
		return heap.Handle{}, arityErr("catch", 1, len(args))
	}
	result, err := runBody(env, args[0])
	if err != nil {
		return heap.Handle{}, err
	}
	exc, isExc := env.Heap().Get(result).(value.Exception)
	if !isExc {
		return result, nil
	}
	payload := env.Heap().Root(exc.Wrapped)
	env.Heap().Unroot(result)
	return payload, nil
}
