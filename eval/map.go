package eval

import (
	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/value"
)

// dispatchMap implements spec §4.4's map-receiver commands. head is the
// Map's own (already-rooted) handle; args[0] must be a String naming
// the operation, args[1:] are its operands. Every exit path unroots
// head and each args[i] exactly once, matching apply's contract.
func (ev *Evaluator) dispatchMap(m *value.Map, head heap.Handle, args []heap.Handle) (heap.Handle, error) {
	fail := func(err error) (heap.Handle, error) {
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return heap.Handle{}, err
	}

	if len(args) < 1 {
		return fail(errf("map dispatch requires a command name"))
	}
	name, ok := ev.h.Get(args[0]).(value.String)
	if !ok {
		return fail(errf("map dispatch command must be a string"))
	}

	switch name.Value {
	case "get":
		if len(args) != 2 {
			return fail(arityErr("m get", 2, len(args)))
		}
		key, ok := ev.h.Get(args[1]).(value.String)
		if !ok {
			return fail(errf("m get: key must be a string"))
		}
		v, found := m.Get(key.Value)
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		if !found {
			return heap.Handle{}, errf("map has no key %q", key.Value)
		}
		return ev.h.Root(v), nil

	case "set":
		if len(args) != 3 {
			return fail(arityErr("m set", 3, len(args)))
		}
		key, ok := ev.h.Get(args[1]).(value.String)
		if !ok {
			return fail(errf("m set: key must be a string"))
		}
		m.Set(key.Value, args[2])
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return ev.h.Rooted(value.String{Value: "ok"}), nil

	case "del":
		if len(args) != 2 {
			return fail(arityErr("m del", 2, len(args)))
		}
		key, ok := ev.h.Get(args[1]).(value.String)
		if !ok {
			return fail(errf("m del: key must be a string"))
		}
		m.Del(key.Value)
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return ev.h.Rooted(value.String{Value: "ok"}), nil

	case "has":
		if len(args) != 2 {
			return fail(arityErr("m has", 2, len(args)))
		}
		key, ok := ev.h.Get(args[1]).(value.String)
		if !ok {
			return fail(errf("m has: key must be a string"))
		}
		has := m.Has(key.Value)
		unrootAll(ev.h, args...)
		ev.h.Unroot(head)
		return ev.h.Rooted(value.String{Value: boolStr(has)}), nil

	case "each":
		if len(args) != 2 {
			return fail(arityErr("m each", 2, len(args)))
		}
		return ev.mapEach(m, head, args)

	default:
		return fail(errf("map has no %q command", name.Value))
	}
}

// mapEach iterates a snapshot of m's entries so concurrent mutation by
// fn does not disturb the walk (spec: "m each fn... mutation during
// iteration is permitted"). fn is invoked once per entry as
// apply(fn, [key, value]); the final call's result (or "ok" if m is
// empty) is returned.
func (ev *Evaluator) mapEach(m *value.Map, head heap.Handle, args []heap.Handle) (heap.Handle, error) {
	fn := args[1]
	snapshot := m.Snapshot()
	ev.h.Unroot(args[0])

	if len(snapshot) == 0 {
		ev.h.Unroot(fn)
		ev.h.Unroot(head)
		return ev.h.Rooted(value.String{Value: "ok"}), nil
	}

	var result heap.Handle
	for i, entry := range snapshot {
		key := ev.h.Rooted(value.String{Value: entry.Key})
		callArgs := []heap.Handle{key, ev.h.Root(entry.Value)}
		r, err := ev.apply(ev.h.Root(fn), callArgs)
		if err != nil {
			ev.h.Unroot(fn)
			ev.h.Unroot(head)
			return heap.Handle{}, err
		}
		if i < len(snapshot)-1 {
			ev.h.Unroot(r)
		} else {
			result = r
		}
	}
	ev.h.Unroot(fn)
	ev.h.Unroot(head)
	return result, nil
}
