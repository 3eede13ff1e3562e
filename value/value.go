// Package value is the closed, tagged-variant universe of runtime
// values (spec §3–§4.2). Every variant implements heap.Collectable by
// declaring, through its own Trace method, exactly the handles it
// directly reaches.
package value

import (
	"io"

	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/internal/scriptcache"
)

// String is owned text — the only variant the built-in arithmetic,
// equality, and concatenation operations understand.
type String struct {
	Value string
}

// Trace implements heap.Collectable.
func (String) Trace() []heap.Handle { return nil }

// Strict is a native operation invoked with already-evaluated, already
// rooted argument handles (spec: "strict built-in").
type Strict func(env Env, args []heap.Handle) (heap.Handle, error)

// Builtin wraps a Strict native operation.
type Builtin struct {
	Name string
	Fn   Strict
}

// Trace implements heap.Collectable.
func (Builtin) Trace() []heap.Handle { return nil }

// Lazy is a native operation invoked with unevaluated argument
// expressions; it controls its own evaluation (spec: "lazy built-in").
// The expr type is left abstract here (an `any` holding a *syntax.Expr)
// to avoid a package import cycle between value and syntax/eval; eval
// does the concrete type assertion.
type Lazy func(env Env, args []any) (heap.Handle, error)

// LazyBuiltin wraps a Lazy native operation.
type LazyBuiltin struct {
	Name string
	Fn   Lazy
}

// Trace implements heap.Collectable.
func (LazyBuiltin) Trace() []heap.Handle { return nil }

// Closure pairs a command tree (held as `any` for the same reason as
// Lazy — concretely a *syntax.Commands) with the stack handle captured
// at the point the closure expression was evaluated.
type Closure struct {
	Code  any
	Stack heap.Handle
}

// Trace implements heap.Collectable: a closure keeps its captured stack
// reachable, which is how dynamic-scope lookups through `up` stay valid
// for as long as the closure itself is reachable.
func (c Closure) Trace() []heap.Handle { return []heap.Handle{c.Stack} }

// Exception wraps another handle and propagates as a first-class value
// rather than a native-stack unwind (spec §7).
type Exception struct {
	Wrapped heap.Handle
}

// Trace implements heap.Collectable.
func (e Exception) Trace() []heap.Handle { return []heap.Handle{e.Wrapped} }

// Map is an ordered string-keyed mapping to handles. Keys are compared
// by content, never by handle identity (spec §9's "string keys in
// maps" decision). Order is insertion order; order tracks that order
// alongside the lookup table so `each` iterates deterministically.
type Map struct {
	entries map[string]heap.Handle
	order   []string
}

// NewMap returns an empty, ordered Map.
func NewMap() *Map {
	return &Map{entries: map[string]heap.Handle{}}
}

// Trace implements heap.Collectable.
func (m *Map) Trace() []heap.Handle {
	handles := make([]heap.Handle, 0, len(m.entries))
	for _, k := range m.order {
		handles = append(handles, m.entries[k])
	}
	return handles
}

// Get returns the handle bound to k, if any.
func (m *Map) Get(k string) (heap.Handle, bool) {
	v, ok := m.entries[k]
	return v, ok
}

// Set inserts or overwrites the binding for k, preserving k's original
// insertion position if it was already present.
func (m *Map) Set(k string, v heap.Handle) {
	if _, exists := m.entries[k]; !exists {
		m.order = append(m.order, k)
	}
	m.entries[k] = v
}

// Del removes k, if present.
func (m *Map) Del(k string) {
	if _, exists := m.entries[k]; !exists {
		return
	}
	delete(m.entries, k)
	for i, key := range m.order {
		if key == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Has reports whether k is bound.
func (m *Map) Has(k string) bool {
	_, ok := m.entries[k]
	return ok
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.order) }

// Entry is one (key, value) pair of a Snapshot.
type Entry struct {
	Key   string
	Value heap.Handle
}

// Snapshot returns the map's entries in insertion order, copied so the
// caller (eval's `each`) may mutate the map while iterating without
// disturbing the walk (spec §4.4 "m each fn").
func (m *Map) Snapshot() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, Entry{Key: k, Value: m.entries[k]})
	}
	return out
}

// Frame is a single scope's name → handle bindings.
type Frame struct {
	Variables map[string]heap.Handle
}

// Trace implements heap.Collectable.
func (f Frame) Trace() []heap.Handle {
	handles := make([]heap.Handle, 0, len(f.Variables))
	for _, v := range f.Variables {
		handles = append(handles, v)
	}
	return handles
}

// Stack is a linked chain of Frames; Up is absent for the root frame.
type Stack struct {
	Frame Frame
	Up    *heap.Handle
}

// Trace implements heap.Collectable.
func (s Stack) Trace() []heap.Handle {
	handles := s.Frame.Trace()
	if s.Up != nil {
		handles = append(handles, *s.Up)
	}
	return handles
}

// Env is the minimal surface a Strict/Lazy built-in needs from the
// evaluator, kept as an interface here so this package never imports
// eval (which imports value).
type Env interface {
	Heap() *heap.Heap
	Stack() heap.Handle
	Lookup(name string) (heap.Handle, bool)
	Update(name string, v heap.Handle) bool
	Forget(name string) bool
	// Apply dispatches head(args...) exactly like a command application
	// (spec "apply"): head and args must already be rooted, and on
	// every exit path Apply consumes one root from each.
	Apply(head heap.Handle, args []heap.Handle) (heap.Handle, error)
	// EvalExpr evaluates an opaque *syntax.Expr (passed as `any` to
	// avoid the import cycle) and returns a freshly rooted handle.
	EvalExpr(expr any) (heap.Handle, error)
	// EvalCommands evaluates an opaque *syntax.Commands sequentially
	// against the *current* frame, without pushing a new one — used by
	// the `source` builtin so a sourced file's `var`s land in the
	// caller's scope (SPEC_FULL.md §4).
	EvalCommands(commands any) (heap.Handle, error)
	// Pretty renders a closure's captured command tree back to source
	// text (spec §4 SUPPLEMENTED FEATURES: the `pretty` builtin).
	Pretty(code any) string
	// ScriptCache returns the evaluator's shared parsed-script memo,
	// used by the `source` builtin (SPEC_FULL.md §3's script-file
	// cache). May be nil, in which case callers must parse directly.
	ScriptCache() *scriptcache.Cache
	// Stdout is where `println`/`print` write. Each Evaluator owns its
	// own writer rather than sharing one process-wide global, so an SSH
	// server can hand every session its own terminal without sessions
	// racing on each other's output (SPEC_FULL.md §3).
	Stdout() io.Writer
}
