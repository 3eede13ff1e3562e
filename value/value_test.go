package value

import (
	"testing"

	"github.com/bxcodec/faker/v4"

	"github.com/alush-lang/alush/heap"
)

// newString builds a String whose Value content is irrelevant to the
// assertions around it, using github.com/bxcodec/faker/v4 the same way
// storage_test.go generates randomized row fixtures.
func newString(t *testing.T) String {
	t.Helper()
	var fake struct{ Value string }
	if err := faker.FakeData(&fake); err != nil {
		t.Fatalf("faker.FakeData: %v", err)
	}
	return String{Value: fake.Value}
}

func TestMapTraceFollowsInsertionOrder(t *testing.T) {
	h := heap.New(heap.Default)
	a := h.Rooted(newString(t))
	b := h.Rooted(newString(t))
	c := h.Rooted(newString(t))
	defer h.Unroot(a)
	defer h.Unroot(b)
	defer h.Unroot(c)

	m := NewMap()
	m.Set("z", a)
	m.Set("a", b)
	m.Set("z", c) // overwrite, should keep "z"'s original position

	traced := m.Trace()
	if len(traced) != 2 {
		t.Fatalf("got %d traced handles, want 2", len(traced))
	}
	if traced[0] != c || traced[1] != b {
		t.Fatalf("got %v, want [c, b] (z's original slot, then a)", traced)
	}

	snap := m.Snapshot()
	if len(snap) != 2 || snap[0].Key != "z" || snap[1].Key != "a" {
		t.Fatalf("got %+v", snap)
	}
}

func TestMapDelRemovesFromOrderAndEntries(t *testing.T) {
	h := heap.New(heap.Default)
	a := h.Rooted(newString(t))
	defer h.Unroot(a)

	m := NewMap()
	m.Set("k", a)
	m.Del("k")

	if m.Has("k") {
		t.Fatalf("expected k to be gone after Del")
	}
	if m.Len() != 0 {
		t.Fatalf("got len %d, want 0", m.Len())
	}
	if len(m.Trace()) != 0 {
		t.Fatalf("expected no traced handles after Del")
	}
}

func TestStackTraceIncludesUpHandle(t *testing.T) {
	h := heap.New(heap.Default)
	v := h.Rooted(newString(t))
	defer h.Unroot(v)

	upFrame := h.Rooted(Stack{Frame: Frame{Variables: map[string]heap.Handle{"x": v}}})
	defer h.Unroot(upFrame)

	child := Stack{Frame: Frame{Variables: map[string]heap.Handle{}}, Up: &upFrame}
	traced := child.Trace()
	if len(traced) != 1 || traced[0] != upFrame {
		t.Fatalf("got %v, want [upFrame]", traced)
	}
}

func TestStackTraceWithNoUpOnlyTracesFrame(t *testing.T) {
	h := heap.New(heap.Default)
	v := h.Rooted(newString(t))
	defer h.Unroot(v)

	s := Stack{Frame: Frame{Variables: map[string]heap.Handle{"x": v}}}
	traced := s.Trace()
	if len(traced) != 1 || traced[0] != v {
		t.Fatalf("got %v, want [v]", traced)
	}
}

func TestClosureTracesCapturedStack(t *testing.T) {
	h := heap.New(heap.Default)
	stack := h.Rooted(Stack{Frame: Frame{Variables: map[string]heap.Handle{}}})
	defer h.Unroot(stack)

	c := Closure{Code: nil, Stack: stack}
	traced := c.Trace()
	if len(traced) != 1 || traced[0] != stack {
		t.Fatalf("got %v, want [stack]", traced)
	}
}

func TestExceptionTracesWrapped(t *testing.T) {
	h := heap.New(heap.Default)
	payload := h.Rooted(newString(t))
	defer h.Unroot(payload)

	e := Exception{Wrapped: payload}
	traced := e.Trace()
	if len(traced) != 1 || traced[0] != payload {
		t.Fatalf("got %v, want [payload]", traced)
	}
}

func TestStringBuiltinLazyBuiltinTraceNil(t *testing.T) {
	if (String{}).Trace() != nil {
		t.Fatalf("String.Trace should be nil (no children)")
	}
	if (Builtin{}).Trace() != nil {
		t.Fatalf("Builtin.Trace should be nil (no children)")
	}
	if (LazyBuiltin{}).Trace() != nil {
		t.Fatalf("LazyBuiltin.Trace should be nil (no children)")
	}
}
