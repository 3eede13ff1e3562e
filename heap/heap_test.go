package heap

import (
	"testing"

	"github.com/bxcodec/faker/v4"
)

type leaf struct{ msg string }

func (leaf) Trace() []Handle { return nil }

type branch struct{ l, r Handle }

func (b branch) Trace() []Handle { return []Handle{b.l, b.r} }

type cycle struct{ next *Handle }

func (c cycle) Trace() []Handle {
	if c.next == nil {
		return nil
	}
	return []Handle{*c.next}
}

// fakeLeafData is the exported shape github.com/bxcodec/faker/v4 fills
// in (it only populates exported fields); newLeaf copies the result
// into the unexported leaf these tests actually exercise, the same
// "faker.FakeData into a throwaway struct" shape storage_test.go uses
// to build its randomized fixtures.
type fakeLeafData struct {
	Msg string
}

func newLeaf(t *testing.T) leaf {
	t.Helper()
	var f fakeLeafData
	if err := faker.FakeData(&f); err != nil {
		t.Fatalf("faker.FakeData: %v", err)
	}
	return leaf{msg: f.Msg}
}

func TestCycleCollectionTerminates(t *testing.T) {
	h := New(Aggressive)
	self := h.Alloc(cycle{})
	c := h.Get(self).(cycle)
	c.next = &self
	h.cells[self.index].value = c
	h.Collect()
}

func TestRootAlgebraIsANoOp(t *testing.T) {
	h := New(Disabled)
	handle := h.Alloc(newLeaf(t))
	for i := 0; i < 3; i++ {
		h.Root(handle)
	}
	if got := h.Roots(); got != 1 {
		t.Fatalf("got %d distinct roots, want 1", got)
	}
	for i := 0; i < 2; i++ {
		h.Unroot(handle)
	}
	if got := h.Roots(); got != 1 {
		t.Fatalf("root count dropped early: got %d, want 1", got)
	}
	h.Unroot(handle)
	if got := h.Roots(); got != 0 {
		t.Fatalf("got %d distinct roots after matching unroots, want 0", got)
	}
}

func TestDefaultSweepDeletesUnreachable(t *testing.T) {
	h := New(Default)
	hi := h.Rooted(newLeaf(t))
	world := h.Rooted(newLeaf(t))
	greeting := h.Rooted(branch{hi, world})
	h.Unroot(hi)
	h.Unroot(world)

	h.Collect()
	if h.LiveLen() != 3 {
		t.Fatalf("got %d live cells, want 3 (greeting's root keeps hi/world reachable)", h.LiveLen())
	}

	h.Unroot(greeting)
	h.Collect()
	if h.LiveLen() != 0 {
		t.Fatalf("got %d live cells after unrooting everything, want 0", h.LiveLen())
	}
}

func TestAggressiveRetainsDeadCells(t *testing.T) {
	h := New(Aggressive)
	handle := h.Alloc(newLeaf(t))
	h.Collect()
	if h.LiveLen() != 0 {
		t.Fatalf("got %d live cells, want 0", h.LiveLen())
	}
	if h.Len() == 0 {
		t.Fatalf("aggressive strategy should retain the dead cell physically")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic accessing a dead cell")
		}
	}()
	h.Get(handle)
}

func TestCheckingFaultsOnUnknownUnroot(t *testing.T) {
	h := New(Checking)
	handle := h.Alloc(newLeaf(t))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic unrooting a handle with no root entry")
		}
	}()
	h.Unroot(handle)
}

func TestWrongHeapFaults(t *testing.T) {
	a := New(Disabled)
	b := New(Disabled)
	handle := a.Alloc(newLeaf(t))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic using a handle from heap a against heap b")
		}
	}()
	b.Get(handle)
}

func TestCapacityGrowsGeometricallyAfterDefaultSweep(t *testing.T) {
	h := New(Default)
	a := h.Rooted(newLeaf(t))
	h.Collect()
	if h.capacity != 3 {
		t.Fatalf("got capacity %d after collecting 1 live cell, want 3 (2*1+1)", h.capacity)
	}
	h.Unroot(a)
}

func TestDisabledNeverCollectsOnAlloc(t *testing.T) {
	h := New(Disabled)
	for i := 0; i < 50; i++ {
		h.Alloc(newLeaf(t))
	}
	if h.Len() != 50 {
		t.Fatalf("got %d cells, want 50 (disabled strategy never collects on alloc)", h.Len())
	}
}
