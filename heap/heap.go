// Package heap is the tracing garbage collector at the center of this
// interpreter. It stores every runtime value behind an opaque Handle,
// keeps a reference-counted root set on top of mark-and-sweep
// reachability, and offers four collection Strategies so the evaluator's
// rooting discipline can be checked mechanically rather than by
// inspection (spec §4.1).
package heap

import (
	"fmt"

	"github.com/alush-lang/alush"
)

// Collectable is implemented by every value a Heap can store. Trace must
// return every handle the value directly reaches; it must not allocate.
type Collectable interface {
	Trace() []Handle
}

// Handle is an opaque reference to a cell owned by exactly one Heap.
// It is cheap to copy and comparable; using it against a different Heap
// is a programming error (spec I4) and every operation below faults on
// the mismatch.
type Handle struct {
	heapID uint64
	index  uint64
}

// Strategy selects a Heap's collection policy (spec §4.1).
type Strategy int

const (
	// Disabled never collects.
	Disabled Strategy = iota
	// Default collects when the live count reaches capacity, and sweep
	// deletes unreachable cells.
	Default
	// Aggressive collects before every alloc and marks unreachable
	// cells dead instead of deleting them, so any stale handle use
	// faults immediately. A self-test strategy.
	Aggressive
	// Checking behaves like Aggressive and additionally faults when a
	// handle not present in the root set is unrooted.
	Checking
)

func (s Strategy) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Default:
		return "default"
	case Aggressive:
		return "aggressive"
	case Checking:
		return "checking"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses the CLI/REPL spelling of a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "disabled":
		return Disabled, nil
	case "default":
		return Default, nil
	case "aggressive":
		return Aggressive, nil
	case "checking":
		return Checking, nil
	default:
		return Disabled, alush.WithStack(fmt.Errorf("unknown gc strategy %q", s))
	}
}

type cell struct {
	value     Collectable
	reachable bool
	alive     bool
}

// Heap owns a set of cells addressed by Handle, plus the root set and
// collection policy layered on top (spec §3).
type Heap struct {
	id       uint64
	cells    map[uint64]*cell
	counter  uint64
	roots    map[uint64]uint64
	capacity int
	strategy Strategy
}

// New creates an empty Heap under the given Strategy, with a
// process-unique heap id (spec "new(strategy) → Heap").
func New(strategy Strategy) *Heap {
	return &Heap{
		id:       alush.NextHeapID(),
		cells:    map[uint64]*cell{},
		roots:    map[uint64]uint64{},
		strategy: strategy,
	}
}

// Strategy returns the heap's collection policy.
func (h *Heap) Strategy() Strategy {
	return h.strategy
}

// Len returns the number of cells still physically retained, including
// ones marked dead by Aggressive/Checking. Exposed for diagnostics.
func (h *Heap) Len() int {
	return len(h.cells)
}

// LiveLen returns the number of live (alive) cells — under Default this
// equals Len, under Aggressive/Checking it excludes cells retained only
// for dead-handle fault detection. This is what spec P2 means by
// "live-cell count".
func (h *Heap) LiveLen() int {
	live := 0
	for _, c := range h.cells {
		if c.alive {
			live++
		}
	}
	return live
}

// Roots returns the number of distinct rooted handles. Exposed for
// diagnostics and property tests.
func (h *Heap) Roots() int {
	return len(h.roots)
}

// Capacity returns the current Default-strategy collect-on-alloc
// threshold. Exposed for diagnostics; meaningless under other
// strategies (they ignore it).
func (h *Heap) Capacity() int {
	return h.capacity
}

func (h *Heap) cellFor(handle Handle, op string) *cell {
	if handle.heapID != h.id {
		panic(fmt.Sprintf("alush/heap: %s: handle minted by heap %d used against heap %d", op, handle.heapID, h.id))
	}
	c, ok := h.cells[handle.index]
	if !ok {
		panic(fmt.Sprintf("alush/heap: %s: handle %v does not exist", op, handle))
	}
	if !c.alive {
		panic(fmt.Sprintf("alush/heap: %s: handle %v refers to a dead cell", op, handle))
	}
	return c
}

func (h *Heap) maybeCollectBeforeAlloc() {
	switch h.strategy {
	case Aggressive, Checking:
		h.Collect()
	case Default:
		if len(h.cells) >= h.capacity {
			h.Collect()
		}
	case Disabled:
	}
}

// Alloc inserts v as a new, unrooted cell and returns its handle.
func (h *Heap) Alloc(v Collectable) Handle {
	h.maybeCollectBeforeAlloc()
	h.counter++
	handle := Handle{heapID: h.id, index: h.counter}
	h.cells[handle.index] = &cell{value: v, alive: true}
	return handle
}

// Rooted is Alloc followed by Root.
func (h *Heap) Rooted(v Collectable) Handle {
	handle := h.Alloc(v)
	h.Root(handle)
	return handle
}

// Root increments handle's root count, creating an entry at 1 if absent.
func (h *Heap) Root(handle Handle) Handle {
	if handle.heapID != h.id {
		panic(fmt.Sprintf("alush/heap: root: handle minted by heap %d used against heap %d", handle.heapID, h.id))
	}
	h.roots[handle.index]++
	return handle
}

// Unroot decrements handle's root count, removing the entry at zero.
// Under Checking, unrooting a handle absent from the root set faults.
func (h *Heap) Unroot(handle Handle) {
	if handle.heapID != h.id {
		panic(fmt.Sprintf("alush/heap: unroot: handle minted by heap %d used against heap %d", handle.heapID, h.id))
	}
	count, ok := h.roots[handle.index]
	if !ok {
		if h.strategy == Checking {
			panic(fmt.Sprintf("alush/heap: unroot: handle %v is not in the root set", handle))
		}
		return
	}
	if count <= 1 {
		delete(h.roots, handle.index)
	} else {
		h.roots[handle.index] = count - 1
	}
}

// Get returns the value behind handle. The caller downcasts the
// returned Collectable to the variant it expects; a variant mismatch is
// the caller's bug, not this package's to detect.
func (h *Heap) Get(handle Handle) Collectable {
	return h.cellFor(handle, "get").value
}

// GetMut returns the same value as Get, for call sites that intend to
// mutate it in place (Map entries, Frame bindings). Cells are always
// stored by pointer, so Get and GetMut are the same operation in this
// implementation; GetMut exists to document intent at call sites, the
// way the spec's get/get_mut pair does.
func (h *Heap) GetMut(handle Handle) Collectable {
	return h.cellFor(handle, "get_mut").value
}

// Collect runs mark-and-sweep breadth-first from the root set (spec
// §4.1). Default deletes unreachable cells; Aggressive and Checking
// instead mark them dead so a stale handle faults on next use.
func (h *Heap) Collect() {
	queue := make([]uint64, 0, len(h.roots))
	for index := range h.roots {
		queue = append(queue, index)
	}

	for len(queue) > 0 {
		index := queue[0]
		queue = queue[1:]
		c, ok := h.cells[index]
		if !ok || c.reachable {
			continue
		}
		c.reachable = true
		for _, reached := range c.value.Trace() {
			if reached.heapID != h.id {
				panic(fmt.Sprintf("alush/heap: collect: trace reached a handle from heap %d while collecting heap %d", reached.heapID, h.id))
			}
			if rc, ok := h.cells[reached.index]; ok && !rc.reachable {
				queue = append(queue, reached.index)
			}
		}
	}

	switch h.strategy {
	case Default:
		for index, c := range h.cells {
			if !c.reachable {
				delete(h.cells, index)
			}
		}
	default: // Aggressive, Checking, Disabled (a manual Collect() call must still behave under Disabled)
		for _, c := range h.cells {
			if !c.reachable {
				c.alive = false
			}
		}
	}

	live := 0
	for _, c := range h.cells {
		if c.alive {
			live++
		}
		c.reachable = false
	}

	h.capacity = live*2 + 1
}
