package eval

import (
	"fmt"

	"github.com/alush-lang/alush"
	"github.com/alush-lang/alush/heap"
)

func errf(format string, args ...any) error {
	return alush.WithStack(fmt.Errorf(format, args...))
}

func arityErr(name string, want, got int) error {
	return errf("%s: expected %d argument(s), got %d", name, want, got)
}

func unrootAll(h *heap.Heap, handles ...heap.Handle) {
	for _, hdl := range handles {
		h.Unroot(hdl)
	}
}
