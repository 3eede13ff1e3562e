// Package alush holds the small set of helpers shared by every other
// package in this module: error wrapping and the process-wide heap-id
// counter used by package heap.
package alush

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ReadFile wraps os.ReadFile; a dedicated helper so every file-reading
// call site (the CLI's script mode, the `source` builtin) goes through
// the same stack-trace-carrying error path.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WithStack(err)
	}
	return data, nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithStack wraps err with a stack trace, unless it already carries one.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); !ok {
		return errors.WithStack(err)
	}
	return err
}

// StackTrace renders the stack trace attached by WithStack, if any.
func StackTrace(err error) string {
	buf := &bytes.Buffer{}
	if err, ok := err.(stackTracer); ok {
		for _, f := range err.StackTrace() {
			fmt.Fprintf(buf, "%+v\n", f)
		}
	}
	return buf.String()
}

var heapIDCounter uint64

// NextHeapID hands out the next id in the process-wide monotonic sequence
// used to tag each heap.Heap. It is the one resource package heap shares
// across goroutines (spec.md §5), so the increment goes through a single
// atomic instruction rather than the CAS-retry loop the teacher uses for
// its (timestamp-seeded) unique ids.
func NextHeapID() uint64 {
	return atomic.AddUint64(&heapIDCounter, 1)
}
