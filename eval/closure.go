package eval

import (
	"strconv"

	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/syntax"
	"github.com/alush-lang/alush/value"
)

// applyClosure implements spec §4.3's "Closure application": a fresh
// frame is linked to the closure's *captured* stack (not the call
// site's), giving closures dynamic scoping over the frame extant at
// their definition.
func (ev *Evaluator) applyClosure(cl value.Closure, args []heap.Handle) (heap.Handle, error) {
	capturedStack := cl.Stack
	newStack := ev.h.Rooted(value.Stack{Frame: value.Frame{Variables: map[string]heap.Handle{}}, Up: &capturedStack})
	frame := ev.h.Get(newStack).(value.Stack).Frame

	count := ev.h.Rooted(value.String{Value: strconv.Itoa(len(args))})
	frame.Variables["#"] = count
	ev.h.Unroot(count)

	for i, a := range args {
		frame.Variables[strconv.Itoa(i+1)] = a
	}

	prevStack := ev.stack
	ev.stack = newStack
	result, err := ev.evalCommandsSequential(cl.Code.(*syntax.Commands))
	ev.stack = prevStack
	ev.h.Unroot(newStack)
	return result, err
}
