package eval

import (
	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/value"
)

// Render converts handle's value to its wire-format text (spec §6):
// the String payload itself, or a bracketed placeholder for every other
// variant.
func Render(env value.Env, handle heap.Handle) string {
	switch v := env.Heap().Get(handle).(type) {
	case value.String:
		return v.Value
	case value.Builtin:
		return "<builtin>"
	case value.LazyBuiltin:
		return "<lazy>"
	case value.Closure:
		return "<closure>"
	case *value.Map:
		return "<map>"
	case value.Exception:
		return "<throw " + Render(env, v.Wrapped) + ">"
	default:
		return "<unknown>"
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
