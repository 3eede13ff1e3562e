package eval_test

import (
	"testing"

	"github.com/alush-lang/alush/eval"
	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/parser"
	"github.com/alush-lang/alush/syntax"
)

// run parses and evaluates src under strategy, returning the rendered
// wire-format text of the final top-level result.
func run(t *testing.T, strategy heap.Strategy, src string) (string, *eval.Evaluator) {
	t.Helper()
	cmds, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := eval.New(strategy)
	result, err := ev.EvalCommands(cmds)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	rendered := eval.Render(ev, result)
	ev.Heap().Unroot(result)
	return rendered, ev
}

// TestVariablesAndBlocks is spec.md §8 scenario 1.
func TestVariablesAndBlocks(t *testing.T) {
	src := `
var var-name x
var $var-name 1
val $(set x 2; set x $(inc $x); var tmp hello; del tmp;
      val $(var x 10; set x 4); get x)
`
	got, _ := run(t, heap.Checking, src)
	if got != "3" {
		t.Fatalf("got %q, want \"3\"", got)
	}
}

// TestClosureCaptureAndMutation is spec.md §8 scenario 2.
func TestClosureCaptureAndMutation(t *testing.T) {
	src := `
var counter (var count 0; val (set count $(inc $count); get count))
var c1 $(counter)
c1
var c2 $(counter)
+ $(c2) $(c1)
`
	got, _ := run(t, heap.Checking, src)
	if got != "3" {
		t.Fatalf("got %q, want \"3\"", got)
	}
}

// TestFactorial is spec.md §8 scenario 3.
func TestFactorial(t *testing.T) {
	src := `
var factorial (var x $1;
  if $(= $x 0) (val 1) (* $x $(factorial $(+ $x -1))))
factorial 5
`
	got, _ := run(t, heap.Checking, src)
	if got != "120" {
		t.Fatalf("got %q, want \"120\"", got)
	}
}

// TestExceptionAndLoop is spec.md §8 scenario 4.
func TestExceptionAndLoop(t *testing.T) {
	src := `
var count 0
val $(catch $(repeat $(
  set count $(+ 1 $count)
  $(if $(= $count 10) (throw $count) ()))))
`
	got, _ := run(t, heap.Checking, src)
	if got != "10" {
		t.Fatalf("got %q, want \"10\"", got)
	}
}

// TestMapRoundTrip is spec.md §8 scenario 5.
func TestMapRoundTrip(t *testing.T) {
	src := `
var m $(map a 1 b 2)
m set c 3
m del a
`
	_, ev := run(t, heap.Checking, src)

	has, err := ev.EvalCommand(mustCommand(t, "m has b"))
	if err != nil {
		t.Fatalf("m has b: %v", err)
	}
	if got := eval.Render(ev, has); got != "true" {
		t.Fatalf("m has b: got %q, want \"true\"", got)
	}
	ev.Heap().Unroot(has)

	got, err := ev.EvalCommand(mustCommand(t, "m get c"))
	if err != nil {
		t.Fatalf("m get c: %v", err)
	}
	if rendered := eval.Render(ev, got); rendered != "3" {
		t.Fatalf("m get c: got %q, want \"3\"", rendered)
	}
	ev.Heap().Unroot(got)
}

func mustCommand(t *testing.T, src string) *syntax.Command {
	t.Helper()
	cmd, err := parser.ParseCommand(src)
	if err != nil {
		t.Fatalf("ParseCommand(%q): %v", src, err)
	}
	return cmd
}

// TestPreciseGCAcceptance is spec.md §8 scenario 6 / property P2: under
// Checking, once the top-level result and the evaluator's own stack
// root are released, collect() must empty both the root set and the
// live-cell population.
func TestPreciseGCAcceptance(t *testing.T) {
	scripts := []string{
		`var factorial (var x $1; if $(= $x 0) (val 1) (* $x $(factorial $(+ $x -1)))); factorial 5`,
		`var count 0; val $(catch $(repeat $(set count $(+ 1 $count); $(if $(= $count 10) (throw $count) ()))))`,
	}
	for _, src := range scripts {
		cmds, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		ev := eval.New(heap.Checking)
		result, err := ev.EvalCommands(cmds)
		if err != nil {
			t.Fatalf("eval: %v", err)
		}
		ev.Heap().Unroot(result)
		ev.Heap().Unroot(ev.Stack())
		ev.Heap().Collect()
		if got := ev.Heap().Roots(); got != 0 {
			t.Fatalf("%q: got %d roots after release, want 0", src, got)
		}
		if got := ev.Heap().LiveLen(); got != 0 {
			t.Fatalf("%q: got %d live cells after release, want 0", src, got)
		}
	}
}

// TestCatchThrowTransparency is property P5: catch $(throw v) == v.
func TestCatchThrowTransparency(t *testing.T) {
	got, _ := run(t, heap.Checking, `catch $(throw hello)`)
	if got != "hello" {
		t.Fatalf("got %q, want \"hello\"", got)
	}
}

// TestSetOnAbsentVariableErrors resolves spec.md §9's open question:
// only var creates bindings, set errors on an absent one.
func TestSetOnAbsentVariableErrors(t *testing.T) {
	cmds, err := parser.Parse(`set nope 1`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := eval.New(heap.Default)
	if _, err := ev.EvalCommands(cmds); err == nil {
		t.Fatalf("expected an error setting an absent binding")
	}
}

// TestStrategyEquivalence is property P4: Disabled and Default must
// produce identical user-observable results.
func TestStrategyEquivalence(t *testing.T) {
	src := `var factorial (var x $1; if $(= $x 0) (val 1) (* $x $(factorial $(+ $x -1)))); factorial 6`
	disabled, _ := run(t, heap.Disabled, src)
	def, _ := run(t, heap.Default, src)
	if disabled != def {
		t.Fatalf("disabled=%q default=%q, want equal", disabled, def)
	}
}
