package stats

import (
	"strings"
	"testing"

	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/value"
)

func TestPrintIncludesStrategyAndCounts(t *testing.T) {
	h := heap.New(heap.Aggressive)
	root := h.Rooted(value.String{Value: "x"})
	defer h.Unroot(root)

	var buf strings.Builder
	Print(&buf, h)
	out := buf.String()

	if !strings.Contains(out, "aggressive") {
		t.Fatalf("expected strategy name in output, got:\n%s", out)
	}
	if !strings.Contains(out, "1 cell") {
		t.Fatalf("expected a live-cell count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "1 handle") {
		t.Fatalf("expected a root-set size in output, got:\n%s", out)
	}
}
