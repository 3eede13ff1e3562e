// Package stats renders the operator-facing view onto a heap.Heap's
// self-test harness (spec.md §4.1): strategy, live-cell count,
// root-set size, and capacity, as a github.com/rodaine/table the way
// game/stats_commands.go renders its dashboards in the teacher repo.
package stats

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gertd/go-pluralize"
	"github.com/rodaine/table"

	"github.com/alush-lang/alush/heap"
)

var plur = pluralize.NewClient()

// Print writes a one-row diagnostics table describing h to w. It is
// reachable from the CLI's -stats flag and the REPL's :stats
// meta-command (SPEC_FULL.md §3, §5).
func Print(w io.Writer, h *heap.Heap) {
	t := table.New("Strategy", "Live cells", "Retained cells", "Root-set size", "Capacity").WithWriter(w)
	t.AddRow(
		h.Strategy().String(),
		plur.Pluralize("cell", h.LiveLen(), true),
		humanize.Comma(int64(h.Len())),
		plur.Pluralize("handle", h.Roots(), true),
		humanize.Comma(int64(h.Capacity())),
	)
	t.Print()
}
