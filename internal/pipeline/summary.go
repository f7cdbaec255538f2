package pipeline

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteSummary renders one row per outcome plus a totals footer.
func WriteSummary(w io.Writer, outcomes []Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Target", "Status", "Populated", "Defaulted", "Skipped rows", "Duration"})

	var populated, defaulted, skipped int
	var total time.Duration
	for _, o := range outcomes {
		t.AppendRow(table.Row{
			o.Target,
			o.Status(),
			o.Populated,
			o.Defaulted,
			o.SkippedRows,
			o.Duration.Round(time.Millisecond),
		})
		populated += o.Populated
		defaulted += o.Defaulted
		skipped += o.SkippedRows
		total += o.Duration
	}

	t.AppendFooter(table.Row{"Total", len(outcomes), populated, defaulted, skipped, total.Round(time.Millisecond)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
