package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"gridstitch/internal/diag"
	"gridstitch/internal/registration"
	"gridstitch/internal/stitch"
)

// summaryTable renders the outcome of one run.
func summaryTable(res *stitch.Result) string {
	t := table.NewWriter()
	t.SetTitle("Registration")
	sol := res.Solution
	pairs := 0
	for _, c := range res.Correspondences {
		pairs += c.Len()
	}
	t.AppendRows([]table.Row{
		{"Grid", fmt.Sprintf("%dx%d", res.Grid.Rows, res.Grid.Cols)},
		{"Edges used", fmt.Sprintf("%d / %d", len(res.Correspondences), len(res.Edges))},
		{"Pairs", pairs},
		{"Status", sol.Status},
		{"Iterations", sol.Iterations},
		{"Distance", fmt.Sprintf("%.3f -> %.3f", sol.InitialDistance, sol.Distance)},
		{"Mean residual", fmt.Sprintf("%.3f px", res.MeanResidual)},
	})
	if res.Mosaic != nil {
		b := res.Mosaic.Image.Bounds()
		t.AppendRow(table.Row{"Mosaic", fmt.Sprintf("%dx%d", b.Dx(), b.Dy())})
	}
	for _, kc := range res.Report.Counts() {
		t.AppendRow(table.Row{"Warnings: " + kc.Kind.String(), kc.Count})
	}
	return t.Render()
}

// warningsTable lists warnings in the order they were raised.
func warningsTable(ws []diag.Warning) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Kind", "Edge", "Tiles", "Message"})
	for i, w := range ws {
		edge := ""
		if w.Edge != nil {
			edge = w.Edge.String()
		}
		tiles := ""
		if len(w.Tiles) > 0 {
			tiles = fmt.Sprint(w.Tiles)
		}
		t.AppendRow(table.Row{i + 1, w.Kind, edge, tiles, w.Message})
	}
	return t.Render()
}

// residualTable renders per-edge canvas distances after solving.
func residualTable(rs []registration.EdgeResidual) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Edge", "Pairs", "Mean", "Max", "Std"})
	for _, r := range rs {
		t.AppendRow(table.Row{
			r.Edge.String(),
			r.Pairs,
			fmt.Sprintf("%.3f", r.Mean),
			fmt.Sprintf("%.3f", r.Max),
			fmt.Sprintf("%.3f", r.Std),
		})
	}
	return t.Render()
}
