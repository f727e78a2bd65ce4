package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
	"github.com/zalepa/crimedash/aggregate"
	"github.com/zalepa/crimedash/chart"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/report"
)

// barCells is the width of the longest text bar.
const barCells = 30

func cmdSummary() *cli.Command {
	var (
		dataCfg   datasetConfig
		filterCfg filterConfig
	)

	return &cli.Command{
		Name:  "summary",
		Usage: "Print a dashboard's KPIs and charts to the terminal",
		Flags: joinFlags(dataCfg.Flags(), filterCfg.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctxlog.From(ctx).Debug("Building summary", slog.Any("dataset", dataCfg), slog.Any("filters", filterCfg))

			ctrl, err := filterCfg.Configure(ctx, &dataCfg)
			if err != nil {
				return err
			}
			renderSummary(c.Root().Writer, ctrl.Snapshot())
			return nil
		},
	}
}

func renderSummary(w io.Writer, snap dashboard.Snapshot) {
	s := snap.Summary
	fmt.Fprintf(w, "Crime dashboard (%s view)\n", snap.View)
	fmt.Fprintf(w, "Filters: %s\n", report.FilterText(snap))
	fmt.Fprintf(w, "Records: %s of %s\n\n", chart.FormatInt(int64(snap.Count)), chart.FormatInt(int64(snap.Dataset)))

	kpis := [][2]string{
		{"High severity", strconv.Itoa(s.HighPct) + "%"},
		{"Open cases", strconv.Itoa(s.OpenPct) + "%"},
		{"Closed cases", strconv.Itoa(s.ClosedPct) + "%"},
		{"Avg response", strconv.Itoa(s.AvgResponse) + " min"},
	}
	for _, kv := range kpis {
		fmt.Fprintf(w, "%-15s %8s\n", kv[0], kv[1])
	}

	months := make([]float64, len(snap.Months))
	for i, n := range snap.Months {
		months[i] = float64(n)
	}
	fmt.Fprintf(w, "%-15s %8s   %s\n", "Months", aggregate.MonthNames[0]+"-"+aggregate.MonthNames[11], chart.Sparkline(months))
	if snap.MonthsDropped > 0 {
		fmt.Fprintf(w, "(%d records without a valid month left out)\n", snap.MonthsDropped)
	}

	for _, sd := range snap.Charts {
		fmt.Fprintln(w)
		renderBars(w, sd)
	}
	if len(snap.Hidden) > 0 {
		fmt.Fprintf(w, "\nHidden: %s\n", strings.Join(snap.Hidden, ", "))
	}
}

// renderBars prints one text bar per label. Multi-series charts show the
// total across series.
func renderBars(w io.Writer, sd dashboard.SlotData) {
	fmt.Fprintln(w, sd.Title)
	if len(sd.Labels) == 0 {
		fmt.Fprintln(w, "  (no data)")
		return
	}

	totals := make([]float64, len(sd.Labels))
	for _, s := range sd.Series {
		for i, v := range s.Values {
			totals[i] += v
		}
	}

	maxName := 0
	for _, l := range sd.Labels {
		maxName = max(maxName, len(l))
	}
	top := slices.Max(totals)
	if sd.ValueMax > 0 {
		top = sd.ValueMax
	}

	rowFmt := fmt.Sprintf("  %%-%ds  %%-%ds %%s\n", maxName, barCells)
	for i, l := range sd.Labels {
		cells := 0
		if top > 0 {
			cells = int(totals[i] / top * barCells)
		}
		fmt.Fprintf(w, rowFmt, l, strings.Repeat("█", cells), chart.FormatCompact(totals[i]))
	}
}
