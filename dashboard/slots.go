package dashboard

import (
	"slices"

	"github.com/zalepa/crimedash/aggregate"
	"github.com/zalepa/crimedash/chart"
	"github.com/zalepa/crimedash/incident"
)

// Slot names of the admin view.
const (
	SlotCrimeType  = "crime-type"
	SlotTopStates  = "top-states"
	SlotOpenClosed = "open-closed"
	SlotMonth      = "month"
)

// Slot names of the user view. The user pie reuses SlotCrimeType.
const (
	SlotState         = "state"
	SlotYearly        = "yearly"
	SlotAreaCluster   = "area-cluster"
	SlotCategoryStack = "category-stack"
	SlotArrestRate    = "arrest-rate"
)

// Color offsets of the user view charts that do not start at the first
// palette color.
const (
	arrestRateOffset    = 2
	categoryStackOffset = 4
)

// SlotNames lists the chart slots view renders under cfg, in display order.
func SlotNames(view View, cfg Config) []string {
	if view == Admin {
		return []string{SlotCrimeType, SlotTopStates, SlotOpenClosed, SlotMonth}
	}
	names := []string{SlotState, SlotCrimeType, SlotYearly, SlotAreaCluster, SlotCategoryStack}
	if cfg.ArrestRate {
		names = append(names, SlotArrestRate)
	}
	return names
}

// SlotData is the series drawn into one slot.
type SlotData struct {
	Slot string `json:"slot"`
	chart.Spec
}

// panel is the result of aggregating one filtered record set for a view.
type panel struct {
	charts []SlotData
	months aggregate.Months
}

func countSpec(title, series string, kind chart.Kind, counts aggregate.Counts, p chart.Palette) chart.Spec {
	return chart.Spec{
		Title:   title,
		Kind:    kind,
		Labels:  counts.Labels(),
		Series:  []chart.Series{{Name: series, Values: counts.Values()}},
		Palette: p,
	}
}

func buildAdmin(records []incident.Record, cfg Config) (panel, error) {
	p := cfg.palette(Admin)

	months, err := aggregate.ByMonth(records, cfg.MonthPolicy)
	if err != nil {
		return panel{}, err
	}

	openClosed := chart.Spec{
		Title:  "Open vs Closed",
		Kind:   chart.Pie,
		Labels: []string{"Open", "Closed"},
		Series: []chart.Series{{Name: "Cases", Values: []float64{
			float64(aggregate.CountWhere(records, incident.Record.IsOpen)),
			float64(aggregate.CountWhere(records, incident.Record.IsClosed)),
		}}},
		Palette: p,
	}

	month := chart.Spec{
		Title:   "Crimes by Month",
		Kind:    chart.Bar,
		Labels:  slices.Clone(aggregate.MonthNames),
		Series:  []chart.Series{{Name: "Incidents", Values: months.Values()}},
		Palette: p,
	}

	return panel{
		months: months,
		charts: []SlotData{
			{Slot: SlotCrimeType, Spec: countSpec("Crimes by Type", "Incidents", chart.Bar, aggregate.CountBy(records, incident.CrimeType), p)},
			{Slot: SlotTopStates, Spec: countSpec("Top States", "Incidents", chart.Bar, aggregate.TopN(aggregate.CountBy(records, incident.State), cfg.TopN), p)},
			{Slot: SlotOpenClosed, Spec: openClosed},
			{Slot: SlotMonth, Spec: month},
		},
	}, nil
}

func buildUser(records []incident.Record, cfg Config) (panel, error) {
	p := cfg.palette(User)

	months, err := aggregate.ByMonth(records, cfg.MonthPolicy)
	if err != nil {
		return panel{}, err
	}

	yearCounts := aggregate.CountBy(records, incident.Year)
	years := cfg.YearOrder.Keys(yearCounts)
	yearly := make([]float64, len(years))
	for i, y := range years {
		yearly[i] = float64(yearCounts.Get(y))
	}

	area := aggregate.GroupBy2(records, incident.CrimeType, incident.AreaType)
	cluster := chart.Spec{
		Title:   "Crime Types by Area",
		Kind:    chart.Clustered,
		Labels:  area.Rows,
		Series:  make([]chart.Series, 0, len(area.Cols)),
		Palette: p,
	}
	for _, col := range area.Cols {
		cluster.Series = append(cluster.Series, chart.Series{Name: col, Values: area.Column(col, area.Rows)})
	}

	category := aggregate.GroupBy2(records, incident.Year, incident.CrimeCategory)
	stack := chart.Spec{
		Title:       "Crime Categories per Year",
		Kind:        chart.Stacked,
		Labels:      years,
		Series:      make([]chart.Series, 0, len(category.Cols)),
		Palette:     p,
		ColorOffset: categoryStackOffset,
	}
	for _, col := range category.Cols {
		stack.Series = append(stack.Series, chart.Series{Name: col, Values: category.Column(col, years)})
	}

	charts := []SlotData{
		{Slot: SlotState, Spec: countSpec("Crimes by State", "Total Incidents", chart.Bar, aggregate.CountBy(records, incident.State), p)},
		{Slot: SlotCrimeType, Spec: countSpec("Crime Distribution", "Crime Types", chart.Pie, aggregate.CountBy(records, incident.CrimeType), p)},
		{Slot: SlotYearly, Spec: chart.Spec{
			Title:   "Yearly Trend",
			Kind:    chart.Line,
			Labels:  years,
			Series:  []chart.Series{{Name: "Crimes per Year", Values: yearly}},
			Palette: p,
		}},
		{Slot: SlotAreaCluster, Spec: cluster},
		{Slot: SlotCategoryStack, Spec: stack},
	}

	if cfg.ArrestRate {
		rates := aggregate.Rate(records, incident.CrimeType, incident.Record.HasArrest)
		spec := chart.Spec{
			Title:       "Arrest Success Rate (%)",
			Kind:        chart.HBar,
			Labels:      make([]string, len(rates)),
			Series:      []chart.Series{{Name: "Arrest Success Rate (%)", Values: make([]float64, len(rates))}},
			Palette:     p,
			ColorOffset: arrestRateOffset,
			ValueMax:    100,
		}
		for i, r := range rates {
			spec.Labels[i] = r.Label
			spec.Series[0].Values[i] = r.Percent
		}
		charts = append(charts, SlotData{Slot: SlotArrestRate, Spec: spec})
	}

	return panel{charts: charts, months: months}, nil
}
