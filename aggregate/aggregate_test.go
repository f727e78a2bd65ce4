package aggregate_test

import (
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/zalepa/crimedash/aggregate"
	"github.com/zalepa/crimedash/incident"
)

func scenario() []incident.Record {
	return []incident.Record{
		{
			Year: incident.NewInt(2020), CrimeType: "theft", State: "CA", CaseStatus: "open",
			Severity: "high", ResponseTime: incident.NewFloat(10), Month: incident.NewInt(1),
			ArrestMade: "yes", AreaType: "urban", CrimeCategory: "property",
		},
		{
			Year: incident.NewInt(2020), CrimeType: "assault", State: "CA", CaseStatus: "closed",
			Severity: "low", ResponseTime: incident.Float{Raw: "N/A"}, Month: incident.NewInt(2),
			ArrestMade: "no", AreaType: "rural", CrimeCategory: "violent",
		},
	}
}

func TestSummarizeScenario(t *testing.T) {
	s := aggregate.Summarize(scenario())
	gt.Equal(t, s, aggregate.Summary{
		Total:       2,
		HighPct:     50,
		OpenPct:     50,
		ClosedPct:   50,
		AvgResponse: 10,
	})
}

func TestSummarizeEmpty(t *testing.T) {
	gt.Equal(t, aggregate.Summarize(nil), aggregate.Summary{})
}

func TestSummarizeOpenClosedComplement(t *testing.T) {
	// 1 of 8 open is 12.5%, which rounds to 13; closed must still be 87.
	var records []incident.Record
	for i := range 8 {
		status := "closed"
		if i == 0 {
			status = "open"
		}
		records = append(records, incident.Record{CaseStatus: status})
	}
	for n := 1; n <= len(records); n++ {
		s := aggregate.Summarize(records[:n])
		if s.OpenPct+s.ClosedPct != 100 {
			t.Errorf("n=%d: open %d + closed %d != 100", n, s.OpenPct, s.ClosedPct)
		}
	}
	gt.Equal(t, aggregate.Summarize(records).OpenPct, 13)
}

func TestSummarizeAverageRounds(t *testing.T) {
	records := []incident.Record{
		{ResponseTime: incident.NewFloat(10)},
		{ResponseTime: incident.NewFloat(11)},
		{ResponseTime: incident.Float{}},
	}
	gt.Equal(t, aggregate.Summarize(records).AvgResponse, 11)
}

func TestByMonthScenario(t *testing.T) {
	m, err := aggregate.ByMonth(scenario(), aggregate.DropMonths)
	gt.NoError(t, err)
	var want [12]int
	want[0], want[1] = 1, 1
	gt.Equal(t, m.Buckets, want)
	gt.Equal(t, m.Dropped, 0)
}

func TestByMonthPolicies(t *testing.T) {
	records := []incident.Record{
		{Month: incident.NewInt(0)},
		{Month: incident.NewInt(13)},
		{Month: incident.NewInt(6)},
		{Month: incident.Int{}},
	}

	t.Run("drop", func(t *testing.T) {
		m, err := aggregate.ByMonth(records, aggregate.DropMonths)
		gt.NoError(t, err)
		gt.Equal(t, m.Buckets[5], 1)
		gt.Equal(t, m.Dropped, 3)
	})

	t.Run("clamp", func(t *testing.T) {
		m, err := aggregate.ByMonth(records, aggregate.ClampMonths)
		gt.NoError(t, err)
		gt.Equal(t, m.Buckets[0], 1)
		gt.Equal(t, m.Buckets[11], 1)
		gt.Equal(t, m.Buckets[5], 1)
		gt.Equal(t, m.Dropped, 1)
	})

	t.Run("error", func(t *testing.T) {
		_, err := aggregate.ByMonth(records, aggregate.RejectMonths)
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, aggregate.ErrTagMonthRange))
	})

	t.Run("empty", func(t *testing.T) {
		m, err := aggregate.ByMonth(nil, aggregate.RejectMonths)
		gt.NoError(t, err)
		gt.Equal(t, m, aggregate.Months{})
	})
}

func TestCountBySumsToInput(t *testing.T) {
	records := []incident.Record{
		{State: "CA"}, {State: "NY"}, {State: "CA"}, {}, {State: "TX"}, {State: "NY"},
	}
	for _, d := range []incident.Dimension{incident.State, incident.CrimeType, incident.Year, incident.AreaType} {
		c := aggregate.CountBy(records, d)
		if c.Total() != len(records) {
			t.Errorf("CountBy(%q) totals %d, want %d", d, c.Total(), len(records))
		}
	}

	c := aggregate.CountBy(records, incident.State)
	gt.Equal(t, c, aggregate.Counts{
		{Label: "CA", Count: 2},
		{Label: "NY", Count: 2},
		{Label: incident.MissingLabel, Count: 1},
		{Label: "TX", Count: 1},
	})
	gt.Equal(t, c.Get("NY"), 2)
	gt.Equal(t, c.Get("ZZ"), 0)
	gt.A(t, aggregate.CountBy(nil, incident.State)).Length(0)
}

func TestTopN(t *testing.T) {
	counts := aggregate.Counts{
		{Label: "A", Count: 1},
		{Label: "B", Count: 5},
		{Label: "C", Count: 3},
		{Label: "D", Count: 5},
		{Label: "E", Count: 3},
		{Label: "F", Count: 2},
	}
	top := aggregate.TopN(counts, 4)
	gt.Equal(t, top.Labels(), []string{"B", "D", "C", "E"})

	// every returned count is >= every count left out
	kept := map[string]bool{}
	minKept := top[len(top)-1].Count
	for _, c := range top {
		kept[c.Label] = true
	}
	for _, c := range counts {
		if !kept[c.Label] && c.Count > minKept {
			t.Errorf("%s (%d) left out but exceeds %d", c.Label, c.Count, minKept)
		}
	}

	gt.Equal(t, counts[0].Label, "A")
	gt.A(t, aggregate.TopN(counts[:2], 4)).Length(2)
	gt.A(t, aggregate.TopN(nil, 4)).Length(0)
	gt.A(t, aggregate.TopN(counts, -1)).Length(0)
}

func TestSortedKeys(t *testing.T) {
	counts := aggregate.Counts{{Label: "100"}, {Label: "9"}, {Label: "(missing)"}, {Label: "10"}}
	gt.Equal(t, aggregate.SortedKeys(counts), []string{"(missing)", "10", "100", "9"})
	gt.Equal(t, aggregate.SortedNumericKeys(counts), []string{"9", "10", "100", "(missing)"})
	gt.Equal(t, aggregate.Lexical.Keys(counts), aggregate.SortedKeys(counts))
	gt.Equal(t, aggregate.Numeric.Keys(counts), aggregate.SortedNumericKeys(counts))
}

func TestRate(t *testing.T) {
	records := []incident.Record{
		{CrimeType: "theft", ArrestMade: "yes"},
		{CrimeType: "theft", ArrestMade: "no"},
		{CrimeType: "theft", ArrestMade: "no"},
		{CrimeType: "assault", ArrestMade: "yes"},
		{CrimeType: "fraud", ArrestMade: "no"},
	}
	got := aggregate.Rate(records, incident.CrimeType, incident.Record.HasArrest)
	gt.Equal(t, got, []aggregate.RateEntry{
		{Label: "theft", Percent: 33.3},
		{Label: "assault", Percent: 100},
		{Label: "fraud", Percent: 0},
	})
	for _, e := range got {
		if e.Percent < 0 || e.Percent > 100 {
			t.Errorf("rate %s = %v out of range", e.Label, e.Percent)
		}
	}
	gt.A(t, aggregate.Rate(nil, incident.CrimeType, incident.Record.HasArrest)).Length(0)
}

func TestGroupBy2(t *testing.T) {
	records := scenario()
	records = append(records, incident.Record{CrimeType: "theft", AreaType: "rural"})

	g := aggregate.GroupBy2(records, incident.CrimeType, incident.AreaType)
	gt.Equal(t, g.Rows, []string{"theft", "assault"})
	gt.Equal(t, g.Cols, []string{"urban", "rural"})
	gt.Equal(t, g.Cell("theft", "urban"), 1)
	gt.Equal(t, g.Cell("theft", "rural"), 1)
	gt.Equal(t, g.Cell("assault", "urban"), 0)
	gt.Equal(t, g.Column("rural", g.Rows), []float64{1, 1})

	empty := aggregate.GroupBy2(nil, incident.Year, incident.CrimeCategory)
	gt.A(t, empty.Rows).Length(0)
	gt.Equal(t, empty.Cell("2020", "property"), 0)
}

func TestCountsIdempotent(t *testing.T) {
	records := scenario()
	a := aggregate.CountBy(records, incident.CrimeType)
	b := aggregate.CountBy(records, incident.CrimeType)
	gt.Equal(t, a, b)
	gt.Equal(t, aggregate.Summarize(records), aggregate.Summarize(records))
}
