package dashboard_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/zalepa/crimedash/aggregate"
	"github.com/zalepa/crimedash/chart"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/filter"
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

func wider() []incident.Record {
	records := scenario()
	return append(records,
		incident.Record{Year: incident.NewInt(2021), CrimeType: "fraud", State: "NY", CaseStatus: "open", Month: incident.NewInt(3)},
		incident.Record{Year: incident.NewInt(2019), CrimeType: "theft", State: "TX", CaseStatus: "closed", Month: incident.NewInt(12)},
	)
}

type fakeSource struct {
	records []incident.Record
	err     error
	calls   int
}

func (f *fakeSource) Load(ctx context.Context, source string) ([]incident.Record, error) {
	f.calls++
	return f.records, f.err
}

func ready(t *testing.T, view dashboard.View, records []incident.Record) *dashboard.Controller {
	t.Helper()
	c := dashboard.New(view, dashboard.DefaultConfig())
	gt.NoError(t, c.Attach(context.Background(), records))
	return c
}

func TestAdminScenario(t *testing.T) {
	ctx := context.Background()
	c := ready(t, dashboard.Admin, scenario())

	snap := c.Snapshot()
	gt.Equal(t, snap.State, dashboard.Ready)
	gt.Equal(t, snap.Summary, aggregate.Summary{Total: 2, HighPct: 50, OpenPct: 50, ClosedPct: 50, AvgResponse: 10})
	gt.Equal(t, snap.Months[0], 1)
	gt.Equal(t, snap.Months[1], 1)

	on, err := c.Toggle(ctx, incident.State, "CA")
	gt.NoError(t, err)
	gt.True(t, on)
	snap = c.Snapshot()
	gt.Equal(t, snap.Count, 2)
	_, shown := snap.Chart(dashboard.SlotCrimeType)
	gt.True(t, shown)

	_, err = c.Toggle(ctx, incident.CrimeType, "theft")
	gt.NoError(t, err)
	snap = c.Snapshot()
	gt.Equal(t, snap.Count, 1)
	gt.Equal(t, snap.Hidden, []string{dashboard.SlotCrimeType})
	_, shown = snap.Chart(dashboard.SlotCrimeType)
	gt.False(t, shown)
	_, live := c.Chart(dashboard.SlotCrimeType)
	gt.False(t, live)
	gt.Equal(t, snap.Filters[incident.CrimeType], []string{"theft"})

	// a second crime type brings the breakdown back
	_, err = c.Toggle(ctx, incident.CrimeType, "assault")
	gt.NoError(t, err)
	snap = c.Snapshot()
	gt.Equal(t, snap.Count, 2)
	gt.A(t, snap.Hidden).Length(0)
	_, live = c.Chart(dashboard.SlotCrimeType)
	gt.True(t, live)
}

func TestAdminSlots(t *testing.T) {
	c := ready(t, dashboard.Admin, wider())
	snap := c.Snapshot()

	var slots []string
	for _, sd := range snap.Charts {
		slots = append(slots, sd.Slot)
		inst, ok := c.Chart(sd.Slot)
		gt.True(t, ok)
		gt.S(t, string(inst.Bytes())).Contains("<svg")
	}
	gt.Equal(t, slots, c.Slots())

	oc, _ := snap.Chart(dashboard.SlotOpenClosed)
	gt.Equal(t, oc.Kind, chart.Pie)
	gt.Equal(t, oc.Labels, []string{"Open", "Closed"})
	gt.Equal(t, oc.Series[0].Values, []float64{2, 2})
	gt.Equal(t, oc.Palette, chart.Hue)

	top, _ := snap.Chart(dashboard.SlotTopStates)
	gt.Equal(t, top.Labels, []string{"CA", "NY", "TX"})

	month, _ := snap.Chart(dashboard.SlotMonth)
	gt.A(t, month.Labels).Length(12)
	gt.Equal(t, month.Series[0].Values[11], 1.0)
}

func TestFilteredCountMatchesPredicate(t *testing.T) {
	ctx := context.Background()
	records := wider()
	c := ready(t, dashboard.Admin, records)

	steps := []struct {
		dim   incident.Dimension
		value string
	}{
		{incident.Year, "2020"},
		{incident.State, "TX"},
		{incident.Year, "2019"},
		{incident.CrimeType, "theft"},
		{incident.Year, "2020"},
	}
	years := map[string]bool{}
	states := map[string]bool{}
	types := map[string]bool{}
	sets := map[incident.Dimension]map[string]bool{incident.Year: years, incident.State: states, incident.CrimeType: types}

	for _, step := range steps {
		_, err := c.Toggle(ctx, step.dim, step.value)
		gt.NoError(t, err)
		set := sets[step.dim]
		set[step.value] = !set[step.value]

		want := 0
		for _, r := range records {
			if pass(years, r.Label(incident.Year)) && pass(states, r.State) && pass(types, r.CrimeType) {
				want++
			}
		}
		gt.Equal(t, c.Snapshot().Count, want)
	}
}

func pass(set map[string]bool, v string) bool {
	active := false
	for _, on := range set {
		active = active || on
	}
	return !active || set[v]
}

func TestUserView(t *testing.T) {
	ctx := context.Background()
	c := ready(t, dashboard.User, wider())

	years, err := c.Options(incident.Year)
	gt.NoError(t, err)
	gt.Equal(t, years, []string{"2019", "2020", "2021"})
	states, err := c.Options(incident.State)
	gt.NoError(t, err)
	gt.Equal(t, states, []string{"CA", "NY", "TX"})

	snap := c.Snapshot()
	gt.Equal(t, snap.Count, 4)
	names := make([]string, len(snap.Charts))
	for i, sd := range snap.Charts {
		names[i] = sd.Slot
	}
	gt.Equal(t, names, []string{
		dashboard.SlotState, dashboard.SlotCrimeType, dashboard.SlotYearly,
		dashboard.SlotAreaCluster, dashboard.SlotCategoryStack, dashboard.SlotArrestRate,
	})

	yearly, _ := snap.Chart(dashboard.SlotYearly)
	gt.Equal(t, yearly.Labels, []string{"2019", "2020", "2021"})
	gt.Equal(t, yearly.Series[0].Values, []float64{1, 2, 1})

	stack, _ := snap.Chart(dashboard.SlotCategoryStack)
	gt.Equal(t, stack.Labels, yearly.Labels)
	gt.Equal(t, stack.ColorOffset, 4)

	gt.Equal(t, snap.Months, [12]int{1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 1})

	arrest, _ := snap.Chart(dashboard.SlotArrestRate)
	gt.Equal(t, arrest.Kind, chart.HBar)
	gt.Equal(t, arrest.ValueMax, 100.0)
	gt.Equal(t, arrest.ColorOffset, 2)
	gt.Equal(t, arrest.Labels, []string{"theft", "assault", "fraud"})
	gt.Equal(t, arrest.Series[0].Values, []float64{50, 0, 0})

	// choices do nothing until applied
	gt.NoError(t, c.Choose(incident.State, "CA"))
	gt.NoError(t, c.Choose(incident.Year, " 2020"))
	gt.Equal(t, c.Snapshot().Count, 4)
	gt.NoError(t, c.ApplyFilters(ctx))
	snap = c.Snapshot()
	gt.Equal(t, snap.Count, 2)
	gt.Equal(t, snap.Filters[incident.Year], []string{"2020"})

	gt.NoError(t, c.SetFilters(ctx, map[incident.Dimension]string{incident.CrimeType: "theft"}))
	snap = c.Snapshot()
	gt.Equal(t, snap.Count, 2)
	gt.Equal(t, snap.Filters, map[incident.Dimension][]string{incident.CrimeType: {"theft"}})
	gt.A(t, snap.Hidden).Length(0)
}

func TestUserSetFiltersIsAtomic(t *testing.T) {
	ctx := context.Background()
	c := ready(t, dashboard.User, wider())
	gt.NoError(t, c.SetFilters(ctx, map[incident.Dimension]string{incident.State: "NY"}))

	err := c.SetFilters(ctx, map[incident.Dimension]string{incident.State: "CA", incident.Year: "1999"})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, dashboard.ErrTagUnknownValue))
	gt.NoError(t, c.ApplyFilters(ctx))
	gt.Equal(t, c.Snapshot().Count, 1)

	err = c.SetFilters(ctx, map[incident.Dimension]string{incident.Year: "twenty"})
	gt.True(t, goerr.HasTag(err, dashboard.ErrTagUnknownValue))
	err = c.SetFilters(ctx, map[incident.Dimension]string{incident.AreaType: "urban"})
	gt.True(t, goerr.HasTag(err, filter.ErrTagInvalidInput))
}

func TestArrestRateDisabled(t *testing.T) {
	cfg := dashboard.DefaultConfig()
	cfg.ArrestRate = false
	c := dashboard.New(dashboard.User, cfg)
	gt.NoError(t, c.Attach(context.Background(), scenario()))

	gt.A(t, c.Slots()).Length(5)
	_, ok := c.Snapshot().Chart(dashboard.SlotArrestRate)
	gt.False(t, ok)
}

func TestEventsBeforeLoad(t *testing.T) {
	ctx := context.Background()
	admin := dashboard.New(dashboard.Admin, dashboard.DefaultConfig())
	user := dashboard.New(dashboard.User, dashboard.DefaultConfig())

	_, err := admin.Toggle(ctx, incident.State, "CA")
	gt.True(t, goerr.HasTag(err, dashboard.ErrTagNotReady))
	gt.True(t, goerr.HasTag(user.Choose(incident.State, "CA"), dashboard.ErrTagNotReady))
	gt.True(t, goerr.HasTag(user.ApplyFilters(ctx), dashboard.ErrTagNotReady))
	gt.True(t, goerr.HasTag(admin.Recompute(ctx), dashboard.ErrTagNotReady))

	opts, err := admin.Options(incident.State)
	gt.NoError(t, err)
	gt.A(t, opts).Length(0)

	snap := admin.Snapshot()
	gt.Equal(t, snap.State, dashboard.Unloaded)
	gt.A(t, snap.Charts).Length(0)
	gt.Equal(t, snap.Summary, aggregate.Summary{})
}

func TestWrongViewEvents(t *testing.T) {
	ctx := context.Background()
	admin := ready(t, dashboard.Admin, scenario())
	user := ready(t, dashboard.User, scenario())

	_, err := user.Toggle(ctx, incident.State, "CA")
	gt.True(t, goerr.HasTag(err, filter.ErrTagInvalidInput))
	gt.True(t, goerr.HasTag(admin.Choose(incident.State, "CA"), filter.ErrTagInvalidInput))
	gt.True(t, goerr.HasTag(admin.ApplyFilters(ctx), filter.ErrTagInvalidInput))

	_, err = admin.Toggle(ctx, incident.State, "ZZ")
	gt.True(t, goerr.HasTag(err, dashboard.ErrTagUnknownValue))
	_, err = admin.Toggle(ctx, incident.State, "")
	gt.True(t, goerr.HasTag(err, filter.ErrTagInvalidInput))
}

func TestLoadOnce(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{records: scenario()}
	c := dashboard.New(dashboard.Admin, dashboard.DefaultConfig())

	gt.NoError(t, c.Load(ctx, src, "data.json"))
	gt.Equal(t, c.State(), dashboard.Ready)

	err := c.Load(ctx, src, "data.json")
	gt.True(t, errors.Is(err, dashboard.ErrAlreadyLoaded))
	gt.Equal(t, src.calls, 1)
	gt.True(t, errors.Is(c.Attach(ctx, scenario()), dashboard.ErrAlreadyLoaded))
}

func TestLoadFailureStaysUnloaded(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{err: goerr.New("connection refused")}
	c := dashboard.New(dashboard.User, dashboard.DefaultConfig())

	gt.Error(t, c.Load(ctx, src, "http://example.invalid/data.json"))
	gt.Equal(t, c.State(), dashboard.Unloaded)
	gt.A(t, c.Snapshot().Charts).Length(0)
	gt.Equal(t, c.Snapshot().Count, 0)

	// no retry
	gt.True(t, errors.Is(c.Load(ctx, src, "data.json"), dashboard.ErrAlreadyLoaded))
	gt.Equal(t, src.calls, 1)
}

func TestLoadFromLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	gt.NoError(t, os.WriteFile(path, []byte(`[{"year":2020,"state":"CA","crime_type":"theft","month":1}]`), 0o644))

	c := dashboard.New(dashboard.Admin, dashboard.DefaultConfig())
	gt.NoError(t, c.Load(context.Background(), incident.NewLoader(), path))
	gt.Equal(t, c.Snapshot().Count, 1)
}

func TestEmptyDataset(t *testing.T) {
	for _, view := range []dashboard.View{dashboard.Admin, dashboard.User} {
		c := ready(t, view, []incident.Record{})
		snap := c.Snapshot()
		gt.Equal(t, snap.Summary, aggregate.Summary{})
		gt.A(t, snap.Charts).Length(len(c.Slots()))
		for _, name := range c.Slots() {
			inst, ok := c.Chart(name)
			gt.True(t, ok)
			gt.True(t, len(inst.Bytes()) > 0)
		}
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for _, view := range []dashboard.View{dashboard.Admin, dashboard.User} {
		c := ready(t, view, wider())
		before := c.Snapshot()
		old, _ := c.Chart(c.Slots()[0])

		gt.NoError(t, c.Recompute(ctx))
		after := c.Snapshot()
		gt.Equal(t, after.Summary, before.Summary)
		gt.Equal(t, after.Charts, before.Charts)

		// redraw replaces the instance rather than updating it
		gt.True(t, old.Destroyed())
		cur, _ := c.Chart(c.Slots()[0])
		gt.False(t, cur.Destroyed())
	}
}

func TestMonthPolicyError(t *testing.T) {
	cfg := dashboard.DefaultConfig()
	cfg.MonthPolicy = aggregate.RejectMonths
	c := dashboard.New(dashboard.Admin, cfg)

	records := append(scenario(), incident.Record{Month: incident.NewInt(13)})
	err := c.Attach(context.Background(), records)
	gt.True(t, goerr.HasTag(err, aggregate.ErrTagMonthRange))
}

func rejectMonths(t *testing.T, view dashboard.View) *dashboard.Controller {
	t.Helper()
	cfg := dashboard.DefaultConfig()
	cfg.MonthPolicy = aggregate.RejectMonths
	c := dashboard.New(view, cfg)

	records := append(scenario(), incident.Record{
		Year: incident.NewInt(2021), CrimeType: "theft", State: "NY", Month: incident.NewInt(13),
	})
	gt.Error(t, c.Attach(context.Background(), records))
	gt.Equal(t, c.State(), dashboard.Ready)
	return c
}

func TestAdminFailedCycleRestoresSelection(t *testing.T) {
	ctx := context.Background()
	c := rejectMonths(t, dashboard.Admin)

	on, err := c.Toggle(ctx, incident.State, "NY")
	gt.True(t, goerr.HasTag(err, aggregate.ErrTagMonthRange))
	gt.False(t, on)
	gt.A(t, c.Snapshot().Filters[incident.State]).Length(0)

	// NY was undone, so only CA records are left
	on, err = c.Toggle(ctx, incident.State, "CA")
	gt.NoError(t, err)
	gt.True(t, on)
	snap := c.Snapshot()
	gt.Equal(t, snap.Count, 2)
	gt.Equal(t, snap.Filters[incident.State], []string{"CA"})

	month, ok := c.Chart(dashboard.SlotMonth)
	gt.True(t, ok)

	on, err = c.Toggle(ctx, incident.State, "NY")
	gt.Error(t, err)
	gt.False(t, on)
	gt.Equal(t, c.Snapshot().Filters[incident.State], []string{"CA"})
	gt.Equal(t, c.Snapshot().Count, 2)

	live, ok := c.Chart(dashboard.SlotMonth)
	gt.True(t, ok)
	gt.True(t, live == month)
	gt.False(t, month.Destroyed())
}

func TestUserFailedCycleRestoresChoices(t *testing.T) {
	ctx := context.Background()
	c := rejectMonths(t, dashboard.User)

	gt.Error(t, c.SetFilters(ctx, map[incident.Dimension]string{incident.State: "NY"}))
	gt.NoError(t, c.SetFilters(ctx, map[incident.Dimension]string{incident.State: "CA", incident.Year: "2020"}))
	gt.Equal(t, c.Snapshot().Count, 2)

	err := c.SetFilters(ctx, map[incident.Dimension]string{incident.State: "NY"})
	gt.True(t, goerr.HasTag(err, aggregate.ErrTagMonthRange))
	snap := c.Snapshot()
	gt.Equal(t, snap.Count, 2)
	gt.Equal(t, snap.Filters, map[incident.Dimension][]string{
		incident.Year:  {"2020"},
		incident.State: {"CA"},
	})

	// the restored choices still apply cleanly
	gt.NoError(t, c.ApplyFilters(ctx))
	gt.Equal(t, c.Snapshot().Count, 2)
}

func TestNonNumericYearIsSelectable(t *testing.T) {
	ctx := context.Background()
	records, err := incident.Decode([]byte(`[
		{"year":"unknown","crime_type":"theft","state":"CA","month":1},
		{"year":2020,"crime_type":"assault","state":"NY","month":2},
		{"year":2020.5,"crime_type":"fraud","state":"TX","month":3}
	]`))
	gt.NoError(t, err)

	admin := ready(t, dashboard.Admin, records)
	years, err := admin.Options(incident.Year)
	gt.NoError(t, err)
	gt.Equal(t, years, []string{"unknown", "2020", "2020.5"})
	for _, y := range years {
		on, err := admin.Toggle(ctx, incident.Year, y)
		gt.NoError(t, err)
		gt.True(t, on)
		gt.Equal(t, admin.Snapshot().Count, 1)
		_, err = admin.Toggle(ctx, incident.Year, y)
		gt.NoError(t, err)
	}

	user := ready(t, dashboard.User, records)
	years, err = user.Options(incident.Year)
	gt.NoError(t, err)
	for _, y := range years {
		gt.NoError(t, user.SetFilters(ctx, map[incident.Dimension]string{incident.Year: y}))
		gt.Equal(t, user.Snapshot().Count, 1)
		gt.Equal(t, user.Snapshot().Filters[incident.Year], []string{y})
	}

	_, err = admin.Toggle(ctx, incident.Year, "someday")
	gt.True(t, goerr.HasTag(err, dashboard.ErrTagUnknownValue))
}

func TestMonthDropsReported(t *testing.T) {
	records := append(scenario(), incident.Record{Month: incident.NewInt(0)})
	c := ready(t, dashboard.Admin, records)
	gt.Equal(t, c.Snapshot().MonthsDropped, 1)
	gt.Equal(t, c.Snapshot().Count, 3)
}
