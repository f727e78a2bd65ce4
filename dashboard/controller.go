// Package dashboard orchestrates the load, filter, aggregate and render cycle
// of the admin and user views.
package dashboard

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/zalepa/crimedash/aggregate"
	"github.com/zalepa/crimedash/chart"
	"github.com/zalepa/crimedash/filter"
	"github.com/zalepa/crimedash/incident"
)

// View is one of the two dashboards.
type View string

const (
	Admin View = "admin"
	User  View = "user"
)

func (v View) Valid() bool {
	return v == Admin || v == User
}

// State is the controller lifecycle. The only transition is Unloaded to
// Ready, on the first successful load.
type State string

const (
	Unloaded State = "unloaded"
	Ready    State = "ready"
)

var (
	ErrTagNotReady     = goerr.NewTag("not_ready")
	ErrTagUnknownValue = goerr.NewTag("unknown_value")

	ErrAlreadyLoaded = goerr.New("dataset already loaded")
)

// Source reads the dataset.
type Source interface {
	Load(ctx context.Context, source string) ([]incident.Record, error)
}

// Snapshot is the result of the last completed cycle.
type Snapshot struct {
	View    View              `json:"view"`
	State   State             `json:"state"`
	Dataset int               `json:"datasetSize"`
	Count   int               `json:"count"`
	Summary aggregate.Summary `json:"summary"`
	Charts  []SlotData        `json:"charts"`
	Hidden  []string          `json:"hidden"`
	// Filters holds the active selection of each constrained dimension.
	Filters       map[incident.Dimension][]string `json:"filters"`
	MonthsDropped int                             `json:"monthsDropped"`
	Months        [12]int                         `json:"months"`
}

// Chart returns the data drawn into slot.
func (s Snapshot) Chart(slot string) (SlotData, bool) {
	for _, c := range s.Charts {
		if c.Slot == slot {
			return c, true
		}
	}
	return SlotData{}, false
}

// Controller drives one view. Every exported method is serialized by a
// mutex, so a cycle always completes before the next event is handled.
type Controller struct {
	view View
	cfg  Config

	mu        sync.Mutex
	state     State
	attempted bool
	records   []incident.Record
	options   map[incident.Dimension][]string
	observed  map[incident.Dimension]map[string]bool
	multi     *filter.MultiSelect
	single    *filter.SingleChoice
	slots     *chart.Slots
	snap      Snapshot
}

// New returns an Unloaded controller for view.
func New(view View, cfg Config) *Controller {
	c := &Controller{
		view:   view,
		cfg:    cfg,
		state:  Unloaded,
		multi:  filter.NewMultiSelect(),
		single: filter.NewSingleChoice(),
		slots:  chart.NewSlots(chart.SVG),
	}
	c.snap = c.emptySnapshot()
	return c
}

func (c *Controller) View() View { return c.view }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Slots lists the chart slots this controller renders.
func (c *Controller) Slots() []string {
	return SlotNames(c.view, c.cfg)
}

// Load reads the dataset from source once. A failure is logged and leaves
// the controller Unloaded with an empty snapshot. Any later call returns
// ErrAlreadyLoaded without reading.
func (c *Controller) Load(ctx context.Context, src Source, source string) error {
	c.mu.Lock()
	if c.attempted {
		c.mu.Unlock()
		return ErrAlreadyLoaded
	}
	c.attempted = true
	c.mu.Unlock()

	records, err := src.Load(ctx, source)
	if err != nil {
		ctxlog.From(ctx).Error("dataset load failed", "view", c.view, "source", source, "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready(ctx, records)
}

// Attach hands an already-loaded dataset to the controller. It counts as
// the controller's one load.
func (c *Controller) Attach(ctx context.Context, records []incident.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempted {
		return ErrAlreadyLoaded
	}
	c.attempted = true
	return c.ready(ctx, records)
}

func (c *Controller) ready(ctx context.Context, records []incident.Record) error {
	c.records = records
	c.options = make(map[incident.Dimension][]string, len(incident.FilterDimensions))
	c.observed = make(map[incident.Dimension]map[string]bool, len(incident.FilterDimensions))
	for _, d := range incident.FilterDimensions {
		values := incident.Distinct(records, d)
		set := make(map[string]bool, len(values))
		for _, v := range values {
			set[v] = true
		}
		c.observed[d] = set
		c.options[d] = c.sortOptions(d, values)
	}
	c.state = Ready
	return c.cycle(ctx)
}

// sortOptions orders the user view's dropdowns. The admin view keeps
// first-seen order.
func (c *Controller) sortOptions(d incident.Dimension, values []string) []string {
	if c.view == Admin {
		return values
	}
	out := slices.Clone(values)
	if d == incident.Year {
		counts := make(aggregate.Counts, len(out))
		for i, v := range out {
			counts[i] = aggregate.Count{Label: v}
		}
		return c.cfg.YearOrder.Keys(counts)
	}
	sort.Strings(out)
	return out
}

// Options returns the distinct observed labels of d. It is empty before the
// dataset is loaded.
func (c *Controller) Options(d incident.Dimension) ([]string, error) {
	if !slices.Contains(incident.FilterDimensions, d) {
		return nil, goerr.New("unsupported filter dimension", goerr.V("dimension", d), goerr.T(filter.ErrTagInvalidInput))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.options[d]), nil
}

// Toggle flips value in the admin selection of d and runs a full cycle. When
// the cycle fails the flip is undone, and the returned state is the
// unchanged one.
func (c *Controller) Toggle(ctx context.Context, d incident.Dimension, raw string) (bool, error) {
	if c.view != Admin {
		return false, goerr.New("toggle is only available on the admin view", goerr.V("view", c.view), goerr.T(filter.ErrTagInvalidInput))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	value, err := c.check(d, raw)
	if err != nil {
		return false, err
	}
	if value == "" {
		return false, goerr.New("toggle needs a value", goerr.V("dimension", d), goerr.T(filter.ErrTagInvalidInput))
	}
	on := c.multi.Toggle(d, value)
	if err := c.cycle(ctx); err != nil {
		c.multi.Toggle(d, value)
		return !on, err
	}
	return on, nil
}

// Choose records the user view's choice for d without recomputing. An empty
// value clears the choice.
func (c *Controller) Choose(d incident.Dimension, raw string) error {
	if c.view != User {
		return goerr.New("choose is only available on the user view", goerr.V("view", c.view), goerr.T(filter.ErrTagInvalidInput))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	value, err := c.check(d, raw)
	if err != nil {
		return err
	}
	c.single.Choose(d, value)
	return nil
}

// ApplyFilters runs a full cycle with the current user choices.
func (c *Controller) ApplyFilters(ctx context.Context) error {
	if c.view != User {
		return goerr.New("apply is only available on the user view", goerr.V("view", c.view), goerr.T(filter.ErrTagInvalidInput))
	}
	return c.Recompute(ctx)
}

// SetFilters replaces all user choices and applies them as one event.
// Dimensions absent from choices are cleared. Nothing changes when any value
// is rejected or the cycle fails.
func (c *Controller) SetFilters(ctx context.Context, choices map[incident.Dimension]string) error {
	if c.view != User {
		return goerr.New("filters are only set on the user view", goerr.V("view", c.view), goerr.T(filter.ErrTagInvalidInput))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for d := range choices {
		if !slices.Contains(incident.FilterDimensions, d) {
			return goerr.New("unsupported filter dimension", goerr.V("dimension", d), goerr.T(filter.ErrTagInvalidInput))
		}
	}
	normalized := make(map[incident.Dimension]string, len(incident.FilterDimensions))
	for _, d := range incident.FilterDimensions {
		value, err := c.check(d, choices[d])
		if err != nil {
			return err
		}
		normalized[d] = value
	}
	prev := make(map[incident.Dimension]string, len(normalized))
	for d, v := range normalized {
		prev[d] = c.single.Choice(d)
		c.single.Choose(d, v)
	}
	if err := c.cycle(ctx); err != nil {
		for d, v := range prev {
			c.single.Choose(d, v)
		}
		return err
	}
	return nil
}

// Recompute runs a full cycle with the current selection.
func (c *Controller) Recompute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Ready {
		return goerr.New("dataset is not loaded", goerr.V("view", c.view), goerr.T(ErrTagNotReady))
	}
	return c.cycle(ctx)
}

// Snapshot returns the outcome of the last cycle.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Chart returns the live chart instance of slot.
func (c *Controller) Chart(slot string) (*chart.Instance, bool) {
	return c.slots.Get(slot)
}

// check normalizes raw and verifies that it was observed in the dataset.
func (c *Controller) check(d incident.Dimension, raw string) (string, error) {
	if c.state != Ready {
		return "", goerr.New("dataset is not loaded", goerr.V("view", c.view), goerr.T(ErrTagNotReady))
	}
	value, err := filter.Normalize(d, raw)
	if err != nil {
		return "", err
	}
	if value != "" && !c.observed[d][value] {
		return "", goerr.New("value not present in dataset",
			goerr.V("dimension", d),
			goerr.V("value", raw),
			goerr.T(ErrTagUnknownValue))
	}
	return value, nil
}

func (c *Controller) matcher() filter.Matcher {
	if c.view == Admin {
		return c.multi
	}
	return c.single
}

// cycle filters, aggregates, redraws every slot and replaces the snapshot.
// Every chart is drawn before any slot is touched, so a failure leaves the
// slots and the snapshot of the previous cycle in place.
func (c *Controller) cycle(ctx context.Context) error {
	records := filter.Apply(c.records, c.matcher())

	build := buildUser
	if c.view == Admin {
		build = buildAdmin
	}
	p, err := build(records, c.cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to aggregate", goerr.V("view", c.view))
	}

	hidden := c.hidden()
	snap := Snapshot{
		View:          c.view,
		State:         c.state,
		Dataset:       len(c.records),
		Count:         len(records),
		Summary:       aggregate.Summarize(records),
		Charts:        make([]SlotData, 0, len(p.charts)),
		Hidden:        hidden,
		Filters:       c.activeFilters(),
		MonthsDropped: p.months.Dropped,
		Months:        p.months.Buckets,
	}

	drawn := make([]*chart.Instance, 0, len(p.charts))
	for _, sd := range p.charts {
		if slices.Contains(hidden, sd.Slot) {
			continue
		}
		inst, err := c.slots.Prepare(sd.Slot, sd.Spec)
		if err != nil {
			return goerr.Wrap(err, "failed to render", goerr.V("view", c.view))
		}
		drawn = append(drawn, inst)
		snap.Charts = append(snap.Charts, sd)
	}
	c.slots.Commit(drawn, hidden)

	if p.months.Dropped > 0 {
		ctxlog.From(ctx).Warn("records with month outside 1..12 left out", "view", c.view, "dropped", p.months.Dropped)
	}
	c.snap = snap
	return nil
}

// hidden lists slots not shown for the current selection. A breakdown by
// crime type says nothing once exactly one crime type is selected.
func (c *Controller) hidden() []string {
	if c.view == Admin && c.multi.Count(incident.CrimeType) == 1 {
		return []string{SlotCrimeType}
	}
	return []string{}
}

func (c *Controller) activeFilters() map[incident.Dimension][]string {
	out := make(map[incident.Dimension][]string)
	for _, d := range incident.FilterDimensions {
		if c.view == Admin {
			if sel := c.multi.Selected(d); len(sel) > 0 {
				out[d] = sel
			}
			continue
		}
		if v := c.single.Choice(d); v != "" {
			out[d] = []string{v}
		}
	}
	return out
}

func (c *Controller) emptySnapshot() Snapshot {
	return Snapshot{
		View:    c.view,
		State:   Unloaded,
		Charts:  []SlotData{},
		Hidden:  []string{},
		Filters: map[incident.Dimension][]string{},
	}
}
