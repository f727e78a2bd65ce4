// Package chart draws dashboard charts and owns the live chart instance of
// each named slot.
package chart

import (
	"bytes"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// Kind is the chart type.
type Kind string

const (
	Bar       Kind = "bar"
	HBar      Kind = "hbar"
	Line      Kind = "line"
	Pie       Kind = "pie"
	Stacked   Kind = "stacked"
	Clustered Kind = "clustered"
)

// Series is one named data series aligned with the chart labels.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Spec fully describes a chart. Single-series kinds take colors per label
// index; stacked and clustered charts take colors per series index.
type Spec struct {
	Title       string   `json:"title"`
	Kind        Kind     `json:"kind"`
	Labels      []string `json:"labels"`
	Series      []Series `json:"series"`
	Palette     Palette  `json:"-"`
	ColorOffset int      `json:"-"`
	// ValueMax fixes the upper bound of the value axis when positive.
	ValueMax float64 `json:"-"`
}

// Validate checks that every series is aligned with the labels. A chart
// without labels may omit its series.
func (s Spec) Validate() error {
	switch s.Kind {
	case Bar, HBar, Line, Pie, Stacked, Clustered:
	default:
		return goerr.New("unknown chart kind", goerr.V("kind", s.Kind))
	}
	if len(s.Series) == 0 && len(s.Labels) > 0 {
		return goerr.New("chart has no series", goerr.V("title", s.Title))
	}
	for _, sr := range s.Series {
		if len(sr.Values) != len(s.Labels) {
			return goerr.New("series length does not match labels",
				goerr.V("title", s.Title),
				goerr.V("series", sr.Name),
				goerr.V("values", len(sr.Values)),
				goerr.V("labels", len(s.Labels)))
		}
	}
	return nil
}

// Instance is a drawn chart bound to a slot. It is replaced, never updated.
type Instance struct {
	Slot   string
	Spec   Spec
	Format Format

	mu        sync.Mutex
	body      []byte
	destroyed bool
}

// Bytes returns the rendered chart, or nil once the instance is destroyed.
func (i *Instance) Bytes() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return nil
	}
	return i.body
}

// Destroyed reports whether the instance has been torn down.
func (i *Instance) Destroyed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed
}

func (i *Instance) destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.destroyed = true
	i.body = nil
}

// Slots maps slot names to their live chart instance. Each slot owns at most
// one instance; rendering into an occupied slot destroys the old one first.
type Slots struct {
	format Format

	mu    sync.Mutex
	live  map[string]*Instance
	order []string
}

// NewSlots returns an empty registry that renders in format.
func NewSlots(format Format) *Slots {
	return &Slots{format: format, live: make(map[string]*Instance)}
}

// Render tears down the instance occupying slot, then draws spec into a new
// instance bound to slot.
func (s *Slots) Render(slot string, spec Spec) (*Instance, error) {
	s.Destroy(slot)

	inst, err := s.Prepare(slot, spec)
	if err != nil {
		return nil, err
	}
	s.Commit([]*Instance{inst}, nil)
	return inst, nil
}

// Prepare draws spec into an instance for slot without binding it. The slot
// keeps its current instance until Commit.
func (s *Slots) Prepare(slot string, spec Spec) (*Instance, error) {
	var buf bytes.Buffer
	if err := Draw(spec, s.format, &buf); err != nil {
		return nil, goerr.Wrap(err, "failed to draw chart", goerr.V("slot", slot))
	}
	return &Instance{Slot: slot, Spec: spec, Format: s.format, body: buf.Bytes()}, nil
}

// Commit binds prepared instances to their slots and empties the drop slots
// in one step. Every replaced instance is destroyed.
func (s *Slots) Commit(insts []*Instance, drop []string) {
	var old []*Instance

	s.mu.Lock()
	for _, inst := range insts {
		if prev, ok := s.live[inst.Slot]; ok && prev != inst {
			old = append(old, prev)
		}
		if !slices.Contains(s.order, inst.Slot) {
			s.order = append(s.order, inst.Slot)
		}
		s.live[inst.Slot] = inst
	}
	for _, slot := range drop {
		if prev, ok := s.live[slot]; ok {
			old = append(old, prev)
			delete(s.live, slot)
		}
	}
	s.mu.Unlock()

	for _, inst := range old {
		inst.destroy()
	}
}

// Get returns the live instance of slot.
func (s *Slots) Get(slot string) (*Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.live[slot]
	return inst, ok
}

// Destroy tears down the instance of slot, if any.
func (s *Slots) Destroy(slot string) {
	s.mu.Lock()
	inst, ok := s.live[slot]
	delete(s.live, slot)
	s.mu.Unlock()
	if ok {
		inst.destroy()
	}
}

// Reset tears down every live instance.
func (s *Slots) Reset() {
	s.mu.Lock()
	live := s.live
	s.live = make(map[string]*Instance)
	s.order = nil
	s.mu.Unlock()
	for _, inst := range live {
		inst.destroy()
	}
}

// Names returns the occupied slot names in first-render order.
func (s *Slots) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, name := range s.order {
		if _, ok := s.live[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
