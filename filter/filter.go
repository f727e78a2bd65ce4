// Package filter holds the active selection of a dashboard view and decides
// which records it admits.
package filter

import (
	"slices"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/zalepa/crimedash/incident"
)

var ErrTagInvalidInput = goerr.NewTag("invalid_input")

// Matcher decides whether a record passes the active selection.
type Matcher interface {
	Match(r incident.Record) bool
}

// Apply returns the records admitted by m. The input slice is not modified.
func Apply(records []incident.Record, m Matcher) []incident.Record {
	out := make([]incident.Record, 0, len(records))
	for _, r := range records {
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Normalize converts raw user input for dimension d into the label form used
// by incident.Record.Label. Integer years are re-formatted so that "2020",
// " 2020" and "02020" all select the same records. Any other year text is
// kept as is, since the dataset may label years with it.
func Normalize(d incident.Dimension, raw string) (string, error) {
	if !slices.Contains(incident.FilterDimensions, d) {
		return "", goerr.New("unsupported filter dimension", goerr.V("dimension", d), goerr.T(ErrTagInvalidInput))
	}
	v := strings.TrimSpace(raw)
	if d != incident.Year {
		return v, nil
	}
	if year, err := strconv.Atoi(v); err == nil {
		return incident.YearLabel(year), nil
	}
	return v, nil
}

// MultiSelect is the accumulating selection of the admin view: each
// dimension holds a set, and an empty set places no constraint.
type MultiSelect struct {
	sets map[incident.Dimension]map[string]bool
	// order keeps selection order per dimension for display.
	order map[incident.Dimension][]string
}

func NewMultiSelect() *MultiSelect {
	return &MultiSelect{
		sets:  make(map[incident.Dimension]map[string]bool),
		order: make(map[incident.Dimension][]string),
	}
}

// Toggle flips membership of value in d's set and reports whether value is
// selected afterwards.
func (m *MultiSelect) Toggle(d incident.Dimension, value string) bool {
	set := m.sets[d]
	if set == nil {
		set = make(map[string]bool)
		m.sets[d] = set
	}
	if set[value] {
		delete(set, value)
		m.order[d] = slices.DeleteFunc(m.order[d], func(s string) bool { return s == value })
		return false
	}
	set[value] = true
	m.order[d] = append(m.order[d], value)
	return true
}

// Has reports whether value is selected for d.
func (m *MultiSelect) Has(d incident.Dimension, value string) bool {
	return m.sets[d][value]
}

// Selected returns the selected values of d in selection order.
func (m *MultiSelect) Selected(d incident.Dimension) []string {
	return slices.Clone(m.order[d])
}

// Count returns the number of selected values for d.
func (m *MultiSelect) Count(d incident.Dimension) int {
	return len(m.sets[d])
}

// Match is true when every filter dimension is either unconstrained or
// contains the record's value.
func (m *MultiSelect) Match(r incident.Record) bool {
	for _, d := range incident.FilterDimensions {
		set := m.sets[d]
		if len(set) > 0 && !set[r.Label(d)] {
			return false
		}
	}
	return true
}

// SingleChoice is the dropdown selection of the user view: each dimension
// holds at most one value, and the empty string places no constraint.
type SingleChoice struct {
	choices map[incident.Dimension]string
}

func NewSingleChoice() *SingleChoice {
	return &SingleChoice{choices: make(map[incident.Dimension]string)}
}

// Choose sets the value for d. An empty value clears the choice.
func (s *SingleChoice) Choose(d incident.Dimension, value string) {
	if value == "" {
		delete(s.choices, d)
		return
	}
	s.choices[d] = value
}

// Choice returns the chosen value for d, or "".
func (s *SingleChoice) Choice(d incident.Dimension) string {
	return s.choices[d]
}

func (s *SingleChoice) Match(r incident.Record) bool {
	for _, d := range incident.FilterDimensions {
		if v, ok := s.choices[d]; ok && r.Label(d) != v {
			return false
		}
	}
	return true
}
