// Package aggregate turns filtered records into grouped counts, rates and
// summary statistics. Every function is pure and total over any input,
// including an empty slice.
package aggregate

import (
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/zalepa/crimedash/incident"
)

// Count is one group label and its number of records.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Counts is an ordered label->count list. CountBy produces it in first-seen
// order, which is the order charts draw in.
type Counts []Count

// Labels returns the labels in order.
func (c Counts) Labels() []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = e.Label
	}
	return out
}

// Values returns the counts in order as floats for charting.
func (c Counts) Values() []float64 {
	out := make([]float64, len(c))
	for i, e := range c {
		out[i] = float64(e.Count)
	}
	return out
}

// Total sums all counts.
func (c Counts) Total() int {
	n := 0
	for _, e := range c {
		n += e.Count
	}
	return n
}

// Get returns the count for label, or 0.
func (c Counts) Get(label string) int {
	for _, e := range c {
		if e.Label == label {
			return e.Count
		}
	}
	return 0
}

// CountBy counts records per distinct label of d.
func CountBy(records []incident.Record, d incident.Dimension) Counts {
	index := make(map[string]int)
	var out Counts
	for _, r := range records {
		l := r.Label(d)
		i, ok := index[l]
		if !ok {
			i = len(out)
			index[l] = i
			out = append(out, Count{Label: l})
		}
		out[i].Count++
	}
	return out
}

// CountWhere counts the records satisfying pred.
func CountWhere(records []incident.Record, pred func(incident.Record) bool) int {
	n := 0
	for _, r := range records {
		if pred(r) {
			n++
		}
	}
	return n
}

// TopN returns counts sorted by descending count, ties kept in their
// original order, truncated to n entries.
func TopN(counts Counts, n int) Counts {
	sorted := slices.Clone(counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if n < 0 {
		n = 0
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// SortedKeys returns the labels in lexicographic order.
func SortedKeys(counts Counts) []string {
	keys := counts.Labels()
	sort.Strings(keys)
	return keys
}

// SortedNumericKeys returns labels that parse as integers in numeric order,
// followed by all other labels in lexicographic order.
func SortedNumericKeys(counts Counts) []string {
	keys := counts.Labels()
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

// KeyOrder selects how year-like axes are ordered.
type KeyOrder string

const (
	Lexical KeyOrder = "lexical"
	Numeric KeyOrder = "numeric"
)

// Keys orders labels according to o. Unknown orders fall back to numeric.
func (o KeyOrder) Keys(counts Counts) []string {
	if o == Lexical {
		return SortedKeys(counts)
	}
	return SortedNumericKeys(counts)
}

// RateEntry is the percentage of a group satisfying a predicate.
type RateEntry struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// Rate computes, per distinct label of d (first-seen order), the percentage
// of that group's records satisfying pred, rounded to one decimal place.
func Rate(records []incident.Record, d incident.Dimension, pred func(incident.Record) bool) []RateEntry {
	groups := CountBy(records, d)
	hits := make(map[string]int, len(groups))
	for _, r := range records {
		if pred(r) {
			hits[r.Label(d)]++
		}
	}

	out := make([]RateEntry, len(groups))
	for i, g := range groups {
		out[i] = RateEntry{Label: g.Label, Percent: percent1(hits[g.Label], g.Count)}
	}
	return out
}

func percent1(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

// Grid holds counts of records for every (row, column) label pair.
type Grid struct {
	Rows  []string `json:"rows"`
	Cols  []string `json:"cols"`
	cells map[[2]string]int
}

// GroupBy2 counts records by two dimensions. Rows and columns are discovered
// from records in first-seen order, so labels absent from the input do not
// appear.
func GroupBy2(records []incident.Record, rowDim, colDim incident.Dimension) Grid {
	g := Grid{
		Rows:  incident.Distinct(records, rowDim),
		Cols:  incident.Distinct(records, colDim),
		cells: make(map[[2]string]int),
	}
	for _, r := range records {
		g.cells[[2]string{r.Label(rowDim), r.Label(colDim)}]++
	}
	return g
}

// Cell returns the count of records labeled row and col.
func (g Grid) Cell(row, col string) int {
	return g.cells[[2]string{row, col}]
}

// Column returns the counts of col across rows, ordered like rows.
func (g Grid) Column(col string, rows []string) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = float64(g.Cell(row, col))
	}
	return out
}
