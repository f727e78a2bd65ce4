package aggregate

import (
	"math"

	"github.com/m-mizutani/goerr/v2"
	"github.com/zalepa/crimedash/incident"
)

// Summary is the KPI block shown above the charts. Percentages are whole
// numbers. ClosedPct is the complement of OpenPct, so the two always add up
// to 100 when Total > 0.
type Summary struct {
	Total       int `json:"total"`
	HighPct     int `json:"highPct"`
	OpenPct     int `json:"openPct"`
	ClosedPct   int `json:"closedPct"`
	AvgResponse int `json:"avgResponseMinutes"`
}

// Summarize computes the KPI block over records.
func Summarize(records []incident.Record) Summary {
	s := Summary{Total: len(records)}

	var sum float64
	var n int
	for _, r := range records {
		if r.ResponseTime.Valid && !math.IsNaN(r.ResponseTime.Value) && !math.IsInf(r.ResponseTime.Value, 0) {
			sum += r.ResponseTime.Value
			n++
		}
	}
	if n > 0 {
		s.AvgResponse = int(math.Round(sum / float64(n)))
	}

	if s.Total == 0 {
		return s
	}
	s.HighPct = percent0(CountWhere(records, incident.Record.IsHighSeverity), s.Total)
	s.OpenPct = percent0(CountWhere(records, incident.Record.IsOpen), s.Total)
	s.ClosedPct = 100 - s.OpenPct
	return s
}

func percent0(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// MonthPolicy decides what happens to records whose month is outside 1..12.
type MonthPolicy string

const (
	// DropMonths leaves such records out of the histogram and counts them.
	DropMonths MonthPolicy = "drop"
	// ClampMonths moves numeric months below 1 to January and above 12 to
	// December. Missing months are still dropped.
	ClampMonths MonthPolicy = "clamp"
	// RejectMonths fails the computation.
	RejectMonths MonthPolicy = "error"
)

var ErrTagMonthRange = goerr.NewTag("month_out_of_range")

// MonthNames are the histogram bucket labels.
var MonthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Months is a 12-bucket histogram indexed by month-1.
type Months struct {
	Buckets [12]int `json:"buckets"`
	Dropped int     `json:"dropped"`
}

// Values returns the buckets as floats for charting.
func (m Months) Values() []float64 {
	out := make([]float64, len(m.Buckets))
	for i, v := range m.Buckets {
		out[i] = float64(v)
	}
	return out
}

// ByMonth counts records per calendar month.
func ByMonth(records []incident.Record, policy MonthPolicy) (Months, error) {
	var m Months
	for i, r := range records {
		month := r.Month.Value
		if r.Month.Valid && month >= 1 && month <= 12 {
			m.Buckets[month-1]++
			continue
		}

		switch policy {
		case RejectMonths:
			return Months{}, goerr.New("month out of range",
				goerr.V("index", i),
				goerr.V("month", r.Month.Label()),
				goerr.T(ErrTagMonthRange))
		case ClampMonths:
			if !r.Month.Valid {
				m.Dropped++
				continue
			}
			m.Buckets[min(max(month, 1), 12)-1]++
		default:
			m.Dropped++
		}
	}
	return m, nil
}
