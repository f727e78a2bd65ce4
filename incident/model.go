package incident

import "strconv"

// MissingLabel is the grouping label used for absent or unparseable values.
// It is a valid group of its own and is never filtered out.
const MissingLabel = "(missing)"

// Dimension names a record field used for grouping or filtering.
type Dimension string

const (
	Year          Dimension = "year"
	CrimeType     Dimension = "crime_type"
	State         Dimension = "state"
	CrimeCategory Dimension = "crime_category"
	AreaType      Dimension = "area_type"
	CaseStatus    Dimension = "case_status"
	ArrestMade    Dimension = "arrest_made"
	Severity      Dimension = "crime_severity_level"
	Month         Dimension = "month"
)

// FilterDimensions are the dimensions both dashboard views filter on.
var FilterDimensions = []Dimension{Year, CrimeType, State}

var knownDimensions = map[Dimension]bool{
	Year: true, CrimeType: true, State: true, CrimeCategory: true, AreaType: true,
	CaseStatus: true, ArrestMade: true, Severity: true, Month: true,
}

// Valid reports whether d is a known record field.
func (d Dimension) Valid() bool {
	return knownDimensions[d]
}

// Record is one incident. Records are never modified after loading.
type Record struct {
	Year          Int    `json:"year"`
	CrimeType     string `json:"crime_type"`
	State         string `json:"state"`
	CrimeCategory string `json:"crime_category"`
	AreaType      string `json:"area_type"`
	Severity      string `json:"crime_severity_level"`
	CaseStatus    string `json:"case_status"`
	ResponseTime  Float  `json:"response_time_minutes"`
	ArrestMade    string `json:"arrest_made"`
	Month         Int    `json:"month"`
}

// IsHighSeverity reports whether the severity level is "high".
func (r Record) IsHighSeverity() bool { return r.Severity == "high" }

// IsOpen reports whether the case is still open.
func (r Record) IsOpen() bool { return r.CaseStatus == "open" }

// IsClosed reports whether the case status is "closed".
func (r Record) IsClosed() bool { return r.CaseStatus == "closed" }

// HasArrest reports whether an arrest was made.
func (r Record) HasArrest() bool { return r.ArrestMade == "yes" }

// Label returns the grouping label of the record for d.
func (r Record) Label(d Dimension) string {
	switch d {
	case Year:
		return r.Year.Label()
	case Month:
		return r.Month.Label()
	case CrimeType:
		return textLabel(r.CrimeType)
	case State:
		return textLabel(r.State)
	case CrimeCategory:
		return textLabel(r.CrimeCategory)
	case AreaType:
		return textLabel(r.AreaType)
	case CaseStatus:
		return textLabel(r.CaseStatus)
	case ArrestMade:
		return textLabel(r.ArrestMade)
	case Severity:
		return textLabel(r.Severity)
	}
	return MissingLabel
}

func textLabel(s string) string {
	if s == "" {
		return MissingLabel
	}
	return s
}

// Distinct returns the distinct labels of d in first-seen order.
func Distinct(records []Record, d Dimension) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		l := r.Label(d)
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// YearLabel formats a year the way Record.Label does.
func YearLabel(y int) string {
	return strconv.Itoa(y)
}
