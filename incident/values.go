package incident

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Int is an integer field that may be missing or hold non-numeric text.
// Decoding never fails: anything that is not an integral number or numeric
// string leaves Valid false and keeps the text in Raw.
type Int struct {
	Value int
	Valid bool
	Raw   string
}

// NewInt returns a valid Int.
func NewInt(v int) Int { return Int{Value: v, Valid: true} }

// Label returns the base-10 value, the raw text, or MissingLabel.
func (n Int) Label() string {
	if n.Valid {
		return strconv.Itoa(n.Value)
	}
	if n.Raw != "" {
		return n.Raw
	}
	return MissingLabel
}

func (n *Int) UnmarshalJSON(data []byte) error {
	*n = Int{}
	v, raw, ok := decodeNumber(data)
	n.Raw = raw
	if !ok {
		return nil
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		if raw == "" {
			// a non-integral number token still groups under its own text
			n.Raw = string(bytes.TrimSpace(data))
		}
		return nil
	}
	n.Value = int(v)
	n.Valid = true
	n.Raw = ""
	return nil
}

func (n Int) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return []byte(strconv.Itoa(n.Value)), nil
	}
	if n.Raw != "" {
		return json.Marshal(n.Raw)
	}
	return []byte("null"), nil
}

// Float is a numeric field that may be missing or hold non-numeric text.
type Float struct {
	Value float64
	Valid bool
	Raw   string
}

// NewFloat returns a valid Float.
func NewFloat(v float64) Float { return Float{Value: v, Valid: true} }

func (f *Float) UnmarshalJSON(data []byte) error {
	*f = Float{}
	v, raw, ok := decodeNumber(data)
	f.Raw = raw
	if !ok {
		return nil
	}
	f.Value = v
	f.Valid = true
	f.Raw = ""
	return nil
}

func (f Float) MarshalJSON() ([]byte, error) {
	if f.Valid {
		return json.Marshal(f.Value)
	}
	if f.Raw != "" {
		return json.Marshal(f.Raw)
	}
	return []byte("null"), nil
}

// decodeNumber accepts a JSON number or a string holding one. It returns the
// string text (if the value was a string) so callers can keep it as a label.
func decodeNumber(data []byte) (float64, string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, "", false
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, "", false
		}
		v := ParseNumber(s)
		if math.IsNaN(v) {
			return 0, s, false
		}
		return v, s, true
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, "", false
	}
	return v, "", true
}

// ParseNumber parses a numeric cell, tolerating surrounding space, thousands
// separators and a trailing percent sign. It returns NaN for blanks, dashes,
// non-numbers and infinities.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "- -" || s == "--" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
