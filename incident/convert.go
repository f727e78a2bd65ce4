package incident

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// integerColumns are converted with integer truncation of a float parse, so
// "2020.0" becomes 2020.
var integerColumns = map[string]bool{
	"year":  true,
	"month": true,
	"cases": true,
}

// numericColumns become JSON numbers when they parse and stay strings
// otherwise, so the loader can exclude them later.
var numericColumns = map[string]bool{
	"response_time_minutes": true,
}

// ConvertCSV reads a CSV file with a header row and writes the dataset as a
// JSON array of flat objects. It returns the number of rows written.
func ConvertCSV(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return 0, goerr.New("csv input is empty")
	}
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	rows := []map[string]any{}
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to read csv row", goerr.V("line", line))
		}

		row := make(map[string]any, len(header))
		for i, name := range header {
			if i >= len(fields) {
				break
			}
			row[name] = convertCell(name, fields[i])
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rows); err != nil {
		return 0, goerr.Wrap(err, "failed to write json")
	}
	return len(rows), nil
}

func convertCell(column, value string) any {
	if value == "" {
		return value
	}
	switch {
	case integerColumns[column]:
		if v := ParseNumber(value); !math.IsNaN(v) {
			return int64(v)
		}
	case numericColumns[column]:
		if v := ParseNumber(value); !math.IsNaN(v) {
			return v
		}
	}
	return value
}
