package report

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/xuri/excelize/v2"
	"github.com/zalepa/crimedash/aggregate"
	"github.com/zalepa/crimedash/dashboard"
)

// SummarySheet is the first worksheet of an exported workbook.
const SummarySheet = "Summary"

// WriteXLSX writes a workbook with a summary sheet and one sheet per chart.
// Chart sheets are named after their slot and hold the label column followed
// by one column per series.
func WriteXLSX(path string, snap dashboard.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return goerr.Wrap(err, "failed to name summary sheet")
	}
	if err := writeSummarySheet(f, snap); err != nil {
		return err
	}

	for _, sd := range snap.Charts {
		if _, err := f.NewSheet(sd.Slot); err != nil {
			return goerr.Wrap(err, "failed to add chart sheet", goerr.V("slot", sd.Slot))
		}

		header := []any{"label"}
		for _, s := range sd.Series {
			name := s.Name
			if name == "" {
				name = "value"
			}
			header = append(header, name)
		}
		if err := setRow(f, sd.Slot, 1, header); err != nil {
			return err
		}

		for i, label := range sd.Labels {
			row := []any{label}
			for _, s := range sd.Series {
				row = append(row, s.Values[i])
			}
			if err := setRow(f, sd.Slot, i+2, row); err != nil {
				return err
			}
		}
		if err := f.SetColWidth(sd.Slot, "A", "A", 24); err != nil {
			return goerr.Wrap(err, "failed to size label column", goerr.V("slot", sd.Slot))
		}
	}

	if err := f.SaveAs(path); err != nil {
		return goerr.Wrap(err, "failed to save workbook", goerr.V("path", path))
	}
	return nil
}

func writeSummarySheet(f *excelize.File, snap dashboard.Snapshot) error {
	s := snap.Summary
	rows := [][]any{
		{"metric", "value"},
		{"view", string(snap.View)},
		{"filters", FilterText(snap)},
		{"dataset records", snap.Dataset},
		{"matching records", snap.Count},
		{"high severity %", s.HighPct},
		{"open %", s.OpenPct},
		{"closed %", s.ClosedPct},
		{"avg response (min)", s.AvgResponse},
		{"months dropped", snap.MonthsDropped},
		{},
		{"month", "incidents"},
	}
	for i, n := range snap.Months {
		rows = append(rows, []any{aggregate.MonthNames[i], n})
	}

	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 22); err != nil {
		return goerr.Wrap(err, "failed to size summary column")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return goerr.Wrap(err, "invalid cell", goerr.V("row", row))
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return goerr.Wrap(err, "failed to write row", goerr.V("sheet", sheet), goerr.V("row", row))
	}
	return nil
}
