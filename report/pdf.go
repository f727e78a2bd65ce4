// Package report writes a dashboard snapshot to PDF and XLSX files.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/zalepa/crimedash/chart"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/incident"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	summaryRowHeight = 0.30 * vg.Inch
	nameColWidth     = 3.0 * vg.Inch
	valueColWidth    = 1.4 * vg.Inch
)

var sparkColor = color.RGBA{R: 45, G: 212, B: 191, A: 255}

// WritePDF writes a summary page followed by one page per chart in snap.
// The document carries the view, filters and record count as custom
// properties.
func WritePDF(path string, snap dashboard.Snapshot) error {
	c := vgpdf.New(pageWidth, pageHeight)
	drawSummaryPage(c, snap)

	for _, sd := range snap.Charts {
		c.NextPage()
		dc := draw.New(c)
		area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
		if err := chart.DrawOn(sd.Spec, area); err != nil {
			return goerr.Wrap(err, "failed to draw chart page", goerr.V("slot", sd.Slot))
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".crimedash-*.pdf")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary pdf", goerr.V("path", path))
	}
	defer os.Remove(tmp.Name())

	if _, err := c.WriteTo(tmp); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write pdf", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close pdf", goerr.V("path", tmp.Name()))
	}

	if err := api.AddPropertiesFile(tmp.Name(), path, Properties(snap), model.NewDefaultConfiguration()); err != nil {
		return goerr.Wrap(err, "failed to stamp pdf properties", goerr.V("path", path))
	}
	return nil
}

// Properties are the custom document properties stamped on exported PDFs.
func Properties(snap dashboard.Snapshot) map[string]string {
	return map[string]string{
		"Dashboard": string(snap.View),
		"Filters":   FilterText(snap),
		"Records":   strconv.Itoa(snap.Count),
		"Generator": "crimedash",
	}
}

// FilterText describes the active selection, e.g. "state=CA; year=2020".
func FilterText(snap dashboard.Snapshot) string {
	var parts []string
	for _, d := range incident.FilterDimensions {
		if values := snap.Filters[d]; len(values) > 0 {
			parts = append(parts, string(d)+"="+strings.Join(values, ","))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

type summaryRow struct {
	name  string
	value string
	trend []float64
}

func summaryRows(snap dashboard.Snapshot) []summaryRow {
	s := snap.Summary
	rows := []summaryRow{
		{name: "Incidents", value: chart.FormatInt(int64(snap.Count))},
		{name: "High severity", value: strconv.Itoa(s.HighPct) + "%"},
		{name: "Open cases", value: strconv.Itoa(s.OpenPct) + "%"},
		{name: "Closed cases", value: strconv.Itoa(s.ClosedPct) + "%"},
		{name: "Avg response", value: strconv.Itoa(s.AvgResponse) + " min"},
	}
	if snap.MonthsDropped > 0 {
		rows = append(rows, summaryRow{name: "Records without a valid month", value: chart.FormatInt(int64(snap.MonthsDropped))})
	}
	return rows
}

// chartRows names each chart with its largest category.
func chartRows(snap dashboard.Snapshot) []summaryRow {
	rows := make([]summaryRow, 0, len(snap.Charts))
	for _, sd := range snap.Charts {
		row := summaryRow{name: sd.Title, value: "-"}
		if len(sd.Series) > 0 && len(sd.Labels) > 0 {
			totals := make([]float64, len(sd.Labels))
			for _, s := range sd.Series {
				for i, v := range s.Values {
					totals[i] += v
				}
			}
			top := slices.Index(totals, slices.Max(totals))
			row.value = sd.Labels[top]
			row.trend = totals
		}
		rows = append(rows, row)
	}
	return rows
}

func drawSummaryPage(c *vgpdf.Canvas, snap dashboard.Snapshot) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
	usableW := pageWidth - 2*pdfMargin
	sparkColWidth := usableW - nameColWidth - valueColWidth

	title := fmt.Sprintf("Crime dashboard: %s view", snap.View)
	subtitle := fmt.Sprintf("Filters: %s  |  %s of %s records",
		FilterText(snap), chart.FormatInt(int64(snap.Count)), chart.FormatInt(int64(snap.Dataset)))

	yTop := area.Max.Y
	fillText(area, title, vg.Points(14), area.Min.X, yTop-vg.Points(14), color.Black)
	fillText(area, subtitle, vg.Points(10), area.Min.X, yTop-0.35*vg.Inch, color.Gray{Y: 100})
	yTop -= 0.6 * vg.Inch

	section := func(header, valueHeader string, rows []summaryRow) {
		fillText(area, header, vg.Points(10), area.Min.X, yTop, color.Gray{Y: 80})
		fillText(area, valueHeader, vg.Points(10), area.Min.X+nameColWidth, yTop, color.Gray{Y: 80})
		sepY := yTop - vg.Points(6)
		strokeHLine(area, area.Min.X, area.Min.X+usableW, sepY, color.Gray{Y: 180})
		yTop = sepY - vg.Points(4)

		for i, r := range rows {
			y := yTop - vg.Length(i)*summaryRowHeight - summaryRowHeight*0.65
			fillText(area, r.name, vg.Points(9), area.Min.X, y, color.Black)
			fillText(area, r.value, vg.Points(9), area.Min.X+nameColWidth, y, color.Black)

			if len(r.trend) > 1 {
				sparkX := area.Min.X + nameColWidth + valueColWidth
				sparkY := yTop - vg.Length(i+1)*summaryRowHeight + vg.Points(2)
				drawSparkline(draw.Canvas{
					Canvas: area.Canvas,
					Rectangle: vg.Rectangle{
						Min: vg.Point{X: sparkX, Y: sparkY},
						Max: vg.Point{X: sparkX + sparkColWidth, Y: sparkY + summaryRowHeight - vg.Points(3)},
					},
				}, r.trend)
			}
		}
		yTop -= vg.Length(len(rows))*summaryRowHeight + 0.3*vg.Inch
	}

	section("Summary", "Value", summaryRows(snap))
	if len(snap.Charts) > 0 {
		section("Chart", "Largest", chartRows(snap))
	}
}

func drawSparkline(c draw.Canvas, vals []float64) {
	pts := make(plotter.XYs, len(vals))
	for i, v := range vals {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}

	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = color.Transparent

	line, err := plotter.NewLine(pts)
	if err != nil {
		return
	}
	line.Color = sparkColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	p.X.Min = 0
	p.X.Max = float64(len(vals) - 1)
	lo, hi := slices.Min(vals), slices.Max(vals)
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	p.Y.Min = lo - pad
	p.Y.Max = hi + pad

	p.Draw(c)
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}
