package chart

import (
	"bytes"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/m-mizutani/goerr/v2"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Format is the encoding of a drawn chart.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
	barWidth    = 18.0 // points

	// rotate category labels once there are more than this many
	rotateAfter = 6
)

// Draw renders spec to w in the given format.
func Draw(spec Spec, format Format, w io.Writer) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if format != SVG && format != PNG {
		return goerr.New("unsupported chart format", goerr.V("format", format))
	}

	if spec.Kind == Pie && hasPositive(spec) {
		return drawPie(spec, format, int(chartWidth.Points()), int(chartHeight.Points()), w)
	}

	p, err := buildPlot(spec)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, string(format))
	if err != nil {
		return goerr.Wrap(err, "failed to create chart canvas")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return goerr.Wrap(err, "failed to write chart")
	}
	return nil
}

// DrawOn renders spec into an existing canvas, such as a PDF page. Pie
// charts are rasterized and placed as an image.
func DrawOn(spec Spec, c draw.Canvas) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	if spec.Kind == Pie && hasPositive(spec) {
		width := int(2 * (c.Max.X - c.Min.X).Points())
		height := int(2 * (c.Max.Y - c.Min.Y).Points())
		var buf bytes.Buffer
		if err := drawPie(spec, PNG, width, height, &buf); err != nil {
			return err
		}
		img, err := png.Decode(&buf)
		if err != nil {
			return goerr.Wrap(err, "failed to decode pie chart")
		}
		c.DrawImage(c.Rectangle, img)
		return nil
	}

	p, err := buildPlot(spec)
	if err != nil {
		return err
	}
	p.Draw(c)
	return nil
}

func hasPositive(spec Spec) bool {
	for _, s := range spec.Series {
		for _, v := range s.Values {
			if v > 0 {
				return true
			}
		}
	}
	return false
}

func drawPie(spec Spec, format Format, width, height int, w io.Writer) error {
	values := make([]gochart.Value, len(spec.Labels))
	for i, label := range spec.Labels {
		values[i] = gochart.Value{
			Label: label,
			Value: spec.Series[0].Values[i],
			Style: gochart.Style{
				FillColor:   drawingColor(spec.Palette.Color(i + spec.ColorOffset)),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		}
	}

	pie := gochart.PieChart{
		Title:  spec.Title,
		Width:  width,
		Height: height,
		Values: values,
	}

	renderer := gochart.SVG
	if format == PNG {
		renderer = gochart.PNG
	}
	if err := pie.Render(renderer, w); err != nil {
		return goerr.Wrap(err, "failed to render pie chart", goerr.V("title", spec.Title))
	}
	return nil
}

func buildPlot(spec Spec) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = spec.Title
	p.BackgroundColor = color.White

	if len(spec.Labels) == 0 || (spec.Kind == Pie && !hasPositive(spec)) {
		p.Title.Text = spec.Title + " (no data)"
		p.HideAxes()
		return p, nil
	}

	var err error
	switch spec.Kind {
	case Bar, HBar:
		err = addBars(p, spec)
	case Line:
		err = addLine(p, spec)
	case Clustered:
		err = addClustered(p, spec)
	case Stacked:
		err = addStacked(p, spec)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build chart", goerr.V("title", spec.Title))
	}

	if spec.Kind == HBar {
		p.NominalY(spec.Labels...)
		p.X.Min = 0
		if spec.ValueMax > 0 {
			p.X.Max = spec.ValueMax
		}
		return p, nil
	}

	p.NominalX(spec.Labels...)
	if len(spec.Labels) > rotateAfter {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	p.Y.Min = 0
	if spec.ValueMax > 0 {
		p.Y.Max = spec.ValueMax
	}
	p.Y.Tick.Marker = compactTicks{}
	return p, nil
}

// addBars draws one bar per label so that each can carry its own color.
func addBars(p *plot.Plot, spec Spec) error {
	for i, v := range spec.Series[0].Values {
		b, err := plotter.NewBarChart(plotter.Values{v}, vg.Points(barWidth))
		if err != nil {
			return err
		}
		b.XMin = float64(i)
		b.Horizontal = spec.Kind == HBar
		b.Color = spec.Palette.Color(i + spec.ColorOffset)
		b.LineStyle.Width = 0
		p.Add(b)
	}
	return nil
}

func addLine(p *plot.Plot, spec Spec) error {
	vals := spec.Series[0].Values
	pts := make(plotter.XYs, len(vals))
	for i, v := range vals {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	clr := spec.Palette.Color(spec.ColorOffset)

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = clr
	line.Width = vg.Points(3)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.Color = clr
	scatter.Radius = vg.Points(3)
	scatter.Shape = draw.CircleGlyph{}

	p.Add(plotter.NewGrid(), line, scatter)
	if spec.Series[0].Name != "" {
		p.Legend.Add(spec.Series[0].Name, line)
		p.Legend.Top = true
	}
	return nil
}

func addClustered(p *plot.Plot, spec Spec) error {
	n := len(spec.Series)
	width := vg.Points(barWidth) / vg.Length(max(1, n/2+1))
	for j, s := range spec.Series {
		b, err := plotter.NewBarChart(plotter.Values(s.Values), width)
		if err != nil {
			return err
		}
		b.Offset = vg.Length(float64(j)-float64(n-1)/2) * width
		b.Color = spec.Palette.Color(j + spec.ColorOffset)
		b.LineStyle.Width = 0
		p.Add(b)
		p.Legend.Add(s.Name, b)
	}
	p.Legend.Top = true
	return nil
}

func addStacked(p *plot.Plot, spec Spec) error {
	var below *plotter.BarChart
	for j, s := range spec.Series {
		b, err := plotter.NewBarChart(plotter.Values(s.Values), vg.Points(barWidth))
		if err != nil {
			return err
		}
		if below != nil {
			b.StackOn(below)
		}
		b.Color = spec.Palette.Color(j + spec.ColorOffset)
		b.LineStyle.Width = 0
		p.Add(b)
		p.Legend.Add(s.Name, b)
		below = b
	}
	p.Legend.Top = true
	return nil
}

// compactTicks labels the value axis with compact numbers.
type compactTicks struct{}

func (compactTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = FormatCompact(ticks[i].Value)
		}
	}
	return ticks
}
