// Package render draws chart data as SVG using go-chart.
package render

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/malcong/controle/internal/domain/chartdata"
)

const (
	defaultWidth  = 640
	defaultHeight = 320

	// yMargin is the fraction of the amplitude span added above and below.
	yMargin = 0.05
	// minHalfSpan pads ranges of flat or single-point data.
	minHalfSpan = 0.5
)

// Renderer turns ChartData into SVG documents. It holds no per-request state
// and is safe for concurrent use.
type Renderer struct {
	width  int
	height int
	xName  string
	yName  string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the chart size in pixels. Non-positive values keep the default.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
		if height > 0 {
			r.height = height
		}
	}
}

// WithAxisNames overrides the axis titles.
func WithAxisNames(x, y string) Option {
	return func(r *Renderer) {
		r.xName, r.yName = x, y
	}
}

// New creates a Renderer. Construct it once at startup and share it.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		width:  defaultWidth,
		height: defaultHeight,
		xName:  "Time (s)",
		yName:  "Amplitude",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SVG writes data as an SVG chart titled title.
func (r *Renderer) SVG(w io.Writer, title string, data chartdata.ChartData) error {
	b, ok := data.Bounds()
	if !ok {
		return ErrEmptyChart
	}

	series := make([]chart.Series, 0, len(data.Datasets))
	for _, ds := range data.Datasets {
		if len(ds.Data) == 0 {
			continue
		}
		series = append(series, continuous(ds))
	}

	xMin, xMax := padRange(b.XMin, b.XMax, 0)
	yMin, yMax := padRange(b.YMin, b.YMax, yMargin)

	ch := chart.Chart{
		Title:      title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           r.xName,
			Range:          &chart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: tickFormatter,
		},
		YAxis: chart.YAxis{
			Name:           r.yName,
			Range:          &chart.ContinuousRange{Min: yMin, Max: yMax},
			ValueFormatter: tickFormatter,
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render %q: %w", title, err)
	}
	return nil
}

func continuous(ds chartdata.Dataset) chart.ContinuousSeries {
	xs := make([]float64, len(ds.Data))
	ys := make([]float64, len(ds.Data))
	for i, p := range ds.Data {
		xs[i], ys[i] = p.X, p.Y
	}

	st := chart.Style{
		StrokeColor:     toDrawing(ds.Color),
		StrokeWidth:     2,
		StrokeDashArray: dashes(ds.BorderDash),
		DotColor:        toDrawing(ds.Color),
		DotWidth:        float64(ds.PointRadius),
	}
	if len(xs) == 1 {
		// A line needs two points.
		xs = append(xs, xs[0])
		ys = append(ys, ys[0])
		st.DotWidth = 3
	}
	return chart.ContinuousSeries{Name: ds.Label, XValues: xs, YValues: ys, Style: st}
}

func dashes(in []int) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func toDrawing(c chartdata.Color) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.Alpha8()}
}

// padRange widens [lo, hi] by margin*span on each side, and to at least
// minHalfSpan around the midpoint when the span is zero.
func padRange(lo, hi, margin float64) (float64, float64) {
	span := hi - lo
	if span <= 0 || math.IsNaN(span) {
		half := math.Max(math.Abs(lo)*0.1, minHalfSpan)
		return lo - half, hi + half
	}
	return lo - span*margin, hi + span*margin
}

func tickFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.2f", f)
	}
	return ""
}
