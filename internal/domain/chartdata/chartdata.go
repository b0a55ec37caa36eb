// Package chartdata maps analysis results into chart datasets. Datasets are
// rebuilt from each result and never merged with earlier ones.
package chartdata

import (
	"gonum.org/v1/gonum/floats"

	"github.com/malcong/controle/internal/domain/types"
)

// Default dataset styling.
const (
	defaultTension     = 0.1
	defaultPointRadius = 1
	referenceLabel     = "Reference (y = x)"
)

// Kind identifies one of the dashboard charts.
type Kind string

// Chart kinds, in dashboard order.
const (
	KindImpulse    Kind = "impulse"
	KindStep       Kind = "step"
	KindRamp       Kind = "ramp"
	KindComparison Kind = "comparison"
)

// Kinds lists every chart kind in display order.
var Kinds = []Kind{KindImpulse, KindStep, KindRamp, KindComparison}

// ParseKind validates a chart kind coming from a URL.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Dataset is one plotted line.
type Dataset struct {
	Label           string        `json:"label"`
	Data            []types.Point `json:"data"`
	BorderColor     string        `json:"borderColor"`
	BackgroundColor string        `json:"backgroundColor"`
	Fill            bool          `json:"fill"`
	Tension         float64       `json:"tension"`
	PointRadius     int           `json:"pointRadius"`
	BorderDash      []int         `json:"borderDash,omitempty"`
	Color           Color         `json:"-"`
}

// ChartData is what one chart surface consumes.
type ChartData struct {
	Labels   []float64 `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

// Empty reports whether there is nothing to plot.
func (c ChartData) Empty() bool {
	for _, d := range c.Datasets {
		if len(d.Data) > 0 {
			return false
		}
	}
	return true
}

// Bounds is the data extent across all datasets.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Bounds computes the extent of every dataset. ok is false when empty.
func (c ChartData) Bounds() (b Bounds, ok bool) {
	var xs, ys []float64
	for _, d := range c.Datasets {
		for _, p := range d.Data {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	if len(xs) == 0 {
		return Bounds{}, false
	}
	return Bounds{
		XMin: floats.Min(xs), XMax: floats.Max(xs),
		YMin: floats.Min(ys), YMax: floats.Max(ys),
	}, true
}

// Charts holds every chart of the dashboard.
type Charts struct {
	Step       ChartData `json:"step"`
	Impulse    ChartData `json:"impulse"`
	Ramp       ChartData `json:"ramp"`
	Comparison ChartData `json:"comparison"`
}

// Get returns the chart of the given kind.
func (c Charts) Get(k Kind) ChartData {
	switch k {
	case KindStep:
		return c.Step
	case KindImpulse:
		return c.Impulse
	case KindRamp:
		return c.Ramp
	case KindComparison:
		return c.Comparison
	}
	return ChartData{}
}

// Empty reports whether no chart has data.
func (c Charts) Empty() bool {
	return c.Step.Empty() && c.Impulse.Empty() && c.Ramp.Empty()
}

// FromSeries maps a response series into a single-dataset chart.
func FromSeries(s types.ResponseSeries, color Color) ChartData {
	labels := make([]float64, len(s.Points))
	for i, p := range s.Points {
		labels[i] = p.X
	}
	return ChartData{
		Labels:   labels,
		Datasets: []Dataset{dataset(s.Label, s.Points, color)},
	}
}

func dataset(label string, pts []types.Point, color Color) Dataset {
	data := make([]types.Point, len(pts))
	copy(data, pts)
	return Dataset{
		Label:           label,
		Data:            data,
		BorderColor:     color.String(),
		BackgroundColor: color.Background().String(),
		Fill:            false,
		Tension:         defaultTension,
		PointRadius:     defaultPointRadius,
		Color:           color,
	}
}

// Diagonal synthesizes the ideal ramp tracking line y = x over the time
// domain of s, sampled at the same number of points.
func Diagonal(s types.ResponseSeries) Dataset {
	d := Dataset{
		Label:           referenceLabel,
		BorderColor:     ReferenceColor.String(),
		BackgroundColor: ReferenceColor.Background().String(),
		Tension:         0,
		PointRadius:     0,
		BorderDash:      []int{6, 4},
		Color:           ReferenceColor,
	}
	if len(s.Points) == 0 {
		return d
	}
	xs := make([]float64, len(s.Points))
	for i, p := range s.Points {
		xs[i] = p.X
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	n := len(xs)
	if n < 2 {
		n = 2
	}
	span := floats.Span(make([]float64, n), lo, hi)
	d.Data = make([]types.Point, n)
	for i, x := range span {
		d.Data[i] = types.Point{X: x, Y: x}
	}
	return d
}

// Build derives every chart from a result. The comparison chart reuses the
// step and impulse datasets as they are; the ramp chart is empty for v1 results.
func Build(r types.Result) Charts {
	c := Charts{
		Step:    FromSeries(r.Step, StepColor),
		Impulse: FromSeries(r.Impulse, ImpulseColor),
	}
	if r.HasRamp() {
		c.Ramp = FromSeries(*r.Ramp, RampColor)
		c.Ramp.Datasets = append(c.Ramp.Datasets, Diagonal(*r.Ramp))
	}
	c.Comparison = ChartData{
		Labels:   c.Step.Labels,
		Datasets: append(append([]Dataset{}, c.Step.Datasets...), c.Impulse.Datasets...),
	}
	return c
}
