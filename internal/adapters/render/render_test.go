package render_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/malcong/controle/internal/adapters/render"
	"github.com/malcong/controle/internal/domain/chartdata"
	"github.com/malcong/controle/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func ramp(pts ...types.Point) types.ResponseSeries {
	return types.ResponseSeries{Label: "Ramp Response", Points: pts, Metadata: types.SeriesMetadata{Length: len(pts)}}
}

func TestSVG(t *testing.T) {
	r := render.New(render.WithSize(400, 200))

	Convey("Given a ramp chart with its reference diagonal", t, func() {
		s := ramp(types.Point{X: 0, Y: 0}, types.Point{X: 1, Y: 0.5}, types.Point{X: 2, Y: 1.4})
		data := chartdata.FromSeries(s, chartdata.RampColor)
		data.Datasets = append(data.Datasets, chartdata.Diagonal(s))

		var buf bytes.Buffer
		err := r.SVG(&buf, "Ramp Response", data)

		Convey("Then an SVG document is produced", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "<svg")
			So(buf.String(), ShouldContainSubstring, "Ramp Response")
		})
	})

	Convey("Given a flat series", t, func() {
		s := ramp(types.Point{X: 0, Y: 1}, types.Point{X: 1, Y: 1}, types.Point{X: 2, Y: 1})
		var buf bytes.Buffer
		err := r.SVG(&buf, "Flat", chartdata.FromSeries(s, chartdata.StepColor))

		Convey("Then the zero amplitude span is padded", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "<svg")
		})
	})

	Convey("Given a single-point series", t, func() {
		s := ramp(types.Point{X: 0, Y: 0})
		var buf bytes.Buffer
		err := r.SVG(&buf, "Single", chartdata.FromSeries(s, chartdata.ImpulseColor))

		Convey("Then it still renders", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "<svg")
		})
	})

	Convey("Given empty chart data", t, func() {
		var buf bytes.Buffer
		err := r.SVG(&buf, "Empty", chartdata.ChartData{})

		Convey("Then ErrEmptyChart is returned and nothing is written", func() {
			So(errors.Is(err, render.ErrEmptyChart), ShouldBeTrue)
			So(buf.Len(), ShouldEqual, 0)
		})
	})
}
