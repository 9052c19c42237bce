package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/mocap.report/internal/kinetics"
)

// MaxChartPoints caps the samples drawn per series; longer outputs are
// decimated.
const MaxChartPoints = 2000

// RenderForcesHTML writes an HTML page with one lab-frame force chart per
// plate.
func RenderForcesHTML(w io.Writer, outs []kinetics.PlateOutput) error {
	page := components.NewPage()
	for _, out := range outs {
		page.AddCharts(forceChart(out))
	}
	return page.Render(w)
}

func forceChart(out kinetics.PlateOutput) *charts.Line {
	stride := chartStride(out.Len())

	var x []string
	series := make([][]opts.LineData, 3)
	for i := 0; i < out.Len(); i += stride {
		x = append(x, strconv.FormatFloat(float64(i)/out.Rate, 'f', 3, 64))
		f := out.Lab.Force[i]
		for axis := range series {
			series[axis] = append(series[axis], lineValue(f[axis]))
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Plate %d", out.Index),
			Subtitle: fmt.Sprintf("type %d, %g Hz, lab frame", out.Type, out.Rate),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Force (N)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x)
	for axis, name := range []string{"Fx", "Fy", "Fz"} {
		line.AddSeries(name, series[axis], charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line
}

func chartStride(n int) int {
	if n <= MaxChartPoints {
		return 1
	}
	return (n + MaxChartPoints - 1) / MaxChartPoints
}

// lineValue maps NaN to a gap, which the JSON encoder cannot carry.
func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: v}
}
