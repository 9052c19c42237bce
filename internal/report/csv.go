// Package report writes force-plate outputs as CSV tables, PNG plots and
// HTML charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/kinetics"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/units"
)

// Frame selects one of the coordinate renditions of a plate output.
type Frame string

const (
	FrameSensor  Frame = "sensor"
	FrameSurface Frame = "surface"
	FrameLab     Frame = "lab"
)

// ParseFrame accepts "sensor", "surface" or "lab".
func ParseFrame(s string) (Frame, error) {
	switch f := Frame(s); f {
	case FrameSensor, FrameSurface, FrameLab:
		return f, nil
	}
	return "", mocaperr.Unsupported("output frame", s)
}

// ViewOf returns the view of out in frame f. Unknown frames give the lab
// view.
func ViewOf(out kinetics.PlateOutput, f Frame) kinetics.View {
	switch f {
	case FrameSensor:
		return out.Sensor
	case FrameSurface:
		return out.Surface
	}
	return out.Lab
}

// CSVOptions control WriteForcesCSV.
type CSVOptions struct {
	Frame Frame
	// MarkerUnit is the length unit of the plate geometry (default mm).
	MarkerUnit string
	// COPUnit is the length unit written for the COP (default MarkerUnit).
	COPUnit string
	// StartTime is the time of the first sample in seconds.
	StartTime float64
}

var csvHeader = []string{
	"time_s", "contact",
	"fx", "fy", "fz",
	"mx", "my", "mz",
	"cop_x", "cop_y", "cop_z",
	"tz",
}

// WriteForcesCSV writes one row per analog sample of a plate.
func WriteForcesCSV(w io.Writer, out kinetics.PlateOutput, opts CSVOptions) error {
	if out.Rate <= 0 {
		return mocaperr.Unsupported("analog rate", out.Rate)
	}
	from := opts.MarkerUnit
	if from == "" {
		from = units.MM
	}
	to := opts.COPUnit
	if to == "" {
		to = from
	}
	if !units.IsValidLength(from) {
		return mocaperr.Unsupported("marker unit", from)
	}
	if !units.IsValidLength(to) {
		return mocaperr.Unsupported("COP unit", to)
	}
	k := units.LengthScale(from, to)
	view := ViewOf(out, opts.Frame)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	row := make([]string, len(csvHeader))
	for i := 0; i < out.Len(); i++ {
		row[0] = formatFloat(opts.StartTime + float64(i)/out.Rate)
		row[1] = strconv.FormatBool(!out.Skipped[i])
		putVec(row[2:5], view.Force[i], 1)
		putVec(row[5:8], view.Moment[i], 1)
		putVec(row[8:11], view.COP[i], k)
		row[11] = formatFloat(view.FreeMoment[i][2])
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write sample %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func putVec(dst []string, v geom.Vec3, k float64) {
	for j := range dst {
		dst[j] = formatFloat(v[j] * k)
	}
}

// formatFloat writes NaN as an empty cell.
func formatFloat(v float64) string {
	if v != v {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
