package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.report/internal/fsutil"
	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/kinetics"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

func sampleOutput(n int) kinetics.PlateOutput {
	view := func() kinetics.View {
		return kinetics.View{
			Force:      make([]geom.Vec3, n),
			Moment:     make([]geom.Vec3, n),
			COP:        make([]geom.Vec3, n),
			FreeMoment: make([]geom.Vec3, n),
		}
	}
	out := kinetics.PlateOutput{
		Index:   1,
		Type:    2,
		Rate:    1000,
		Skipped: make([]bool, n),
		Sensor:  view(),
		Surface: view(),
		Lab:     view(),
	}
	for i := 0; i < n; i++ {
		fz := 700 + 10*math.Sin(float64(i)/10)
		out.Lab.Force[i] = geom.Vec3{1, 2, fz}
		out.Lab.Moment[i] = geom.Vec3{3, 4, 5}
		out.Lab.COP[i] = geom.Vec3{250 + float64(i), 100, 0}
		out.Lab.FreeMoment[i] = geom.Vec3{0, 0, 0.5}
		out.Sensor.Force[i] = geom.Vec3{-1, -2, fz}
	}
	out.Skipped[0] = true
	out.Lab.Force[0] = geom.Vec3{}
	out.Lab.COP[0] = geom.Vec3{math.NaN(), math.NaN(), 0}
	return out
}

func TestWriteForcesCSV(t *testing.T) {
	var buf bytes.Buffer
	out := sampleOutput(3)
	require.NoError(t, WriteForcesCSV(&buf, out, CSVOptions{COPUnit: "m", StartTime: 0.5}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	if diff := cmp.Diff(csvHeader, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "0.5", rows[1][0])
	assert.Equal(t, "false", rows[1][1])
	assert.Equal(t, "", rows[1][8], "NaN COP is written as an empty cell")

	cell := func(r, c int) float64 {
		v, err := strconv.ParseFloat(rows[r][c], 64)
		require.NoError(t, err)
		return v
	}
	assert.InDelta(t, 0.501, cell(2, 0), 1e-12)
	assert.Equal(t, "true", rows[2][1])
	assert.Equal(t, "1", rows[2][2])
	assert.InDelta(t, 0.251, cell(2, 8), 1e-12, "COP converted from mm to m")
	assert.InDelta(t, 0.1, cell(2, 9), 1e-12)
	assert.Equal(t, "0.5", rows[2][11])
}

func TestWriteForcesCSV_Frames(t *testing.T) {
	var buf bytes.Buffer
	out := sampleOutput(2)
	require.NoError(t, WriteForcesCSV(&buf, out, CSVOptions{Frame: FrameSensor}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "-1", rows[2][2])

	err = WriteForcesCSV(&buf, out, CSVOptions{COPUnit: "ft"})
	assert.True(t, mocaperr.IsUnsupported(err))
	out.Rate = 0
	err = WriteForcesCSV(&buf, out, CSVOptions{})
	assert.True(t, mocaperr.IsUnsupported(err))
}

func TestParseFrame(t *testing.T) {
	for _, s := range []string{"sensor", "surface", "lab"} {
		f, err := ParseFrame(s)
		require.NoError(t, err)
		assert.Equal(t, Frame(s), f)
	}
	_, err := ParseFrame("world")
	assert.True(t, mocaperr.IsUnsupported(err))
}

func TestPlotPlate(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	paths, err := PlotPlate(fsys, "out/plots", sampleOutput(50))
	require.NoError(t, err)
	want := []string{
		filepath.Join("out/plots", "plate_01_force.png"),
		filepath.Join("out/plots", "plate_01_cop.png"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	for _, p := range paths {
		data, err := fsys.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "%s is not a PNG", p)
	}
	assert.True(t, fsys.Exists("out/plots"))
}

func TestPlotPlate_AllSkipped(t *testing.T) {
	out := sampleOutput(1)
	fsys := fsutil.NewMemoryFileSystem()
	paths, err := PlotPlate(fsys, "plots", out)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestRenderForcesHTML(t *testing.T) {
	var buf bytes.Buffer
	long := sampleOutput(MaxChartPoints*2 + 10)
	long.Index = 0
	require.NoError(t, RenderForcesHTML(&buf, []kinetics.PlateOutput{long, sampleOutput(5)}))

	html := buf.String()
	assert.Contains(t, html, "Plate 0")
	assert.Contains(t, html, "Plate 1")
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Fz")
}

func TestChartStride(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 1},
		{MaxChartPoints, 1},
		{MaxChartPoints + 1, 2},
		{MaxChartPoints*2 + 10, 3},
	}
	for _, tt := range tests {
		if got := chartStride(tt.n); got != tt.want {
			t.Errorf("chartStride(%d): expected %d, got %d", tt.n, tt.want, got)
		}
	}
}
