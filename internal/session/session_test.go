package session

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

func testRecording(t *testing.T) *Recording {
	t.Helper()
	rec := NewRecording(100, 2, 1, 5)
	pos := make([]geom.Vec3, 5)
	for i := range pos {
		pos[i] = geom.Vec3{float64(i), 10, 20}
	}
	res := []float64{0.5, -1, 0.2, 0.1, 0}
	require.NoError(t, rec.AddMarker("LASI", pos, res))
	require.NoError(t, rec.AddMarker("RASI", pos, nil))
	return rec
}

func TestFrameRange_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		rng       *FrameRange
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{"nil selects all", nil, 1, 5, false},
		{"inner", &FrameRange{2, 4}, 2, 4, false},
		{"single", &FrameRange{3, 3}, 3, 3, false},
		{"before first", &FrameRange{0, 3}, 0, 0, true},
		{"after last", &FrameRange{2, 6}, 0, 0, true},
		{"reversed", &FrameRange{4, 2}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, err := tt.rng.Resolve(1, 5)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %+v, got nil", tt.rng)
				}
				assert.True(t, mocaperr.IsUnsupported(err))
				return
			}
			require.NoError(t, err)
			if s != tt.wantStart || e != tt.wantEnd {
				t.Errorf("Expected %d..%d, got %d..%d", tt.wantStart, tt.wantEnd, s, e)
			}
		})
	}
}

func TestRecording_MarkerTrajectory(t *testing.T) {
	rec := testRecording(t)

	traj, err := rec.MarkerTrajectory("LASI", nil)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, true, true}, traj.Mask())

	traj, err = rec.MarkerTrajectory("LASI", &FrameRange{Start: 3, End: 5})
	require.NoError(t, err)
	require.Len(t, traj, 3)
	p, ok := traj[0].Position()
	require.True(t, ok)
	assert.Equal(t, geom.Vec3{2, 10, 20}, p)

	_, err = rec.MarkerTrajectory("NOPE", nil)
	assert.True(t, mocaperr.IsMissing(err))
}

func TestRecording_SetMarkerTrajectory(t *testing.T) {
	rec := testRecording(t)
	traj := trajectory.Trajectory{
		trajectory.Recovered(geom.Vec3{7, 7, 7}),
		trajectory.Missing(),
	}
	require.NoError(t, rec.SetMarkerTrajectory("LASI", traj, 2))

	m := rec.Markers[0]
	assert.Equal(t, geom.Vec3{7, 7, 7}, m.Positions[1])
	assert.Equal(t, 0.0, m.Residuals[1])
	assert.Equal(t, -1.0, m.Residuals[2])
	assert.Equal(t, 0.5, m.Residuals[0], "frames outside the write must be untouched")

	err := rec.SetMarkerTrajectory("LASI", make(trajectory.Trajectory, 3), 4)
	assert.True(t, mocaperr.IsInputDimension(err))

	err = rec.SetMarkerTrajectory("LASI", traj, 0)
	assert.True(t, mocaperr.IsUnsupported(err))

	err = rec.SetMarkerTrajectory("NOPE", traj, 1)
	assert.True(t, mocaperr.IsMissing(err))
}

func TestRecording_AddMarkerNonFinite(t *testing.T) {
	rec := NewRecording(50, 1, 1, 2)
	require.NoError(t, rec.AddMarker("M", []geom.Vec3{{math.NaN(), 0, 0}, {1, 2, 3}}, nil))
	assert.Equal(t, []float64{-1, 0}, rec.Markers[0].Residuals)
	assert.Equal(t, geom.Vec3{}, rec.Markers[0].Positions[0])

	err := rec.AddMarker("M", make([]geom.Vec3, 2), nil)
	assert.True(t, mocaperr.IsUnsupported(err))

	err = rec.AddMarker("N", make([]geom.Vec3, 3), nil)
	assert.True(t, mocaperr.IsInputDimension(err))
}

func TestScaleSamples(t *testing.T) {
	info := ChannelInfo{Scale: 0.5, Offset: 10}
	got := ScaleSamples([]float64{10, 12, 0}, info, AnalogSetup{GeneralScale: 2})
	assert.InDeltaSlice(t, []float64{0, 2, -10}, got, 1e-12)

	// 65535 wraps to -1 as a signed offset but stays as is when unsigned.
	info = ChannelInfo{Scale: 1, Offset: 65535}
	assert.Equal(t, []float64{1}, ScaleSamples([]float64{0}, info, AnalogSetup{GeneralScale: 1}))
	assert.Equal(t, []float64{-65535}, ScaleSamples([]float64{0}, info, AnalogSetup{GeneralScale: 1, Unsigned: true}))

	info = ChannelInfo{Scale: 0.25, Offset: 3}
	setup := AnalogSetup{GeneralScale: 4}
	values := []float64{1.5, -2, 0}
	assert.InDeltaSlice(t, values, ScaleSamples(UnscaleSamples(values, info, setup), info, setup), 1e-12)
}

func TestRecording_ChannelWaveform(t *testing.T) {
	rec := testRecording(t)
	rec.Analog = AnalogSetup{GeneralScale: 1}
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	idx, err := rec.AddChannel(ChannelInfo{Label: "Fz1", Unit: "N", Scale: 2, Offset: 1}, values)
	require.NoError(t, err)

	got, err := rec.ChannelWaveform(idx, &FrameRange{Start: 2, End: 3}, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 3, 4, 5}, got, 1e-12)

	raw, err := rec.ChannelWaveform(idx, &FrameRange{Start: 1, End: 1}, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1.5}, raw, 1e-12)

	_, err = rec.ChannelWaveform(5, nil, true)
	assert.True(t, mocaperr.IsMissing(err))

	_, err = rec.AddChannel(ChannelInfo{Label: "short"}, []float64{1})
	assert.True(t, mocaperr.IsInputDimension(err))
}

func TestTimes(t *testing.T) {
	rec := NewRecording(100, 4, 11, 2)
	assert.InDeltaSlice(t, []float64{0, 0.01}, FrameTimes(rec, true), 1e-12)
	assert.InDeltaSlice(t, []float64{0.11, 0.12}, FrameTimes(rec, false), 1e-12)

	at := AnalogTimes(rec, true)
	require.Len(t, at, 8)
	assert.InDelta(t, 0.0025, at[1], 1e-12)
	assert.InDelta(t, 0.0175, at[7], 1e-12)
	assert.Equal(t, 400.0, AnalogRate(rec))
}

func TestRecording_JSONRoundTripAndValidate(t *testing.T) {
	rec := testRecording(t)
	cal := [6][6]float64{}
	for i := 0; i < 6; i++ {
		cal[i][i] = 1
	}
	for i := 0; i < 6; i++ {
		_, err := rec.AddChannel(ChannelInfo{Label: "ch" + string(rune('0'+i)), Scale: 1}, make([]float64, 10))
		require.NoError(t, err)
	}
	rec.Plates = []PlateGeometry{{Type: 4, Channels: []int{0, 1, 2, 3, 4, 5}, CalMatrix: &cal}}

	var buf bytes.Buffer
	require.NoError(t, rec.Write(&buf))
	got, err := ReadRecording(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec.MarkerNames(), got.MarkerNames())
	require.NotNil(t, got.Plates[0].CalMatrix)
	assert.Equal(t, cal, *got.Plates[0].CalMatrix)

	bad := rec.Clone()
	bad.Plates[0].Channels[0] = 42
	assert.True(t, mocaperr.IsMissing(bad.Validate()))
	assert.Equal(t, 0, rec.Plates[0].Channels[0], "clone must not alias")

	bad = rec.Clone()
	bad.Markers[0].Residuals = bad.Markers[0].Residuals[:2]
	assert.True(t, mocaperr.IsInputDimension(bad.Validate()))
}

func TestLoadRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trial.json")
	var buf bytes.Buffer
	require.NoError(t, testRecording(t).Write(&buf))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	rec, err := LoadRecording(path)
	require.NoError(t, err)
	assert.Equal(t, 5, FrameCount(rec))

	_, err = LoadRecording(filepath.Join(dir, "trial.c3d"))
	assert.Error(t, err)
}
