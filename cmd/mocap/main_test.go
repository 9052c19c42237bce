package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/session"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// writeTrial writes a 30 frame recording with a three frame gap in marker T
// and one type 2 plate under constant load.
func writeTrial(t *testing.T, dir string) string {
	t.Helper()
	const frames = 30
	rec := session.NewRecording(100, 2, 1, frames)
	rec.Analog = session.AnalogSetup{GeneralScale: 1}

	pos := make([]geom.Vec3, frames)
	res := make([]float64, frames)
	for i := range pos {
		x := float64(i)
		pos[i] = geom.Vec3{x, 0.5 * x * x, 10 + 0.1*x*x*x}
		res[i] = 0.5
	}
	for _, i := range []int{12, 13, 14} {
		res[i] = trajectory.MissingResidual
	}
	require.NoError(t, rec.AddMarker("T", pos, res))

	values := map[string]float64{"Fx1": 10, "Fy1": -5, "Fz1": 500, "Mx1": 2000, "My1": -3000, "Mz1": 40}
	geo := session.PlateGeometry{
		Type:   2,
		Origin: geom.Vec3{0, 0, -40},
		Corners: [4]geom.Vec3{
			{600, 400, 0}, {0, 400, 0}, {0, 0, 0}, {600, 0, 0},
		},
	}
	for _, label := range []string{"Fx1", "Fy1", "Fz1", "Mx1", "My1", "Mz1"} {
		x := make([]float64, frames*2)
		for i := range x {
			x[i] = values[label]
		}
		idx, err := rec.AddChannel(session.ChannelInfo{Label: label, Unit: "N", Scale: 1}, x)
		require.NoError(t, err)
		geo.Channels = append(geo.Channels, idx)
	}
	rec.Plates = append(rec.Plates, geo)

	path := filepath.Join(dir, "trial.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, rec.Write(f))
	require.NoError(t, f.Close())
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func importedDB(t *testing.T) (dir, db string) {
	t.Helper()
	dir = t.TempDir()
	db = filepath.Join(dir, "trial.db")
	code, out, errOut := runCLI(t, "import", "-db", db, "-in", writeTrial(t, dir))
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "30 frames")
	return dir, db
}

func TestImportFillAndRuns(t *testing.T) {
	_, db := importedDB(t)

	code, out, errOut := runCLI(t, "gaps", "-db", db)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "T: 27/30 valid frames, 1 gaps")
	assert.Contains(t, out, "frames 13-15 (3)")

	code, out, errOut = runCLI(t, "fill", "-db", db, "-strategy", "spline", "-target", "T")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "filled 3 frames")

	code, out, errOut = runCLI(t, "fill", "-db", db, "-strategy", "spline", "-target", "T")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "skipped")

	code, out, errOut = runCLI(t, "runs", "-db", db, "-target", "T")
	require.Equal(t, 0, code, errOut)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "T spline: updated, 3 filled, 30 valid")
	assert.Contains(t, lines[1], "skipped, all target marker frames valid")

	code, out, _ = runCLI(t, "runs", "-db", db, "-target", "OTHER")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No fill runs recorded")
}

func TestForcesWritesOutputs(t *testing.T) {
	dir, db := importedDB(t)
	outDir := filepath.Join(dir, "reports")

	code, out, errOut := runCLI(t, "forces", "-db", db, "-out", outDir, "-format", "csv,png,html")
	require.Equal(t, 0, code, errOut)
	for _, name := range []string{"plate_00.csv", "plate_00_force.png", "plate_00_cop.png", "forces.html"} {
		assert.FileExists(t, filepath.Join(outDir, name))
		assert.Contains(t, out, name)
	}

	csv, err := os.ReadFile(filepath.Join(outDir, "plate_00.csv"))
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(string(csv)), "\n")
	assert.Len(t, rows, 61)
}

func TestForcesRejectsUnknownFormat(t *testing.T) {
	_, db := importedDB(t)
	code, _, errOut := runCLI(t, "forces", "-db", db, "-format", "pdf")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown output format")
}

func TestExportRoundTrip(t *testing.T) {
	dir, db := importedDB(t)
	path := filepath.Join(dir, "out.json")

	code, _, errOut := runCLI(t, "export", "-db", db, "-out", path)
	require.Equal(t, 0, code, errOut)

	rec, err := session.LoadRecording(path)
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Frames)
	assert.Equal(t, []string{"T"}, rec.MarkerNames())
	require.Len(t, rec.Plates, 1)
}

func TestFillErrors(t *testing.T) {
	_, db := importedDB(t)

	code, _, _ := runCLI(t, "fill", "-db", db, "-strategy", "guess", "-target", "T")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "fill", "-db", db, "-strategy", "spline", "-target", "NOPE")
	assert.Equal(t, 1, code)

	code, _, errOut := runCLI(t, "fill", "-db", db, "-strategy", "spline")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "-target flag is required")
}

func TestEmptyDatabaseIsRejected(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	code, _, _ := runCLI(t, "gaps", "-db", db)
	assert.Equal(t, 1, code)
}

func TestUsageAndVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "mocap "))

	code, _, errOut := runCLI(t, "bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: bogus")

	code, _, errOut = runCLI(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage: mocap")

	code, out, _ = runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "rigid-gap")
}
