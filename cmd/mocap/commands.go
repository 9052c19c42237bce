package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/mocap.report/internal/config"
	"github.com/banshee-data/mocap.report/internal/fsutil"
	"github.com/banshee-data/mocap.report/internal/gapfill"
	"github.com/banshee-data/mocap.report/internal/kinetics"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/report"
	"github.com/banshee-data/mocap.report/internal/session"
	"github.com/banshee-data/mocap.report/internal/store"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// requireFlag reports a missing required flag.
func requireFlag(fs *flag.FlagSet, stderr io.Writer, name, value string) error {
	if value != "" {
		return nil
	}
	fmt.Fprintf(stderr, "Error: -%s flag is required\n", name)
	fs.Usage()
	return errUsage
}

// loadConfig reads the processing config, or returns an empty one (all
// defaults) when path is empty.
func loadConfig(path string) (*config.ProcessingConfig, error) {
	if path == "" {
		return &config.ProcessingConfig{}, nil
	}
	return config.LoadProcessingConfig(path)
}

// openLoaded opens a session database that already holds a recording.
func openLoaded(path string) (*store.Store, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if s.Empty() {
		s.Close()
		return nil, mocaperr.Missing("recording", path)
	}
	return s, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func handleImport(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("import", stderr)
	dbPath := fs.String("db", "", "Session database path (required)")
	in := fs.String("in", "", "JSON recording to import (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, stderr, "db", *dbPath); err != nil {
		return err
	}
	if err := requireFlag(fs, stderr, "in", *in); err != nil {
		return err
	}

	rec, err := session.LoadRecording(*in)
	if err != nil {
		return err
	}
	s, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Import(rec); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %s: %d frames at %g Hz, %d markers, %d force plates\n",
		filepath.Base(*in), rec.Frames, rec.Rate, len(rec.Markers), len(rec.Plates))
	return nil
}

func handleExport(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	dbPath := fs.String("db", "", "Session database path (required)")
	out := fs.String("out", "", "Output JSON file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, stderr, "db", *dbPath); err != nil {
		return err
	}

	s, err := openLoaded(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	rec, err := s.Export()
	if err != nil {
		return err
	}
	if *out == "" {
		return rec.Write(stdout)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := rec.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func handleGaps(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("gaps", stderr)
	dbPath := fs.String("db", "", "Session database path (required)")
	marker := fs.String("marker", "", "Marker to inspect (default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, stderr, "db", *dbPath); err != nil {
		return err
	}

	s, err := openLoaded(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	names := s.MarkerNames()
	if *marker != "" {
		names = []string{*marker}
	}
	first, _ := s.FrameBounds()
	for _, name := range names {
		traj, err := s.MarkerTrajectory(name, nil)
		if err != nil {
			return err
		}
		gaps := trajectory.FindGaps(traj.Mask())
		fmt.Fprintf(stdout, "%s: %d/%d valid frames, %d gaps\n", name, traj.ValidCount(), traj.Len(), len(gaps))
		for _, g := range gaps {
			fmt.Fprintf(stdout, "  frames %d-%d (%d)\n", first+g.Start, first+g.End, g.Len())
		}
	}
	return nil
}

func handleFill(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("fill", stderr)
	dbPath := fs.String("db", "", "Session database path (required)")
	cfgPath := fs.String("config", "", "Processing config JSON (default built-in values)")
	strategyName := fs.String("strategy", "", "Fill strategy (required)")
	target := fs.String("target", "", "Marker to fill (required)")
	support := fs.String("support", "", "Comma-separated cluster markers, or the donor for pattern")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"db", *dbPath}, {"strategy", *strategyName}, {"target", *target},
	} {
		if err := requireFlag(fs, stderr, f.name, f.value); err != nil {
			return err
		}
	}

	strategy, err := gapfill.ParseStrategy(*strategyName)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	s, err := openLoaded(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	e := gapfill.NewEngine(s, cfg.FillOptions()).WithRecorder(s)
	res, err := e.Apply(gapfill.Request{Strategy: strategy, Target: *target, Support: splitList(*support)})
	if err != nil {
		return err
	}
	if !res.Updated {
		fmt.Fprintf(stdout, "%s: %s skipped (%s)\n", res.Target, res.Strategy, res.Reason)
		return nil
	}
	fmt.Fprintf(stdout, "%s: %s filled %d frames, %d of %d now valid\n",
		res.Target, res.Strategy, len(res.Filled), res.ValidFrames, session.FrameCount(s))
	return nil
}

func handleForces(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("forces", stderr)
	dbPath := fs.String("db", "", "Session database path (required)")
	cfgPath := fs.String("config", "", "Processing config JSON (default built-in values)")
	outDir := fs.String("out", ".", "Output directory")
	formats := fs.String("format", "csv", "Comma-separated outputs: csv, png, html")
	frameName := fs.String("frame", "lab", "CSV frame: sensor, surface or lab")
	copUnit := fs.String("cop-unit", "", "CSV COP length unit (default the marker unit)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, stderr, "db", *dbPath); err != nil {
		return err
	}
	frame, err := report.ParseFrame(*frameName)
	if err != nil {
		return err
	}
	want := map[string]bool{}
	for _, f := range splitList(*formats) {
		switch f {
		case "csv", "png", "html":
			want[f] = true
		default:
			fmt.Fprintf(stderr, "Error: unknown output format %q\n", f)
			return errUsage
		}
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	s, err := openLoaded(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	first, _ := s.FrameBounds()
	outs, err := kinetics.ComputeAll(s, cfg.KineticsOptions())
	if err != nil {
		return err
	}
	return writeForces(fsutil.OSFileSystem{}, *outDir, outs, want, report.CSVOptions{
		Frame:      frame,
		MarkerUnit: s.MarkerUnit(),
		COPUnit:    *copUnit,
		StartTime:  float64(first) / s.FrameRate(),
	}, stdout)
}

func writeForces(fsys fsutil.FileSystem, dir string, outs []kinetics.PlateOutput, want map[string]bool, csvOpts report.CSVOptions, stdout io.Writer) error {
	var written []string
	if want["csv"] {
		for _, out := range outs {
			w, path, err := fsutil.CreateIn(fsys, dir, fmt.Sprintf("plate_%02d.csv", out.Index))
			if err != nil {
				return err
			}
			if err := report.WriteForcesCSV(w, out, csvOpts); err != nil {
				w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			written = append(written, path)
		}
	}
	if want["png"] {
		for _, out := range outs {
			paths, err := report.PlotPlate(fsys, dir, out)
			if err != nil {
				return err
			}
			written = append(written, paths...)
		}
	}
	if want["html"] {
		w, path, err := fsutil.CreateIn(fsys, dir, "forces.html")
		if err != nil {
			return err
		}
		if err := report.RenderForcesHTML(w, outs); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		written = append(written, path)
	}
	for _, p := range written {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

func handleRuns(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("runs", stderr)
	dbPath := fs.String("db", "", "Session database path (required)")
	target := fs.String("target", "", "Only list runs for this marker")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, stderr, "db", *dbPath); err != nil {
		return err
	}

	s, err := openLoaded(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	runs, err := s.FillRuns(*target)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No fill runs recorded")
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s %s %s %s", r.At.Format(time.RFC3339), r.ID[:8], r.Target, r.Strategy)
		if len(r.Support) > 0 {
			line += " [" + strings.Join(r.Support, ",") + "]"
		}
		if r.Updated {
			line += fmt.Sprintf(": updated, %d filled, %d valid", r.Filled, r.ValidFrames)
		} else {
			line += ": skipped, " + r.Reason
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}
