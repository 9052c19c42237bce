package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/mocap.report/internal/fsutil"
	"github.com/banshee-data/mocap.report/internal/kinetics"
)

var axisColours = []color.Color{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
}

// PlotPlate writes a force time series and a COP path plot of one plate
// into dir as PNG files and returns their paths.
func PlotPlate(fsys fsutil.FileSystem, dir string, out kinetics.PlateOutput) ([]string, error) {
	pForce := plot.New()
	pForce.Title.Text = fmt.Sprintf("Force plate %d (type %d)", out.Index, out.Type)
	pForce.X.Label.Text = "Time (s)"
	pForce.Y.Label.Text = "Force (N)"
	for axis, name := range []string{"Fx", "Fy", "Fz"} {
		pts := make(plotter.XYs, 0, out.Len())
		for i, f := range out.Lab.Force {
			pts = append(pts, plotter.XY{X: float64(i) / out.Rate, Y: f[axis]})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s line: %w", name, err)
		}
		line.Color = axisColours[axis]
		line.Width = vg.Points(1)
		pForce.Add(line)
		pForce.Legend.Add(name, line)
	}

	pCOP := plot.New()
	pCOP.Title.Text = fmt.Sprintf("Force plate %d centre of pressure", out.Index)
	pCOP.X.Label.Text = "Lab X"
	pCOP.Y.Label.Text = "Lab Y"
	pts := make(plotter.XYs, 0, out.Len())
	for i, c := range out.Lab.COP {
		if out.Skipped[i] || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			continue
		}
		pts = append(pts, plotter.XY{X: c[0], Y: c[1]})
	}
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build COP scatter: %w", err)
		}
		sc.GlyphStyle.Radius = vg.Points(1)
		pCOP.Add(sc)
	}
	pCOP.Add(plotter.NewGrid())

	var paths []string
	for _, p := range []struct {
		plot *plot.Plot
		name string
	}{
		{pForce, fmt.Sprintf("plate_%02d_force.png", out.Index)},
		{pCOP, fmt.Sprintf("plate_%02d_cop.png", out.Index)},
	} {
		path, err := savePlot(fsys, p.plot, dir, p.name)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func savePlot(fsys fsutil.FileSystem, p *plot.Plot, dir, name string) (string, error) {
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	f, path, err := fsutil.CreateIn(fsys, dir, name)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		fsys.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
