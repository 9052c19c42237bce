package kinetics

import (
	"fmt"
	"math"

	"github.com/banshee-data/mocap.report/internal/filter"
	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/session"
)

// Options tune the kinetics pipeline.
type Options struct {
	// Threshold is the contact threshold on |Fz|. Samples at or below it
	// are treated as no contact and their local forces and moments zeroed.
	Threshold float64
	// FilterCutoffsHz low-passes the scaled channels before conversion.
	// One value applies to every channel, otherwise one per channel in
	// wiring order; a non-positive entry leaves that channel unfiltered.
	FilterCutoffsHz []float64
	FilterOrder     int
	// COPNaNToNum reports the COP of no-contact samples as zero instead of
	// NaN.
	COPNaNToNum bool
	// StrictChannelRoles rejects plates whose channel labels do not match
	// the roles their type expects. Otherwise mismatches are only logged.
	StrictChannelRoles bool
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{FilterOrder: 2, COPNaNToNum: true}
}

// View is one coordinate-frame rendition of a plate's output.
type View struct {
	Force      []geom.Vec3
	Moment     []geom.Vec3
	COP        []geom.Vec3
	FreeMoment []geom.Vec3
}

func newView(n int) View {
	return View{
		Force:      make([]geom.Vec3, n),
		Moment:     make([]geom.Vec3, n),
		COP:        make([]geom.Vec3, n),
		FreeMoment: make([]geom.Vec3, n),
	}
}

// PlateOutput is the derived kinetics of one plate, sampled at the analog
// rate.
type PlateOutput struct {
	Index    int
	Type     int
	Rate     float64
	Origin   Origin
	Geometry Surface
	// Skipped marks no-contact samples.
	Skipped []bool
	// Sensor has moments about the sensor origin and the COP relative to
	// it, in plate axes.
	Sensor View
	// Surface has moments about the surface centre and the COP on the
	// surface, in plate axes.
	Surface View
	// Lab has everything rotated into lab axes, with the COP in lab
	// coordinates and moments about the surface centre.
	Lab View
}

// Len returns the number of samples.
func (p PlateOutput) Len() int { return len(p.Skipped) }

// ComputeAll runs Compute for every plate of the session.
func ComputeAll(a session.Analog, opts Options) ([]PlateOutput, error) {
	out := make([]PlateOutput, 0, a.PlateCount())
	for i := 0; i < a.PlateCount(); i++ {
		p, err := Compute(a, i, opts)
		if err != nil {
			return nil, fmt.Errorf("force plate %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Compute derives forces, moments and COP for one plate. It never modifies
// the session.
func Compute(a session.Analog, index int, opts Options) (PlateOutput, error) {
	geo, err := a.PlateGeometry(index)
	if err != nil {
		return PlateOutput{}, err
	}
	model, err := ModelFor(geo)
	if err != nil {
		return PlateOutput{}, err
	}
	ch, err := loadChannels(a, geo, model, opts)
	if err != nil {
		return PlateOutput{}, err
	}

	origin := NormaliseOrigin(geo.Type, geo.Origin)
	surf := SurfaceFromCorners(geo.Corners)
	force, moment := model.ForceMoment(ch, origin)

	n := len(force)
	out := PlateOutput{
		Index:    index,
		Type:     geo.Type,
		Rate:     session.AnalogRate(a),
		Origin:   origin,
		Geometry: surf,
		Skipped:  make([]bool, n),
		Sensor:   newView(n),
		Surface:  newView(n),
		Lab:      newView(n),
	}

	o := origin.Offset
	for i := 0; i < n; i++ {
		f, m := force[i], moment[i]
		if math.Abs(f[2]) <= opts.Threshold {
			out.Skipped[i] = true
			f, m = geom.Vec3{}, geom.Vec3{}
		}

		cop := solveCOP(f, m, o, surf, out.Skipped[i], opts.COPNaNToNum)
		// COP relative to the sensor origin, in plate axes.
		rel := geom.Vec3{cop[0] - o[0], cop[1] - o[1], -o[2]}
		if out.Skipped[i] {
			rel = cop
		}
		tz := m[2] - rel[0]*f[1] + rel[1]*f[0]
		free := geom.Vec3{0, 0, tz}
		mc := m.Add(o.Cross(f))

		out.Sensor.Force[i] = f
		out.Sensor.Moment[i] = m
		out.Sensor.COP[i] = rel
		out.Sensor.FreeMoment[i] = free

		out.Surface.Force[i] = f
		out.Surface.Moment[i] = mc
		out.Surface.COP[i] = cop
		out.Surface.FreeMoment[i] = free

		r := surf.Rotation
		out.Lab.Force[i] = r.MulVec(f)
		out.Lab.Moment[i] = r.MulVec(mc)
		out.Lab.COP[i] = surf.ToLab(cop)
		out.Lab.FreeMoment[i] = r.MulVec(free)
	}
	return out, nil
}

// solveCOP returns the centre of pressure on the surface (z = 0), clipped
// to the plate edges. No-contact samples give NaN, or zero when nanToNum is
// set.
func solveCOP(f, m, o geom.Vec3, surf Surface, skipped, nanToNum bool) geom.Vec3 {
	if skipped {
		if nanToNum {
			return geom.Vec3{}
		}
		return geom.Vec3{math.NaN(), math.NaN(), 0}
	}
	x := (-m[1]+(-o[2])*f[0])/f[2] + o[0]
	y := (m[0]+(-o[2])*f[1])/f[2] + o[1]
	return geom.Vec3{
		clip(x, surf.LenX/2),
		clip(y, surf.LenY/2),
		0,
	}
}

func clip(v, half float64) float64 {
	return math.Max(-half, math.Min(half, v))
}

// loadChannels fetches, checks and optionally filters the plate channels in
// wiring order.
func loadChannels(a session.Analog, geo session.PlateGeometry, model PlateModel, opts Options) ([][]float64, error) {
	roles := model.ChannelRoles()
	cutoffs := opts.FilterCutoffsHz
	if len(cutoffs) > 1 && len(cutoffs) != len(roles) {
		return nil, mocaperr.Dimension("filter cut-off frequencies", len(cutoffs), len(roles))
	}
	rate := session.AnalogRate(a)

	out := make([][]float64, len(roles))
	for k, idx := range geo.Channels {
		info, err := a.ChannelInfo(idx)
		if err != nil {
			return nil, err
		}
		if !roleMatchesLabel(roles[k], info.Label) {
			if opts.StrictChannelRoles {
				return nil, mocaperr.Unsupported(fmt.Sprintf("channel %d for %s", idx, roles[k]), info.Label)
			}
			monitoring.Logf("force plate type %d: channel %d labelled %q is wired as %s", geo.Type, idx, info.Label, roles[k])
		}
		x, err := a.ChannelWaveform(idx, nil, true)
		if err != nil {
			return nil, err
		}
		if k > 0 && len(x) != len(out[0]) {
			return nil, mocaperr.Dimension(fmt.Sprintf("channel %d samples", idx), len(x), len(out[0]))
		}
		if c := cutoffFor(cutoffs, k); c > 0 {
			x, err = filter.LowPassSpec(opts.FilterOrder, c).Apply(x, rate)
			if err != nil {
				return nil, fmt.Errorf("filtering channel %d: %w", idx, err)
			}
		}
		out[k] = x
	}
	return out, nil
}

func cutoffFor(cutoffs []float64, k int) float64 {
	switch len(cutoffs) {
	case 0:
		return 0
	case 1:
		return cutoffs[0]
	}
	return cutoffs[k]
}
