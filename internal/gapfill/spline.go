package gapfill

import (
	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// newSpline returns an interpolating spline of the given degree.
func newSpline(degree int) (interp.FittablePredictor, error) {
	switch degree {
	case 1:
		return &interp.PiecewiseLinear{}, nil
	case 3:
		return &interp.NotAKnotCubic{}, nil
	}
	return nil, mocaperr.Unsupported("spline degree", degree)
}

// FillSpline fills each internal gap by fitting an interpolating spline per
// axis through the valid target frames found within the gap's search
// window. Gaps with fewer than MinNeededFrames candidates are skipped.
// Values outside the candidate range are held constant.
func (e *Engine) FillSpline(target string) (Result, error) {
	if _, err := newSpline(e.opts.InterpDegree); err != nil {
		return Result{}, err
	}
	j, err := e.start(StrategySpline, target, nil)
	if err != nil {
		return Result{}, err
	}
	if res, done := j.precheck(); done {
		return res, nil
	}

	need := e.opts.MinNeededFrames
	if need < e.opts.InterpDegree+1 {
		need = e.opts.InterpDegree + 1
	}
	pos := j.traj.Positions()
	for _, g := range trajectory.FindGaps(j.mask) {
		span := searchSpan(g, e.opts.SearchSpanOffset)
		frames := windowFrames(j.mask, g, span)
		if len(frames) < need {
			if e.opts.Log {
				monitoring.Logf("spline fill of %s: gap %d-%d skipped, %d valid frames within %d", target, g.Start, g.End, len(frames), span)
			}
			continue
		}
		xs := make([]float64, len(frames))
		for i, fr := range frames {
			xs[i] = float64(fr)
		}
		var est [3][]float64
		for k := 0; k < 3; k++ {
			ys := make([]float64, len(frames))
			for i, fr := range frames {
				ys[i] = pos[fr][k]
			}
			s, _ := newSpline(e.opts.InterpDegree)
			if err := s.Fit(xs, ys); err != nil {
				return Result{}, err
			}
			est[k] = make([]float64, g.Len())
			for i, fr := range g.Frames() {
				est[k][i] = s.Predict(clamp(float64(fr), xs[0], xs[len(xs)-1]))
			}
		}
		for i, fr := range g.Frames() {
			j.fill(fr, geom.Vec3{est[0][i], est[1][i], est[2][i]})
		}
	}
	return j.commit()
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
