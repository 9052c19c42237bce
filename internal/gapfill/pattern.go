package gapfill

import (
	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// searchSpan is the number of frames searched on each side of a gap.
func searchSpan(g trajectory.Gap, offset int) int {
	return (g.Len()+1)/2 + offset
}

// windowFrames returns the frames of mask that are true within span frames
// before and after g.
func windowFrames(mask []bool, g trajectory.Gap, span int) []int {
	var out []int
	for i := g.Start - span; i < g.Start; i++ {
		if i >= 0 && mask[i] {
			out = append(out, i)
		}
	}
	for i := g.End + 1; i <= g.End+span; i++ {
		if i < len(mask) && mask[i] {
			out = append(out, i)
		}
	}
	return out
}

// FillPattern fills internal gaps using a donor marker as a proxy for the
// target's motion. The target-to-donor offset is interpolated linearly
// between the jointly valid frames bracketing each missing frame and added
// to the donor's measured position there.
//
// A gap is skipped when the donor is missing anywhere inside it or when its
// search window holds fewer than PatternMinNeededFrames jointly valid
// frames.
func (e *Engine) FillPattern(target, donor string) (Result, error) {
	j, err := e.start(StrategyPattern, target, []string{donor})
	if err != nil {
		return Result{}, err
	}
	if res, done := j.precheck(); done {
		return res, nil
	}
	dt, err := e.markers.MarkerTrajectory(donor, nil)
	if err != nil {
		return Result{}, err
	}
	if dt.ValidCount() == 0 {
		return j.skip(NoValidDonor), nil
	}
	dmask := dt.Mask()
	both, err := trajectory.JointMask(j.mask, dmask)
	if err != nil {
		return Result{}, err
	}
	known := trajectory.Frames(both)
	if len(known) == 0 {
		return j.skip(NoCommonValid), nil
	}

	tpos := j.traj.Positions()
	dpos := dt.Positions()
	for _, g := range trajectory.FindGaps(j.mask) {
		if !validBetween(dmask, g.Start, g.End) {
			if e.opts.Log {
				monitoring.Logf("pattern fill of %s: gap %d-%d skipped, donor %s missing", target, g.Start, g.End, donor)
			}
			continue
		}
		span := searchSpan(g, e.opts.SearchSpanOffset)
		if n := len(windowFrames(both, g, span)); n < e.opts.PatternMinNeededFrames {
			if e.opts.Log {
				monitoring.Logf("pattern fill of %s: gap %d-%d skipped, %d common frames within %d", target, g.Start, g.End, n, span)
			}
			continue
		}
		for fr := g.Start; fr <= g.End; fr++ {
			fr0, fr1, ok := bracket(known, fr)
			if !ok || !validBetween(dmask, fr0, fr1) {
				continue
			}
			t := float64(fr-fr0) / float64(fr1-fr0)
			vt := geom.Lerp(tpos[fr0], tpos[fr1], t)
			vd := geom.Lerp(dpos[fr0], dpos[fr1], t)
			j.fill(fr, vt.Sub(vd).Add(dpos[fr]))
		}
	}
	return j.commit()
}
