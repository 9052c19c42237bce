package gapfill

import (
	"sort"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// RecoverRelative rebuilds the target from a local frame spanned by three
// cluster markers. cluster[0] is the frame origin, cluster[1] sets the x
// axis and cluster[2] the xy plane.
//
// On frames where the target and the cluster are valid the target is
// expressed in the local frame. Each missing frame takes the offset
// interpolated linearly between the nearest known frames either side, or
// the nearest known offset when it lies outside them.
func (e *Engine) RecoverRelative(target string, clusterNames [3]string) (Result, error) {
	j, err := e.start(StrategyRelative, target, clusterNames[:])
	if err != nil {
		return Result{}, err
	}
	if res, done := j.precheck(); done {
		return res, nil
	}
	cl, err := j.loadCluster(clusterNames[:])
	if err != nil {
		return Result{}, err
	}
	common, err := trajectory.JointMask(cl.mask, j.mask)
	if err != nil {
		return Result{}, err
	}
	known := trajectory.Frames(common)
	if len(known) == 0 {
		return j.skip(NoCommonValid), nil
	}
	todo := j.candidates(cl.mask)
	if len(todo) == 0 {
		return j.skip(ClusterNotHelpful), nil
	}

	frames, err := geom.OrthonormalFrames(cl.pos[0], cl.pos[1], cl.pos[2])
	if err != nil {
		return Result{}, err
	}
	target0 := j.traj.Positions()
	offsets := make([]geom.Vec3, len(known))
	for i, fr := range known {
		offsets[i] = frames[fr].Transpose().MulVec(target0[fr].Sub(cl.pos[0][fr]))
	}

	for _, fr := range todo {
		var off geom.Vec3
		idx := sort.SearchInts(known, fr)
		switch {
		case idx == 0:
			off = offsets[0]
		case idx >= len(known):
			off = offsets[len(known)-1]
		default:
			fr0, fr1 := known[idx-1], known[idx]
			t := float64(fr-fr0) / float64(fr1-fr0)
			off = geom.Lerp(offsets[idx-1], offsets[idx], t)
		}
		j.fill(fr, cl.pos[0][fr].Add(frames[fr].MulVec(off)))
	}
	return j.commit()
}
