package gapfill

import (
	"sort"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// RecoverRigidBody rebuilds the target by carrying its offset from the
// nearest cluster marker along with the cluster's rotation.
//
// Cluster markers are ranked by mean distance to the target over the frames
// where both are valid, and the nearest three define the local frame. For a
// missing frame the target offset at each bracketing known frame is rotated
// by the change in cluster orientation and the two estimates are blended by
// frame distance. Outside the known range a single bracket is used.
func (e *Engine) RecoverRigidBody(target string, clusterNames []string) (Result, error) {
	if len(clusterNames) < 3 {
		return Result{}, mocaperr.Dimension("rigid-body cluster markers", len(clusterNames), 3)
	}
	j, err := e.start(StrategyRigidBody, target, clusterNames)
	if err != nil {
		return Result{}, err
	}
	if res, done := j.precheck(); done {
		return res, nil
	}
	cl, err := j.loadCluster(clusterNames)
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

	target0 := j.traj.Positions()
	order := rankByDistance(cl.pos, target0, known)
	p0, p1, p2 := cl.pos[order[0]], cl.pos[order[1]], cl.pos[order[2]]
	frames, err := geom.OrthonormalFrames(p0, p1, p2)
	if err != nil {
		return Result{}, err
	}

	// transported carries the target offset at known frame kf into frame fr.
	transported := func(kf, fr int) geom.Vec3 {
		delta := frames[fr].Mul(frames[kf].Transpose())
		return delta.MulVec(target0[kf].Sub(p0[kf]))
	}

	for _, fr := range todo {
		var v geom.Vec3
		idx := sort.SearchInts(known, fr)
		switch {
		case idx == 0:
			v = transported(known[0], fr)
		case idx >= len(known):
			v = transported(known[len(known)-1], fr)
		default:
			fr0, fr1 := known[idx-1], known[idx]
			t := float64(fr-fr0) / float64(fr1-fr0)
			v = geom.Lerp(transported(fr0, fr), transported(fr1, fr), t)
		}
		j.fill(fr, p0[fr].Add(v))
	}
	return j.commit()
}

// rankByDistance orders cluster members by their mean distance to the
// target over frames. Ties keep the caller's order.
func rankByDistance(members [][]geom.Vec3, target []geom.Vec3, frames []int) []int {
	dist := make([]float64, len(members))
	for i, m := range members {
		sum := 0.0
		for _, fr := range frames {
			sum += m[fr].Sub(target[fr]).Norm()
		}
		dist[i] = sum / float64(len(frames))
	}
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })
	return order
}

// bracket returns the known frames either side of fr. Frames before the
// first or after the last known frame get the first or last pair, in which
// case ok is false because fr is not strictly inside.
func bracket(known []int, fr int) (fr0, fr1 int, ok bool) {
	if len(known) < 2 {
		return 0, 0, false
	}
	idx := sort.SearchInts(known, fr)
	switch {
	case idx == 0:
		fr0, fr1 = known[0], known[1]
	case idx >= len(known):
		fr0, fr1 = known[len(known)-2], known[len(known)-1]
	default:
		fr0, fr1 = known[idx-1], known[idx]
	}
	return fr0, fr1, fr > fr0 && fr < fr1
}

// FillRigidBody fills internal gaps by rigid-body interpolation. For each
// missing frame fr bracketed by known frames fr0 and fr1 the whole cluster
// must be valid across [fr0, fr1]. The cluster is fitted from fr0 to fr and
// from fr1 to fr, the fits carry the target's known positions forward and
// back, and the two estimates are blended by frame distance.
func (e *Engine) FillRigidBody(target string, clusterNames []string) (Result, error) {
	if len(clusterNames) < 3 {
		return Result{}, mocaperr.Dimension("rigid-body cluster markers", len(clusterNames), 3)
	}
	j, err := e.start(StrategyRigidGap, target, clusterNames)
	if err != nil {
		return Result{}, err
	}
	if res, done := j.precheck(); done {
		return res, nil
	}
	cl, err := j.loadCluster(clusterNames)
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

	target0 := j.traj.Positions()
	for _, fr := range todo {
		fr0, fr1, ok := bracket(known, fr)
		if !ok || !validBetween(cl.mask, fr0, fr1) {
			continue
		}
		now := cl.at(fr)
		fit0, err := geom.RigidFit(cl.at(fr0), now)
		if err != nil {
			return Result{}, err
		}
		fit1, err := geom.RigidFit(cl.at(fr1), now)
		if err != nil {
			return Result{}, err
		}
		est0 := fit0.Apply(target0[fr0])
		est1 := fit1.Apply(target0[fr1])
		t := float64(fr-fr0) / float64(fr1-fr0)
		j.fill(fr, geom.Lerp(est0, est1, t))
	}
	return j.commit()
}
