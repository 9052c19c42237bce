// Package gapfill repairs missing frames of marker trajectories.
//
// Five strategies are available. Three rebuild the target from a cluster of
// markers assumed to move rigidly with it (RecoverRelative,
// RecoverRigidBody, FillRigidBody), one transports a single donor marker's
// motion (FillPattern) and one interpolates the target alone (FillSpline).
//
// Every strategy reads its inputs from a session.Markers, works on local
// copies and writes the target back at most once per call. Filled frames
// carry a residual of 0. A strategy that finds nothing to do is not an
// error: it returns a Result with Updated false and a SkipReason.
package gapfill

import (
	"fmt"
	"time"

	"github.com/banshee-data/mocap.report/internal/filter"
	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/session"
	"github.com/banshee-data/mocap.report/internal/timeutil"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// Strategy names a fill algorithm.
type Strategy string

const (
	StrategyRelative  Strategy = "relative"
	StrategyRigidBody Strategy = "rigid-body"
	StrategyRigidGap  Strategy = "rigid-gap"
	StrategyPattern   Strategy = "pattern"
	StrategySpline    Strategy = "spline"
)

// Strategies lists every strategy in a stable order.
var Strategies = []Strategy{StrategyRelative, StrategyRigidBody, StrategyRigidGap, StrategyPattern, StrategySpline}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", mocaperr.Unsupported("fill strategy", s)
}

// SkipReason explains why a strategy left the target untouched.
type SkipReason int

const (
	NotSkipped SkipReason = iota
	NoValidTarget
	AllTargetValid
	NoCommonValid
	ClusterNotHelpful
	NoValidDonor
	NothingFilled
)

func (r SkipReason) String() string {
	switch r {
	case NotSkipped:
		return "not skipped"
	case NoValidTarget:
		return "no valid target marker frame"
	case AllTargetValid:
		return "all target marker frames valid"
	case NoCommonValid:
		return "no common valid frame among markers"
	case ClusterNotHelpful:
		return "cluster markers not helpful"
	case NoValidDonor:
		return "no valid donor marker frame"
	case NothingFilled:
		return "no gap could be filled"
	default:
		return fmt.Sprintf("skip reason %d", int(r))
	}
}

// Result is the outcome of one fill call.
type Result struct {
	Strategy Strategy
	Target   string
	// Updated is true when at least one frame was filled and written back.
	Updated bool
	// ValidFrames is the number of valid target frames after the call.
	ValidFrames int
	// Filled lists the recovered frame indices, relative to the first frame.
	Filled []int
	Reason SkipReason
}

// Err returns an InsufficientDataError describing a skipped call, or nil.
func (r Result) Err() error {
	if r.Updated || r.Reason == NotSkipped {
		return nil
	}
	return &mocaperr.InsufficientDataError{Subject: r.Target, Reason: r.Reason.String()}
}

// Options tune the strategies.
type Options struct {
	// InterpDegree is the spline degree used by FillSpline (1 or 3).
	InterpDegree int
	// SearchSpanOffset is added to half the gap length to size the search
	// window either side of a gap (FillSpline, FillPattern).
	SearchSpanOffset int
	// MinNeededFrames is the fewest valid frames FillSpline needs in a
	// gap's search window.
	MinNeededFrames int
	// PatternMinNeededFrames is the fewest jointly valid target and donor
	// frames FillPattern needs in a gap's search window.
	PatternMinNeededFrames int
	// FillBoundaryGaps lets RecoverRelative and RecoverRigidBody
	// extrapolate into runs that touch the first or last frame.
	FillBoundaryGaps bool
	// Smoothing, when set, low-passes every valid run of the target that
	// contains a filled frame.
	Smoothing *filter.Spec
	// Log writes skip reasons and completion through monitoring.Logf.
	Log bool
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		InterpDegree:           3,
		SearchSpanOffset:       5,
		MinNeededFrames:        10,
		PatternMinNeededFrames: 2,
	}
}

// FillRun is the audit record of one fill call.
type FillRun struct {
	Target      string
	Strategy    Strategy
	Support     []string
	Updated     bool
	ValidFrames int
	Filled      int
	Reason      string
	At          time.Time
}

// RunRecorder stores FillRun records.
type RunRecorder interface {
	RecordFillRun(run FillRun) error
}

// Engine runs fill strategies against a marker session.
type Engine struct {
	markers  session.Markers
	opts     Options
	recorder RunRecorder
	clock    timeutil.Clock
}

// NewEngine returns an engine bound to markers.
func NewEngine(markers session.Markers, opts Options) *Engine {
	return &Engine{markers: markers, opts: opts, clock: timeutil.RealClock{}}
}

// WithRecorder makes the engine record every call.
func (e *Engine) WithRecorder(r RunRecorder) *Engine {
	e.recorder = r
	return e
}

// WithClock sets the clock used to timestamp recorded runs.
func (e *Engine) WithClock(c timeutil.Clock) *Engine {
	e.clock = c
	return e
}

// Options returns the engine's tuning.
func (e *Engine) Options() Options { return e.opts }

// Request names a strategy and its markers for Apply.
type Request struct {
	Strategy Strategy
	Target   string
	// Support holds the cluster markers, or the donor for StrategyPattern.
	Support []string
}

// Apply dispatches a request to the matching strategy.
func (e *Engine) Apply(req Request) (Result, error) {
	switch req.Strategy {
	case StrategyRelative:
		if len(req.Support) != 3 {
			return Result{}, mocaperr.Dimension("relative cluster markers", len(req.Support), 3)
		}
		return e.RecoverRelative(req.Target, [3]string{req.Support[0], req.Support[1], req.Support[2]})
	case StrategyRigidBody:
		return e.RecoverRigidBody(req.Target, req.Support)
	case StrategyRigidGap:
		return e.FillRigidBody(req.Target, req.Support)
	case StrategyPattern:
		if len(req.Support) != 1 {
			return Result{}, mocaperr.Dimension("donor markers", len(req.Support), 1)
		}
		return e.FillPattern(req.Target, req.Support[0])
	case StrategySpline:
		return e.FillSpline(req.Target)
	}
	return Result{}, mocaperr.Unsupported("fill strategy", string(req.Strategy))
}

// job is the working state of one fill call.
type job struct {
	e        *Engine
	strategy Strategy
	target   string
	support  []string
	traj     trajectory.Trajectory
	mask     []bool
	filled   []int
}

func (e *Engine) start(s Strategy, target string, support []string) (*job, error) {
	traj, err := e.markers.MarkerTrajectory(target, nil)
	if err != nil {
		return nil, err
	}
	if e.opts.Log {
		monitoring.Logf("Start %s fill of %s", s, target)
	}
	return &job{
		e:        e,
		strategy: s,
		target:   target,
		support:  support,
		traj:     traj,
		mask:     traj.Mask(),
	}, nil
}

// precheck applies the rules shared by every strategy. done is true when
// the returned result is final.
func (j *job) precheck() (res Result, done bool) {
	switch n := j.traj.ValidCount(); {
	case n == 0:
		return j.skip(NoValidTarget), true
	case n == len(j.traj):
		return j.skip(AllTargetValid), true
	}
	return Result{}, false
}

func (j *job) result() Result {
	return Result{
		Strategy:    j.strategy,
		Target:      j.target,
		ValidFrames: j.traj.ValidCount(),
	}
}

func (j *job) skip(reason SkipReason) Result {
	res := j.result()
	res.Reason = reason
	if j.e.opts.Log {
		monitoring.Logf("%s fill of %s skipped: %s", j.strategy, j.target, reason)
	}
	j.record(res)
	return res
}

// fill stores a recovered position. Frames are expected in ascending order.
func (j *job) fill(frame int, p geom.Vec3) {
	j.traj[frame] = trajectory.Recovered(p)
	j.filled = append(j.filled, frame)
}

// commit smooths and writes the target back, or reports NothingFilled.
func (j *job) commit() (Result, error) {
	if len(j.filled) == 0 {
		return j.skip(NothingFilled), nil
	}
	if j.e.opts.Smoothing != nil {
		if err := j.smooth(*j.e.opts.Smoothing); err != nil {
			return Result{}, err
		}
	}
	first, _ := j.e.markers.FrameBounds()
	if err := j.e.markers.SetMarkerTrajectory(j.target, j.traj, first); err != nil {
		return Result{}, fmt.Errorf("failed to write %s: %w", j.target, err)
	}
	res := j.result()
	res.Updated = true
	res.Filled = j.filled
	if j.e.opts.Log {
		monitoring.Logf("%s fill of %s finished: %d frames filled, %d valid", j.strategy, j.target, len(j.filled), res.ValidFrames)
	}
	j.record(res)
	return res, nil
}

func (j *job) record(res Result) {
	if j.e.recorder == nil {
		return
	}
	run := FillRun{
		Target:      j.target,
		Strategy:    j.strategy,
		Support:     j.support,
		Updated:     res.Updated,
		ValidFrames: res.ValidFrames,
		Filled:      len(res.Filled),
		At:          j.e.clock.Now(),
	}
	if res.Reason != NotSkipped {
		run.Reason = res.Reason.String()
	}
	if err := j.e.recorder.RecordFillRun(run); err != nil {
		monitoring.Logf("failed to record %s fill of %s: %v", j.strategy, j.target, err)
	}
}

// candidates returns the frames where supportMask is valid and the target
// is missing. Unless boundary gaps are enabled only frames inside internal
// gaps qualify.
func (j *job) candidates(supportMask []bool) []int {
	allowed := trajectory.InternalGapMask(j.mask)
	var out []int
	for i, ok := range supportMask {
		if !ok || j.mask[i] {
			continue
		}
		if !j.e.opts.FillBoundaryGaps && !allowed[i] {
			continue
		}
		out = append(out, i)
	}
	return out
}

// cluster holds the positions of supporting markers and their joint mask.
type cluster struct {
	names []string
	pos   [][]geom.Vec3
	mask  []bool
}

func (j *job) loadCluster(names []string) (*cluster, error) {
	c := &cluster{names: names}
	masks := make([][]bool, 0, len(names))
	for _, name := range names {
		t, err := j.e.markers.MarkerTrajectory(name, nil)
		if err != nil {
			return nil, err
		}
		if len(t) != len(j.traj) {
			return nil, mocaperr.Dimension(name+" frames", len(t), len(j.traj))
		}
		c.pos = append(c.pos, t.Positions())
		masks = append(masks, t.Mask())
	}
	mask, err := trajectory.JointMask(masks...)
	if err != nil {
		return nil, err
	}
	c.mask = mask
	return c, nil
}

// at returns the cluster's points at frame.
func (c *cluster) at(frame int) []geom.Vec3 {
	out := make([]geom.Vec3, len(c.pos))
	for i, p := range c.pos {
		out[i] = p[frame]
	}
	return out
}

// validBetween reports whether mask is true on every frame of [lo, hi].
func validBetween(mask []bool, lo, hi int) bool {
	for i := lo; i <= hi; i++ {
		if !mask[i] {
			return false
		}
	}
	return true
}

// smooth low-passes each valid run containing a filled frame. Runs too short
// for the filter are left alone.
func (j *job) smooth(spec filter.Spec) error {
	rate := j.e.markers.FrameRate()
	filled := make(map[int]bool, len(j.filled))
	for _, f := range j.filled {
		filled[f] = true
	}
	for _, run := range trajectory.ValidRuns(j.traj.Mask()) {
		touched := false
		for i := run.Start; i <= run.End && !touched; i++ {
			touched = filled[i]
		}
		if !touched || run.Len() < spec.MinSamples() {
			continue
		}
		var axes [3][]float64
		for k := range axes {
			axes[k] = make([]float64, run.Len())
		}
		for i := run.Start; i <= run.End; i++ {
			p, _ := j.traj[i].Position()
			for k := 0; k < 3; k++ {
				axes[k][i-run.Start] = p[k]
			}
		}
		for k := range axes {
			out, err := spec.Apply(axes[k], rate)
			if err != nil {
				return fmt.Errorf("smoothing %s: %w", j.target, err)
			}
			axes[k] = out
		}
		for i := run.Start; i <= run.End; i++ {
			p := geom.Vec3{axes[0][i-run.Start], axes[1][i-run.Start], axes[2][i-run.Start]}
			j.traj[i] = trajectory.Measured(p, j.traj[i].Residual())
		}
	}
	return nil
}
