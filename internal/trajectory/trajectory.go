// Package trajectory models per-frame marker data.
//
// Each frame is either Measured (a trusted position plus its fit residual)
// or Missing. The legacy residual encoding, where -1 marks a missing frame,
// is only interpreted at the session boundary by FromResiduals and produced
// again by Trajectory.Residuals.
package trajectory

import (
	"math"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

// MissingResidual is the legacy residual value marking a missing frame.
const MissingResidual = -1.0

// MissingResidualTolerance is the absolute tolerance used when matching a
// stored residual against MissingResidual. Stored residuals pass through
// lossy scaling, so exact equality is not reliable.
const MissingResidualTolerance = 1e-5

// Sample is one frame of a marker trajectory.
type Sample struct {
	pos      geom.Vec3
	residual float64
	valid    bool
}

// Measured returns a valid sample. Negative residuals are clamped to zero.
func Measured(pos geom.Vec3, residual float64) Sample {
	if residual < 0 {
		residual = 0
	}
	return Sample{pos: pos, residual: residual, valid: true}
}

// Recovered returns a valid sample produced by gap filling, which carries a
// residual of exactly zero.
func Recovered(pos geom.Vec3) Sample {
	return Sample{pos: pos, valid: true}
}

// Missing returns a sample with no trusted position.
func Missing() Sample {
	return Sample{}
}

// Valid reports whether the sample holds a trusted position.
func (s Sample) Valid() bool { return s.valid }

// Position returns the position and whether it can be trusted.
func (s Sample) Position() (geom.Vec3, bool) {
	if !s.valid {
		return geom.Vec3{}, false
	}
	return s.pos, true
}

// Residual returns the fit residual, or MissingResidual for a missing
// sample.
func (s Sample) Residual() float64 {
	if !s.valid {
		return MissingResidual
	}
	return s.residual
}

// Trajectory is an ordered sequence of frames [0, N).
type Trajectory []Sample

// FromResiduals converts the legacy positions-plus-residuals encoding.
// Frames whose residual is within MissingResidualTolerance of -1 become
// Missing, as do frames whose position is not finite.
func FromResiduals(positions []geom.Vec3, residuals []float64) (Trajectory, error) {
	if len(residuals) != len(positions) {
		return nil, mocaperr.Dimension("residual frames", len(residuals), len(positions))
	}
	t := make(Trajectory, len(positions))
	for i, p := range positions {
		r := residuals[i]
		if math.Abs(r-MissingResidual) <= MissingResidualTolerance || math.IsNaN(r) || !p.IsFinite() {
			t[i] = Missing()
			continue
		}
		t[i] = Measured(p, r)
	}
	return t, nil
}

// Len returns the frame count.
func (t Trajectory) Len() int { return len(t) }

// Clone returns an independent copy.
func (t Trajectory) Clone() Trajectory {
	out := make(Trajectory, len(t))
	copy(out, t)
	return out
}

// Mask returns the per-frame validity.
func (t Trajectory) Mask() []bool {
	m := make([]bool, len(t))
	for i, s := range t {
		m[i] = s.valid
	}
	return m
}

// ValidCount returns the number of valid frames.
func (t Trajectory) ValidCount() int {
	n := 0
	for _, s := range t {
		if s.valid {
			n++
		}
	}
	return n
}

// Positions returns the raw position array; missing frames hold the zero
// vector.
func (t Trajectory) Positions() []geom.Vec3 {
	out := make([]geom.Vec3, len(t))
	for i, s := range t {
		if s.valid {
			out[i] = s.pos
		}
	}
	return out
}

// Residuals returns the legacy residual array, -1 for missing frames.
func (t Trajectory) Residuals() []float64 {
	out := make([]float64, len(t))
	for i, s := range t {
		out[i] = s.Residual()
	}
	return out
}

// JointMask ANDs equal-length validity masks. It returns nil when no masks
// are given.
func JointMask(masks ...[]bool) ([]bool, error) {
	if len(masks) == 0 {
		return nil, nil
	}
	n := len(masks[0])
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	for _, m := range masks {
		if len(m) != n {
			return nil, mocaperr.Dimension("mask frames", len(m), n)
		}
		for i, v := range m {
			out[i] = out[i] && v
		}
	}
	return out, nil
}

// Frames returns the indices where mask is true, in ascending order.
func Frames(mask []bool) []int {
	var out []int
	for i, v := range mask {
		if v {
			out = append(out, i)
		}
	}
	return out
}
