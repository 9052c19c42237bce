package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

const eps = 1e-9

func vecClose(t *testing.T, got, want Vec3, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("Expected %v, got %v", want, got)
			return
		}
	}
}

func matClose(t *testing.T, got, want Mat3, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(got[i][j]-want[i][j]) > tol {
				t.Errorf("Expected %v, got %v", want, got)
				return
			}
		}
	}
}

// rotZ returns a rotation of theta radians about the z axis.
func rotZ(theta float64) Mat3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

func rotX(theta float64) Mat3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func TestUnit_ZeroVectorUnchanged(t *testing.T) {
	got := Unit(Vec3{})
	if got != (Vec3{}) {
		t.Errorf("Expected zero vector, got %v", got)
	}
	if !got.IsFinite() {
		t.Errorf("Expected finite components, got %v", got)
	}
}

func TestUnit_Normalises(t *testing.T) {
	got := Unit(Vec3{3, 0, 4})
	vecClose(t, got, Vec3{0.6, 0, 0.8}, eps)
	assert.InDelta(t, 1.0, got.Norm(), eps)
}

func TestOrthonormalFrame_AxisAligned(t *testing.T) {
	r := OrthonormalFrame(Vec3{1, 1, 1}, Vec3{3, 1, 1}, Vec3{1, 5, 1})
	matClose(t, r, Identity3(), eps)
	assert.True(t, IsProperRotation(r, RotationValidationTolerance))
}

func TestOrthonormalFrame_RightHandedForArbitraryPoints(t *testing.T) {
	r := OrthonormalFrame(Vec3{0.2, -1, 3}, Vec3{4, 2, -1}, Vec3{-2, 7, 0.5})
	assert.True(t, IsProperRotation(r, RotationValidationTolerance))
	x, y, z := r.Column(0), r.Column(1), r.Column(2)
	vecClose(t, x.Cross(y), z, 1e-12)
}

func TestOrthonormalFrame_DegenerateGivesZeroAxes(t *testing.T) {
	p := Vec3{1, 2, 3}
	r := OrthonormalFrame(p, p, p)
	for j := 0; j < 3; j++ {
		if !r.Column(j).IsFinite() {
			t.Fatalf("Expected finite columns for degenerate input, got %v", r)
		}
	}
	vecClose(t, r.Column(2), Vec3{}, 0)
}

func TestOrthonormalFrames_LengthMismatch(t *testing.T) {
	_, err := OrthonormalFrames(make([]Vec3, 3), make([]Vec3, 3), make([]Vec3, 2))
	require.Error(t, err)
	assert.True(t, mocaperr.IsInputDimension(err))
}

func samplePoints() []Vec3 {
	return []Vec3{
		{0, 0, 0},
		{100, 0, 0},
		{0, 50, 0},
		{10, 20, 30},
		{-40, 15, 8},
	}
}

func TestRigidFit_RecoversKnownTransform(t *testing.T) {
	a := samplePoints()
	rTrue := rotZ(0.7).Mul(rotX(-0.3))
	tTrue := Vec3{12, -4, 250}
	b := make([]Vec3, len(a))
	for i, p := range a {
		b[i] = rTrue.MulVec(p).Add(tTrue)
	}

	fit, err := RigidFit(a, b)
	require.NoError(t, err)

	matClose(t, fit.R, rTrue, 1e-9)
	vecClose(t, fit.T, tTrue, 1e-7)
	assert.InDelta(t, 1.0, fit.R.Det(), 1e-12)
	assert.InDelta(t, 0.0, fit.MeanResidual, 1e-9)
	require.Len(t, fit.ResidualNorms, len(a))
	for i, p := range a {
		vecClose(t, fit.Apply(p), b[i], 1e-7)
	}
}

func TestRigidFit_ReverseFitIsInverseRotation(t *testing.T) {
	a := samplePoints()
	rTrue := rotX(1.1).Mul(rotZ(-2.2))
	b := make([]Vec3, len(a))
	for i, p := range a {
		b[i] = rTrue.MulVec(p).Add(Vec3{-5, 5, 1})
	}

	fwd, err := RigidFit(a, b)
	require.NoError(t, err)
	rev, err := RigidFit(b, a)
	require.NoError(t, err)

	matClose(t, rev.R, fwd.R.Transpose(), 1e-9)
	inv := fwd.Inverse()
	vecClose(t, inv.T, rev.T, 1e-7)
}

func TestRigidFit_ReflectionIsCorrected(t *testing.T) {
	// Mirror a non-planar set through the xy plane; the best proper rotation
	// must still have det=+1.
	a := samplePoints()
	b := make([]Vec3, len(a))
	for i, p := range a {
		b[i] = Vec3{p[0], p[1], -p[2]}
	}
	fit, err := RigidFit(a, b)
	require.NoError(t, err)
	assert.True(t, IsProperRotation(fit.R, 1e-9), "expected proper rotation, det=%f", fit.R.Det())
	assert.Greater(t, fit.MeanResidual, 0.0)
}

func TestRigidFit_InputValidation(t *testing.T) {
	_, err := RigidFit(make([]Vec3, 2), make([]Vec3, 2))
	assert.True(t, mocaperr.IsInputDimension(err), "two points must be rejected")

	_, err = RigidFit(make([]Vec3, 4), make([]Vec3, 3))
	assert.True(t, mocaperr.IsInputDimension(err), "mismatched sets must be rejected")
}

func TestLerpAndCentroid(t *testing.T) {
	vecClose(t, Lerp(Vec3{0, 0, 0}, Vec3{10, 20, 30}, 0.25), Vec3{2.5, 5, 7.5}, eps)
	vecClose(t, Centroid([]Vec3{{1, 1, 1}, {3, 3, 3}}), Vec3{2, 2, 2}, eps)
	vecClose(t, Centroid(nil), Vec3{}, 0)
}
