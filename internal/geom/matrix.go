package geom

import (
	"math"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

// RotationValidationTolerance bounds the deviation from orthonormality and
// from det=+1 accepted by IsProperRotation.
const RotationValidationTolerance = 1e-6

// Mat3 is a row-major 3×3 matrix. Rotation matrices built by this package
// store the local axes as columns.
type Mat3 [3][3]float64

// Identity3 returns the 3×3 identity.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mat3FromColumns builds a matrix whose columns are x, y and z.
func Mat3FromColumns(x, y, z Vec3) Mat3 {
	return Mat3{
		{x[0], y[0], z[0]},
		{x[1], y[1], z[1]},
		{x[2], y[2], z[2]},
	}
}

// Column returns column j.
func (m Mat3) Column(j int) Vec3 { return Vec3{m[0][j], m[1][j], m[2][j]} }

// MulVec returns m·v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Mul returns m·n.
func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}

// Transpose returns mᵀ. For a rotation this is its inverse.
func (m Mat3) Transpose() Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Det returns the determinant of m.
func (m Mat3) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// IsProperRotation reports whether m is orthonormal with det ≈ +1 (a
// rotation rather than a reflection).
func IsProperRotation(m Mat3, tol float64) bool {
	if math.Abs(m.Det()-1) > tol {
		return false
	}
	p := m.Mul(m.Transpose())
	id := Identity3()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(p[i][j]-id[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// OrthonormalFrame builds a right-handed frame from three points: x points
// from p0 to p1, z is normal to the plane containing the points and y
// completes the frame. The returned matrix holds x, y and z as columns.
// Degenerate input (coincident or collinear points) yields zero columns,
// which the caller must mask out.
func OrthonormalFrame(p0, p1, p2 Vec3) Mat3 {
	x := Unit(p1.Sub(p0))
	v := Unit(p2.Sub(p0))
	z := Unit(x.Cross(v))
	y := z.Cross(x)
	return Mat3FromColumns(x, y, z)
}

// OrthonormalFrames applies OrthonormalFrame per frame across three
// equal-length trajectories.
func OrthonormalFrames(p0, p1, p2 []Vec3) ([]Mat3, error) {
	n := len(p0)
	if len(p1) != n {
		return nil, mocaperr.Dimension("frame definition marker 2 frames", len(p1), n)
	}
	if len(p2) != n {
		return nil, mocaperr.Dimension("frame definition marker 3 frames", len(p2), n)
	}
	out := make([]Mat3, n)
	for i := range out {
		out[i] = OrthonormalFrame(p0[i], p1[i], p2[i])
	}
	return out, nil
}
