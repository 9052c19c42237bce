package geom

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

// RigidTransform maps a point p to R·p + T.
type RigidTransform struct {
	R Mat3
	T Vec3

	// Fit diagnostics, populated by RigidFit.
	Residuals     []Vec3    // R·Aᵢ + T − Bᵢ
	ResidualNorms []float64 // ‖Residuals[i]‖
	MeanResidual  float64
}

// Apply transforms p.
func (rt RigidTransform) Apply(p Vec3) Vec3 {
	return rt.R.MulVec(p).Add(rt.T)
}

// Inverse returns the transform mapping B back onto A. Fit diagnostics are
// not carried over.
func (rt RigidTransform) Inverse() RigidTransform {
	rInv := rt.R.Transpose()
	return RigidTransform{R: rInv, T: rInv.MulVec(rt.T).Scale(-1)}
}

// RigidFit finds the rotation R and translation T minimising
// Σ‖R·Aᵢ + T − Bᵢ‖² (Kabsch).
//
// Algorithm:
//  1. Remove the centroids of A and B
//  2. Build the 3×3 cross-covariance C = (B−B̄)ᵀ(A−Ā)
//  3. Decompose C = U·S·Vᵀ
//  4. R = U·diag(1, 1, det(U·Vᵀ))·Vᵀ, the last entry flipping a reflection
//     into a proper rotation
//  5. T = B̄ − R·Ā
//
// Both sets must contain the same number of points, at least three.
func RigidFit(a, b []Vec3) (RigidTransform, error) {
	n := len(a)
	if len(b) != n {
		return RigidTransform{}, mocaperr.Dimension("rigid fit target points", len(b), n)
	}
	if n < 3 {
		return RigidTransform{}, mocaperr.Dimension("rigid fit points", n, 3)
	}

	ac := Centroid(a)
	bc := Centroid(b)

	da := mat.NewDense(n, 3, nil)
	db := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		pa := a[i].Sub(ac)
		pb := b[i].Sub(bc)
		da.SetRow(i, pa[:])
		db.SetRow(i, pb[:])
	}

	var c mat.Dense
	c.Mul(db.T(), da)

	var svd mat.SVD
	if ok := svd.Factorize(&c, mat.SVDFull); !ok {
		return RigidTransform{}, errors.New("rigid fit: SVD factorisation failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var uvt mat.Dense
	uvt.Mul(&u, v.T())
	d := mat.NewDiagDense(3, []float64{1, 1, mat.Det(&uvt)})

	var ud, r mat.Dense
	ud.Mul(&u, d)
	r.Mul(&ud, v.T())

	var rt RigidTransform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rt.R[i][j] = r.At(i, j)
		}
	}
	rt.T = bc.Sub(rt.R.MulVec(ac))

	rt.Residuals = make([]Vec3, n)
	rt.ResidualNorms = make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		e := rt.Apply(a[i]).Sub(b[i])
		rt.Residuals[i] = e
		rt.ResidualNorms[i] = e.Norm()
		sum += rt.ResidualNorms[i]
	}
	rt.MeanResidual = sum / float64(n)

	return rt, nil
}
