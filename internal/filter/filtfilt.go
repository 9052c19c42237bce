package filter

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

// normalise pads b and a to a common length and divides both by a[0].
func normalise(b, a []float64) ([]float64, []float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil, errors.New("filter: empty coefficient vector")
	}
	if a[0] == 0 {
		return nil, nil, errors.New("filter: leading denominator coefficient is zero")
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	bn := make([]float64, n)
	an := make([]float64, n)
	copy(bn, b)
	copy(an, a)
	a0 := an[0]
	floats.Scale(1/a0, bn)
	floats.Scale(1/a0, an)
	return bn, an, nil
}

// LFilter runs the filter b/a over x in direct form II transposed. zi holds
// the initial delay state (length max(len(a), len(b))-1) and may be nil for
// zero state. The final state is returned alongside the output.
func LFilter(b, a, x, zi []float64) (y, zf []float64, err error) {
	bn, an, err := normalise(b, a)
	if err != nil {
		return nil, nil, err
	}
	order := len(an) - 1
	z := make([]float64, order)
	if zi != nil {
		if len(zi) != order {
			return nil, nil, mocaperr.Dimension("initial filter state", len(zi), order)
		}
		copy(z, zi)
	}

	y = make([]float64, len(x))
	for i, xi := range x {
		yi := bn[0]*xi + firstOr(z)
		for k := 0; k < order-1; k++ {
			z[k] = bn[k+1]*xi + z[k+1] - an[k+1]*yi
		}
		if order > 0 {
			z[order-1] = bn[order]*xi - an[order]*yi
		}
		y[i] = yi
	}
	return y, z, nil
}

func firstOr(z []float64) float64 {
	if len(z) == 0 {
		return 0
	}
	return z[0]
}

// LFilterZI returns the steady-state initial conditions for a unit step
// input. Scaling the result by the first sample starts the filter as if the
// signal had been constant forever.
func LFilterZI(b, a []float64) ([]float64, error) {
	bn, an, err := normalise(b, a)
	if err != nil {
		return nil, err
	}
	order := len(an) - 1
	if order == 0 {
		return []float64{}, nil
	}

	// (I - companion(a)ᵀ) zi = b[1:] - a[1:]·b[0]
	m := mat.NewDense(order, order, nil)
	for i := 0; i < order; i++ {
		m.Set(i, i, 1)
		m.Set(i, 0, m.At(i, 0)+an[i+1])
		if i > 0 {
			m.Set(i-1, i, m.At(i-1, i)-1)
		}
	}
	rhs := mat.NewVecDense(order, nil)
	for i := 0; i < order; i++ {
		rhs.SetVec(i, bn[i+1]-an[i+1]*bn[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return nil, fmt.Errorf("filter: solving initial state: %w", err)
	}
	out := make([]float64, order)
	for i := range out {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

// PadLen is the number of samples FiltFilt reflects onto each end of the
// signal for the given coefficients.
func PadLen(b, a []float64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	return 3 * n
}

// FiltFilt applies b/a forwards and then backwards, giving zero phase
// distortion. Both ends are extended by odd reflection of PadLen samples and
// the filter state is primed with LFilterZI, so the input must be longer than
// PadLen.
func FiltFilt(b, a, x []float64) ([]float64, error) {
	edge := PadLen(b, a)
	if len(x) <= edge {
		return nil, &mocaperr.InsufficientDataError{
			Subject: "filtfilt input",
			Reason:  fmt.Sprintf("%d samples, need more than %d", len(x), edge),
		}
	}
	if floats.HasNaN(x) {
		return nil, &mocaperr.InsufficientDataError{Subject: "filtfilt input", Reason: "contains NaN"}
	}

	zi, err := LFilterZI(b, a)
	if err != nil {
		return nil, err
	}
	ext := oddExtend(x, edge)

	y, _, err := LFilter(b, a, ext, scaled(zi, ext[0]))
	if err != nil {
		return nil, err
	}
	floats.Reverse(y)
	y, _, err = LFilter(b, a, y, scaled(zi, y[0]))
	if err != nil {
		return nil, err
	}
	floats.Reverse(y)

	out := make([]float64, len(x))
	copy(out, y[edge:edge+len(x)])
	return out, nil
}

// oddExtend reflects n samples about each end point.
func oddExtend(x []float64, n int) []float64 {
	last := len(x) - 1
	out := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		out = append(out, 2*x[0]-x[i])
	}
	out = append(out, x...)
	for i := 1; i <= n; i++ {
		out = append(out, 2*x[last]-x[last-i])
	}
	return out
}

func scaled(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	floats.ScaleTo(out, s, v)
	return out
}
