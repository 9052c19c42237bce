// Package filter implements zero-phase Butterworth filtering for analog
// channels and marker coordinates.
//
// Filters are designed in zero/pole/gain form from the analog prototype,
// moved to the requested band and mapped to the z-plane with the bilinear
// transform, then run forwards and backwards (FiltFilt) so the output has no
// phase lag.
package filter

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

// Kind selects the band a filter passes.
type Kind int

const (
	LowPass Kind = iota
	HighPass
	BandPass
	BandStop
)

func (k Kind) String() string {
	switch k {
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	case BandPass:
		return "bandpass"
	case BandStop:
		return "bandstop"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lowpass", "low":
		return LowPass, nil
	case "highpass", "high":
		return HighPass, nil
	case "bandpass", "band":
		return BandPass, nil
	case "bandstop", "stop":
		return BandStop, nil
	}
	return 0, mocaperr.Unsupported("filter kind", s)
}

// cutoffCount is the number of critical frequencies each kind needs.
func (k Kind) cutoffCount() int {
	if k == BandPass || k == BandStop {
		return 2
	}
	return 1
}

// Butter designs a digital Butterworth filter and returns its transfer
// function coefficients (numerator b, denominator a). wn holds the critical
// frequencies as fractions of the Nyquist frequency, each in (0, 1).
func Butter(order int, wn []float64, kind Kind) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, mocaperr.Unsupported("filter order", order)
	}
	if kind < LowPass || kind > BandStop {
		return nil, nil, mocaperr.Unsupported("filter kind", int(kind))
	}
	if len(wn) != kind.cutoffCount() {
		return nil, nil, mocaperr.Dimension(kind.String()+" critical frequencies", len(wn), kind.cutoffCount())
	}
	for _, w := range wn {
		if !(w > 0 && w < 1) {
			return nil, nil, mocaperr.Unsupported("normalised critical frequency", w)
		}
	}
	if len(wn) == 2 && wn[0] >= wn[1] {
		return nil, nil, mocaperr.Unsupported("band edges", fmt.Sprintf("%g >= %g", wn[0], wn[1]))
	}

	// Pre-warp the critical frequencies for the bilinear transform at an
	// internal sample rate of 2 (so Nyquist is 1).
	const fs = 2.0
	warped := make([]float64, len(wn))
	for i, w := range wn {
		warped[i] = 2 * fs * math.Tan(math.Pi*w/fs)
	}

	z, p, k := prototype(order)
	switch kind {
	case LowPass:
		z, p, k = lowpassZPK(z, p, k, warped[0])
	case HighPass:
		z, p, k = highpassZPK(z, p, k, warped[0])
	case BandPass:
		bw := warped[1] - warped[0]
		wo := math.Sqrt(warped[0] * warped[1])
		z, p, k = bandpassZPK(z, p, k, wo, bw)
	case BandStop:
		bw := warped[1] - warped[0]
		wo := math.Sqrt(warped[0] * warped[1])
		z, p, k = bandstopZPK(z, p, k, wo, bw)
	}
	z, p, k = bilinearZPK(z, p, k, fs)

	b = realParts(poly(z))
	for i := range b {
		b[i] *= k
	}
	a = realParts(poly(p))
	return b, a, nil
}

// prototype returns the poles of an analog Butterworth low-pass filter with
// unit cut-off. It has no zeros and unit gain.
func prototype(n int) (z, p []complex128, k float64) {
	for m := -n + 1; m < n; m += 2 {
		p = append(p, -cmplx.Exp(complex(0, math.Pi*float64(m)/(2*float64(n)))))
	}
	return nil, p, 1
}

func lowpassZPK(z, p []complex128, k, wo float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	zl := scaleRoots(z, complex(wo, 0))
	pl := scaleRoots(p, complex(wo, 0))
	return zl, pl, k * math.Pow(wo, float64(degree))
}

func highpassZPK(z, p []complex128, k, wo float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	zh := invertRoots(z, complex(wo, 0))
	ph := invertRoots(p, complex(wo, 0))
	for i := 0; i < degree; i++ {
		zh = append(zh, 0)
	}
	kh := k * real(prodNeg(z)/prodNeg(p))
	return zh, ph, kh
}

func bandpassZPK(z, p []complex128, k, wo, bw float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	half := complex(bw/2, 0)
	zb := splitRoots(scaleRoots(z, half), wo)
	pb := splitRoots(scaleRoots(p, half), wo)
	for i := 0; i < degree; i++ {
		zb = append(zb, 0)
	}
	return zb, pb, k * math.Pow(bw, float64(degree))
}

func bandstopZPK(z, p []complex128, k, wo, bw float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	half := complex(bw/2, 0)
	zs := splitRoots(invertRoots(z, half), wo)
	ps := splitRoots(invertRoots(p, half), wo)
	for i := 0; i < degree; i++ {
		zs = append(zs, complex(0, wo))
	}
	for i := 0; i < degree; i++ {
		zs = append(zs, complex(0, -wo))
	}
	ks := k * real(prodNeg(z)/prodNeg(p))
	return zs, ps, ks
}

func bilinearZPK(z, p []complex128, k, fs float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	fs2 := complex(2*fs, 0)
	zz := make([]complex128, 0, len(p))
	for _, r := range z {
		zz = append(zz, (fs2+r)/(fs2-r))
	}
	pz := make([]complex128, len(p))
	for i, r := range p {
		pz[i] = (fs2 + r) / (fs2 - r)
	}
	for i := 0; i < degree; i++ {
		zz = append(zz, -1)
	}
	num, den := complex(1, 0), complex(1, 0)
	for _, r := range z {
		num *= fs2 - r
	}
	for _, r := range p {
		den *= fs2 - r
	}
	return zz, pz, k * real(num/den)
}

func scaleRoots(r []complex128, s complex128) []complex128 {
	out := make([]complex128, len(r))
	for i, v := range r {
		out[i] = v * s
	}
	return out
}

func invertRoots(r []complex128, s complex128) []complex128 {
	out := make([]complex128, len(r))
	for i, v := range r {
		out[i] = s / v
	}
	return out
}

// splitRoots maps each root r to the pair r ± sqrt(r² − wo²).
func splitRoots(r []complex128, wo float64) []complex128 {
	out := make([]complex128, 0, 2*len(r))
	w2 := complex(wo*wo, 0)
	for _, v := range r {
		out = append(out, v+cmplx.Sqrt(v*v-w2))
	}
	for _, v := range r {
		out = append(out, v-cmplx.Sqrt(v*v-w2))
	}
	return out
}

func prodNeg(r []complex128) complex128 {
	out := complex(1, 0)
	for _, v := range r {
		out *= -v
	}
	return out
}

// poly expands the monic polynomial with the given roots, highest power
// first.
func poly(roots []complex128) []complex128 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		copy(next, c)
		for i := 1; i < len(next); i++ {
			next[i] -= r * c[i-1]
		}
		c = next
	}
	return c
}

func realParts(c []complex128) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}
