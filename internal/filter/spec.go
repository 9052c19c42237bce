package filter

import (
	"fmt"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

// Spec describes a Butterworth filter in physical units. Cutoffs are in Hz;
// band filters need two.
type Spec struct {
	Order   int
	Cutoffs []float64
	Kind    Kind
}

// LowPassSpec is shorthand for a single-cutoff low-pass Spec.
func LowPassSpec(order int, cutoffHz float64) Spec {
	return Spec{Order: order, Cutoffs: []float64{cutoffHz}, Kind: LowPass}
}

// Design returns the transfer function coefficients for sample rate fs.
// Every cutoff must lie strictly between zero and the Nyquist frequency.
func (s Spec) Design(fs float64) (b, a []float64, err error) {
	if !(fs > 0) {
		return nil, nil, mocaperr.Unsupported("sample rate", fs)
	}
	nyq := fs / 2
	wn := make([]float64, len(s.Cutoffs))
	for i, c := range s.Cutoffs {
		if !(c > 0 && c < nyq) {
			return nil, nil, mocaperr.Unsupported("cut-off frequency",
				fmt.Sprintf("%g Hz (Nyquist %g Hz)", c, nyq))
		}
		wn[i] = c / nyq
	}
	return Butter(s.Order, wn, s.Kind)
}

// Apply designs the filter for fs and runs it over x with FiltFilt.
func (s Spec) Apply(x []float64, fs float64) ([]float64, error) {
	b, a, err := s.Design(fs)
	if err != nil {
		return nil, err
	}
	return FiltFilt(b, a, x)
}

// MinSamples is the shortest input Apply accepts for this filter.
func (s Spec) MinSamples() int {
	n := s.Order + 1
	if s.Kind == BandPass || s.Kind == BandStop {
		n = 2*s.Order + 1
	}
	return 3*n + 1
}
