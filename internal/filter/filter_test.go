package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
)

func gainAt(b, a []float64, sign float64) float64 {
	num, den, s := 0.0, 0.0, 1.0
	for i := range b {
		num += s * b[i]
		den += s * a[i]
		s *= sign
	}
	return num / den
}

func TestButter_SecondOrderHalfNyquist(t *testing.T) {
	b, a, err := Butter(2, []float64{0.5}, LowPass)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.29289322, 0.58578644, 0.29289322}, b, 1e-8)
	assert.InDeltaSlice(t, []float64{1, 0, 0.17157288}, a, 1e-8)

	b, a, err = Butter(2, []float64{0.5}, HighPass)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.29289322, -0.58578644, 0.29289322}, b, 1e-8)
	assert.InDeltaSlice(t, []float64{1, 0, 0.17157288}, a, 1e-8)
}

func TestButter_PassbandGains(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4, 6} {
		for _, w := range []float64{0.05, 0.2, 0.7} {
			b, a, err := Butter(order, []float64{w}, LowPass)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, gainAt(b, a, 1), 1e-9, "lowpass DC gain order=%d wn=%g", order, w)

			b, a, err = Butter(order, []float64{w}, HighPass)
			require.NoError(t, err)
			assert.InDelta(t, 0.0, gainAt(b, a, 1), 1e-9, "highpass DC gain order=%d wn=%g", order, w)
			assert.InDelta(t, 1.0, math.Abs(gainAt(b, a, -1)), 1e-9, "highpass Nyquist gain order=%d wn=%g", order, w)
		}
	}
}

func TestButter_BandFilters(t *testing.T) {
	b, a, err := Butter(2, []float64{0.1, 0.3}, BandPass)
	require.NoError(t, err)
	assert.Len(t, b, 5)
	assert.Len(t, a, 5)
	assert.InDelta(t, 0.0, gainAt(b, a, 1), 1e-9)

	b, a, err = Butter(2, []float64{0.1, 0.3}, BandStop)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, gainAt(b, a, 1), 1e-9)
}

func TestButter_Validation(t *testing.T) {
	_, _, err := Butter(0, []float64{0.5}, LowPass)
	assert.True(t, mocaperr.IsUnsupported(err))

	_, _, err = Butter(2, []float64{1.2}, LowPass)
	assert.True(t, mocaperr.IsUnsupported(err))

	_, _, err = Butter(2, []float64{0.1}, BandPass)
	assert.True(t, mocaperr.IsInputDimension(err))

	_, _, err = Butter(2, []float64{0.3, 0.1}, BandStop)
	assert.True(t, mocaperr.IsUnsupported(err))
}

func TestLFilterZI_StepStartsInSteadyState(t *testing.T) {
	b, a := []float64{0.5, 0.5}, []float64{1, 0}
	zi, err := LFilterZI(b, a)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5}, zi, 1e-12)

	b, a, err = Butter(4, []float64{0.1}, LowPass)
	require.NoError(t, err)
	zi, err = LFilterZI(b, a)
	require.NoError(t, err)
	step := make([]float64, 20)
	for i := range step {
		step[i] = 1
	}
	y, _, err := LFilter(b, a, step, zi)
	require.NoError(t, err)
	for i, v := range y {
		assert.InDelta(t, 1.0, v, 1e-9, "sample %d", i)
	}
}

func TestFiltFilt_ConstantUnchanged(t *testing.T) {
	x := make([]float64, 50)
	for i := range x {
		x[i] = 7.25
	}
	y, err := LowPassSpec(4, 6).Apply(x, 100)
	require.NoError(t, err)
	for i, v := range y {
		assert.InDelta(t, 7.25, v, 1e-9, "sample %d", i)
	}
}

func TestFiltFilt_RemovesHighFrequencyWithoutLag(t *testing.T) {
	const fs = 200.0
	n := 400
	x := make([]float64, n)
	clean := make([]float64, n)
	for i := range x {
		tm := float64(i) / fs
		clean[i] = math.Sin(2 * math.Pi * 2 * tm)
		x[i] = clean[i] + 0.5*math.Sin(2*math.Pi*40*tm)
	}
	y, err := LowPassSpec(4, 10).Apply(x, fs)
	require.NoError(t, err)
	require.Len(t, y, n)
	for i := 50; i < n-50; i++ {
		if math.Abs(y[i]-clean[i]) > 0.02 {
			t.Fatalf("Expected %f at sample %d, got %f", clean[i], i, y[i])
		}
	}
}

func TestFiltFilt_ShortInput(t *testing.T) {
	s := LowPassSpec(2, 5)
	_, err := s.Apply(make([]float64, s.MinSamples()), 100)
	assert.NoError(t, err)

	_, err = s.Apply(make([]float64, s.MinSamples()-1), 100)
	require.Error(t, err)
	assert.True(t, mocaperr.IsInsufficient(err))
}

func TestSpec_CutoffAboveNyquist(t *testing.T) {
	_, err := LowPassSpec(2, 60).Apply(make([]float64, 100), 100)
	require.Error(t, err)
	assert.True(t, mocaperr.IsUnsupported(err))
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{LowPass, HighPass, BandPass, BandStop} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("notch")
	assert.True(t, mocaperr.IsUnsupported(err))
}
