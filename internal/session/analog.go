package session

import "math"

// storedOffset interprets an offset parameter the way the raw sample format
// stores it: a signed 16-bit integer, or unsigned when the format says so.
func storedOffset(offset float64, setup AnalogSetup) float64 {
	v := int64(math.Round(offset))
	if setup.Unsigned {
		return float64(uint16(v))
	}
	return float64(int16(v))
}

func generalScale(setup AnalogSetup) float64 {
	if setup.GeneralScale == 0 {
		return 1
	}
	return setup.GeneralScale
}

// ScaleSamples converts raw analog samples to physical units:
// (raw - offset) * scale * general scale.
func ScaleSamples(raw []float64, info ChannelInfo, setup AnalogSetup) []float64 {
	off := storedOffset(info.Offset, setup)
	k := info.Scale * generalScale(setup)
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = (v - off) * k
	}
	return out
}

// UnscaleSamples is the inverse of ScaleSamples. A zero scale leaves the
// values offset but otherwise untouched.
func UnscaleSamples(values []float64, info ChannelInfo, setup AnalogSetup) []float64 {
	off := storedOffset(info.Offset, setup)
	k := info.Scale * generalScale(setup)
	out := make([]float64, len(values))
	for i, v := range values {
		if k == 0 {
			out[i] = v + off
			continue
		}
		out[i] = v/k + off
	}
	return out
}
