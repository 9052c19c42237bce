package trajectory

// Gap is a maximal run of consecutive missing frames, Start and End
// inclusive.
type Gap struct {
	Start int
	End   int
}

// Len returns the number of frames in the gap.
func (g Gap) Len() int { return g.End - g.Start + 1 }

// Frames returns the gap's frame indices.
func (g Gap) Frames() []int {
	out := make([]int, 0, g.Len())
	for i := g.Start; i <= g.End; i++ {
		out = append(out, i)
	}
	return out
}

// Contains reports whether frame lies inside the gap.
func (g Gap) Contains(frame int) bool { return frame >= g.Start && frame <= g.End }

// InvalidRuns splits the false entries of mask into maximal contiguous runs,
// including runs touching either end of the sequence.
func InvalidRuns(mask []bool) []Gap {
	return runs(mask, false)
}

// ValidRuns splits the true entries of mask into maximal contiguous runs.
func ValidRuns(mask []bool) []Gap {
	return runs(mask, true)
}

func runs(mask []bool, want bool) []Gap {
	var out []Gap
	start := -1
	for i, v := range mask {
		switch {
		case v == want && start < 0:
			start = i
		case v != want && start >= 0:
			out = append(out, Gap{Start: start, End: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Gap{Start: start, End: len(mask) - 1})
	}
	return out
}

// FindGaps returns the internal gaps of a validity mask: runs of invalid
// frames that touch neither frame 0 nor frame N-1. There is nothing to
// interpolate from beyond the ends of a recording, so boundary runs are
// dropped.
func FindGaps(mask []bool) []Gap {
	n := len(mask)
	var out []Gap
	for _, g := range InvalidRuns(mask) {
		if g.Start == 0 || g.End == n-1 {
			continue
		}
		out = append(out, g)
	}
	return out
}

// InternalGapMask marks the frames that belong to an internal gap.
func InternalGapMask(mask []bool) []bool {
	out := make([]bool, len(mask))
	for _, g := range FindGaps(mask) {
		for i := g.Start; i <= g.End; i++ {
			out[i] = true
		}
	}
	return out
}
