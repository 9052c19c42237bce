// Package session defines the motion-file collaborator that gap filling and
// force-plate kinetics read from and write to, plus an in-memory Recording
// that implements it.
package session

import (
	"fmt"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// Timebase reports the video frame numbering of a recording.
type Timebase interface {
	FrameRate() float64
	// FrameBounds returns the first and last frame numbers, inclusive.
	FrameBounds() (first, last int)
}

// Markers is the marker half of a session.
type Markers interface {
	Timebase
	MarkerNames() []string
	// MarkerTrajectory returns the frames of rng (nil for the whole
	// recording) of the named marker.
	MarkerTrajectory(name string, rng *FrameRange) (trajectory.Trajectory, error)
	// SetMarkerTrajectory overwrites positions and residuals of the named
	// marker starting at frame number startFrame.
	SetMarkerTrajectory(name string, traj trajectory.Trajectory, startFrame int) error
}

// Analog is the analog and force-platform half of a session.
type Analog interface {
	Timebase
	AnalogVideoRatio() int
	AnalogSetup() AnalogSetup
	PlateCount() int
	PlateGeometry(index int) (PlateGeometry, error)
	ChannelInfo(index int) (ChannelInfo, error)
	// ChannelWaveform returns the samples of an analog channel for the
	// video frames of rng. There are AnalogVideoRatio samples per frame.
	// scaled selects physical units over raw values.
	ChannelWaveform(index int, rng *FrameRange, scaled bool) ([]float64, error)
}

// Session is the full motion-file collaborator. Callers must serialise
// access to a given session.
type Session interface {
	Markers
	Analog
}

// PlateGeometry describes one force platform.
type PlateGeometry struct {
	Type int `json:"type"`
	// Origin is the sensor offset from the plate surface centre in plate
	// axes, as stored in the file.
	Origin  geom.Vec3    `json:"origin"`
	Corners [4]geom.Vec3 `json:"corners"`
	// Channels are zero-based analog channel indices in the order the plate
	// type expects.
	Channels []int `json:"channels"`
	// CalMatrix is present for type 4 plates only.
	CalMatrix *[6][6]float64 `json:"cal_matrix,omitempty"`
}

// ChannelInfo is the metadata of one analog channel.
type ChannelInfo struct {
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit"`
	Scale       float64 `json:"scale"`
	Offset      float64 `json:"offset"`
	// Gain is the amplifier range code. It does not take part in scaling.
	Gain int `json:"gain,omitempty"`
}

// AnalogSetup holds parameters shared by all analog channels.
type AnalogSetup struct {
	GeneralScale float64 `json:"general_scale"`
	// Unsigned is set when raw samples and offsets are stored as unsigned
	// 16-bit integers.
	Unsigned bool `json:"unsigned,omitempty"`
}

// FrameRange selects frame numbers Start..End inclusive.
type FrameRange struct {
	Start int
	End   int
}

// Resolve checks the range against the recording bounds. A nil range
// selects the whole recording.
func (r *FrameRange) Resolve(first, last int) (start, end int, err error) {
	if last < first {
		return 0, 0, &mocaperr.InsufficientDataError{Subject: "recording", Reason: "no frames"}
	}
	if r == nil {
		return first, last, nil
	}
	if r.Start < first {
		return 0, 0, mocaperr.Unsupported("start frame", fmt.Sprintf("%d (first frame is %d)", r.Start, first))
	}
	if r.End > last {
		return 0, 0, mocaperr.Unsupported("end frame", fmt.Sprintf("%d (last frame is %d)", r.End, last))
	}
	if r.Start > r.End {
		return 0, 0, mocaperr.Unsupported("frame range", fmt.Sprintf("%d..%d", r.Start, r.End))
	}
	return r.Start, r.End, nil
}

// FrameCount returns the number of frames in the recording.
func FrameCount(t Timebase) int {
	first, last := t.FrameBounds()
	if last < first {
		return 0
	}
	return last - first + 1
}

// AnalogRate is the analog sample rate in Hz.
func AnalogRate(a Analog) float64 {
	return a.FrameRate() * float64(a.AnalogVideoRatio())
}

// FrameTimes returns the time of each video frame in seconds. With fromZero
// the first frame is at t=0, otherwise times count from frame number 0.
func FrameTimes(t Timebase, fromZero bool) []float64 {
	first, _ := t.FrameBounds()
	n := FrameCount(t)
	rate := t.FrameRate()
	offset := 0
	if fromZero {
		offset = first
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(first+i-offset) / rate
	}
	return out
}

// AnalogTimes returns the time of each analog sample in seconds, on the same
// clock as FrameTimes.
func AnalogTimes(a Analog, fromZero bool) []float64 {
	first, _ := a.FrameBounds()
	ratio := a.AnalogVideoRatio()
	n := FrameCount(a) * ratio
	rate := AnalogRate(a)
	offset := 0
	if fromZero {
		offset = first
	}
	start := float64(first-offset) / a.FrameRate()
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)/rate
	}
	return out
}
