package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// MaxRecordingSize caps the size of a recording document read from disk.
const MaxRecordingSize = 256 << 20

// MarkerData is one marker in the legacy positions-plus-residuals encoding.
type MarkerData struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Positions   []geom.Vec3 `json:"positions"`
	Residuals   []float64   `json:"residuals"`
}

// Channel is one analog channel with its raw samples.
type Channel struct {
	ChannelInfo
	Samples []float64 `json:"samples"`
}

// Recording is an in-memory motion file. It implements Session.
type Recording struct {
	Rate       float64         `json:"frame_rate"`
	Ratio      int             `json:"analog_video_ratio"`
	FirstFrame int             `json:"first_frame"`
	Frames     int             `json:"frames"`
	MarkerUnit string          `json:"marker_unit,omitempty"`
	Markers    []MarkerData    `json:"markers"`
	Analog     AnalogSetup     `json:"analog"`
	Channels   []Channel       `json:"channels,omitempty"`
	Plates     []PlateGeometry `json:"force_plates,omitempty"`
}

var _ Session = (*Recording)(nil)

// NewRecording returns an empty recording with the given timebase.
func NewRecording(rate float64, ratio, firstFrame, frames int) *Recording {
	return &Recording{Rate: rate, Ratio: ratio, FirstFrame: firstFrame, Frames: frames}
}

// ReadRecording decodes a JSON recording and validates it.
func ReadRecording(r io.Reader) (*Recording, error) {
	var rec Recording
	dec := json.NewDecoder(io.LimitReader(r, MaxRecordingSize))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse recording: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadRecording reads a JSON recording from path.
func LoadRecording(path string) (*Recording, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, fmt.Errorf("recording file must have .json extension, got %q", ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()
	return ReadRecording(f)
}

// Write encodes the recording as JSON.
func (r *Recording) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(r)
}

// Validate checks that every array matches the frame count.
func (r *Recording) Validate() error {
	if !(r.Rate > 0) {
		return mocaperr.Unsupported("frame rate", r.Rate)
	}
	if r.Ratio < 1 {
		return mocaperr.Unsupported("analog/video ratio", r.Ratio)
	}
	if r.Frames < 0 {
		return mocaperr.Dimension("frame count", r.Frames, 0)
	}
	seen := make(map[string]bool, len(r.Markers))
	for _, m := range r.Markers {
		if seen[m.Name] {
			return mocaperr.Unsupported("duplicate marker", m.Name)
		}
		seen[m.Name] = true
		if len(m.Positions) != r.Frames {
			return mocaperr.Dimension(m.Name+" position frames", len(m.Positions), r.Frames)
		}
		if len(m.Residuals) != r.Frames {
			return mocaperr.Dimension(m.Name+" residual frames", len(m.Residuals), r.Frames)
		}
	}
	want := r.Frames * r.Ratio
	for i, c := range r.Channels {
		if len(c.Samples) != want {
			return mocaperr.Dimension(fmt.Sprintf("channel %d samples", i), len(c.Samples), want)
		}
	}
	for i, p := range r.Plates {
		for _, ch := range p.Channels {
			if ch < 0 || ch >= len(r.Channels) {
				return &mocaperr.MissingDataError{Kind: "channel", Name: fmt.Sprintf("%d (plate %d)", ch, i)}
			}
		}
	}
	return nil
}

func (r *Recording) FrameRate() float64 { return r.Rate }

func (r *Recording) AnalogVideoRatio() int { return r.Ratio }

func (r *Recording) FrameBounds() (first, last int) {
	return r.FirstFrame, r.FirstFrame + r.Frames - 1
}

func (r *Recording) AnalogSetup() AnalogSetup { return r.Analog }

// MarkerNames returns the marker labels in file order.
func (r *Recording) MarkerNames() []string {
	out := make([]string, len(r.Markers))
	for i, m := range r.Markers {
		out[i] = m.Name
	}
	return out
}

func (r *Recording) marker(name string) (*MarkerData, error) {
	for i := range r.Markers {
		if r.Markers[i].Name == name {
			return &r.Markers[i], nil
		}
	}
	return nil, mocaperr.Missing("marker", name)
}

// AddMarker appends a marker. A nil residual slice means zero residual on
// every frame. Frames with a non-finite position are stored as missing.
func (r *Recording) AddMarker(name string, positions []geom.Vec3, residuals []float64) error {
	if _, err := r.marker(name); err == nil {
		return mocaperr.Unsupported("duplicate marker", name)
	}
	if len(positions) != r.Frames {
		return mocaperr.Dimension(name+" position frames", len(positions), r.Frames)
	}
	if residuals != nil && len(residuals) != r.Frames {
		return mocaperr.Dimension(name+" residual frames", len(residuals), r.Frames)
	}
	m := MarkerData{
		Name:      name,
		Positions: make([]geom.Vec3, r.Frames),
		Residuals: make([]float64, r.Frames),
	}
	copy(m.Residuals, residuals)
	for i, p := range positions {
		if !p.IsFinite() {
			m.Residuals[i] = trajectory.MissingResidual
			continue
		}
		m.Positions[i] = p
	}
	r.Markers = append(r.Markers, m)
	return nil
}

// RenameMarker changes a marker label.
func (r *Recording) RenameMarker(oldName, newName string) error {
	m, err := r.marker(oldName)
	if err != nil {
		return err
	}
	if _, err := r.marker(newName); err == nil {
		return mocaperr.Unsupported("duplicate marker", newName)
	}
	m.Name = newName
	return nil
}

func (r *Recording) MarkerTrajectory(name string, rng *FrameRange) (trajectory.Trajectory, error) {
	m, err := r.marker(name)
	if err != nil {
		return nil, err
	}
	first, last := r.FrameBounds()
	start, end, err := rng.Resolve(first, last)
	if err != nil {
		return nil, err
	}
	lo, hi := start-first, end-first+1
	return trajectory.FromResiduals(m.Positions[lo:hi], m.Residuals[lo:hi])
}

func (r *Recording) SetMarkerTrajectory(name string, traj trajectory.Trajectory, startFrame int) error {
	m, err := r.marker(name)
	if err != nil {
		return err
	}
	first, _ := r.FrameBounds()
	lo := startFrame - first
	if lo < 0 {
		return mocaperr.Unsupported("start frame", fmt.Sprintf("%d (first frame is %d)", startFrame, first))
	}
	if lo+len(traj) > r.Frames {
		return mocaperr.Dimension(name+" frames written", lo+len(traj), r.Frames)
	}
	copy(m.Positions[lo:], traj.Positions())
	copy(m.Residuals[lo:], traj.Residuals())
	return nil
}

func (r *Recording) PlateCount() int { return len(r.Plates) }

func (r *Recording) PlateGeometry(index int) (PlateGeometry, error) {
	if index < 0 || index >= len(r.Plates) {
		return PlateGeometry{}, mocaperr.Missing("force plate", fmt.Sprint(index))
	}
	return r.Plates[index], nil
}

func (r *Recording) ChannelInfo(index int) (ChannelInfo, error) {
	if index < 0 || index >= len(r.Channels) {
		return ChannelInfo{}, mocaperr.Missing("analog channel", fmt.Sprint(index))
	}
	return r.Channels[index].ChannelInfo, nil
}

// ChannelIndex looks a channel up by label.
func (r *Recording) ChannelIndex(label string) (int, error) {
	for i, c := range r.Channels {
		if c.Label == label {
			return i, nil
		}
	}
	return -1, mocaperr.Missing("analog channel", label)
}

func (r *Recording) ChannelWaveform(index int, rng *FrameRange, scaled bool) ([]float64, error) {
	info, err := r.ChannelInfo(index)
	if err != nil {
		return nil, err
	}
	first, last := r.FrameBounds()
	start, end, err := rng.Resolve(first, last)
	if err != nil {
		return nil, err
	}
	raw := r.Channels[index].Samples[(start-first)*r.Ratio : (end-first+1)*r.Ratio]
	if scaled {
		return ScaleSamples(raw, info, r.Analog), nil
	}
	return append([]float64(nil), raw...), nil
}

// AddChannel appends an analog channel given in physical units and returns
// its index. Values are stored raw, so they pass through UnscaleSamples.
func (r *Recording) AddChannel(info ChannelInfo, values []float64) (int, error) {
	want := r.Frames * r.Ratio
	if len(values) != want {
		return -1, mocaperr.Dimension(info.Label+" samples", len(values), want)
	}
	if _, err := r.ChannelIndex(info.Label); err == nil {
		return -1, mocaperr.Unsupported("duplicate analog channel", info.Label)
	}
	r.Channels = append(r.Channels, Channel{ChannelInfo: info, Samples: UnscaleSamples(values, info, r.Analog)})
	return len(r.Channels) - 1, nil
}

// Clone returns a deep copy.
func (r *Recording) Clone() *Recording {
	out := *r
	if r.Markers != nil {
		out.Markers = make([]MarkerData, len(r.Markers))
		for i, m := range r.Markers {
			m.Positions = append([]geom.Vec3(nil), m.Positions...)
			m.Residuals = append([]float64(nil), m.Residuals...)
			out.Markers[i] = m
		}
	}
	if r.Channels != nil {
		out.Channels = make([]Channel, len(r.Channels))
		for i, c := range r.Channels {
			c.Samples = append([]float64(nil), c.Samples...)
			out.Channels[i] = c
		}
	}
	if r.Plates != nil {
		out.Plates = make([]PlateGeometry, len(r.Plates))
		for i, p := range r.Plates {
			p.Channels = append([]int(nil), p.Channels...)
			if p.CalMatrix != nil {
				m := *p.CalMatrix
				p.CalMatrix = &m
			}
			out.Plates[i] = p
		}
	}
	return &out
}
