package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/session"
)

// encodeSamples packs samples as little-endian float64.
func encodeSamples(x []float64) []byte {
	buf := make([]byte, 8*len(x))
	for i, v := range x {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeSamples(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("sample blob length %d is not a multiple of 8", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

func insertChannels(tx *sql.Tx, channels []session.Channel) error {
	stmt, err := tx.Prepare(`
		INSERT INTO channels (channel_index, label, description, unit, scale, sample_offset, gain, samples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range channels {
		if _, err := stmt.Exec(i, c.Label, c.Description, c.Unit, c.Scale, c.Offset, c.Gain, encodeSamples(c.Samples)); err != nil {
			return fmt.Errorf("failed to insert channel %d: %w", i, err)
		}
	}
	return nil
}

func insertPlates(tx *sql.Tx, plates []session.PlateGeometry) error {
	for i, p := range plates {
		geo, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO force_plates (plate_index, plate_type, geometry) VALUES (?, ?, ?)`, i, p.Type, string(geo)); err != nil {
			return fmt.Errorf("failed to insert force plate %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) exportChannels() ([]session.Channel, error) {
	var out []session.Channel
	for i := 0; ; i++ {
		c, err := s.channel(i)
		if mocaperr.IsMissing(err) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
}

func (s *Store) exportPlates() ([]session.PlateGeometry, error) {
	n := s.PlateCount()
	var out []session.PlateGeometry
	for i := 0; i < n; i++ {
		p, err := s.PlateGeometry(i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) channel(index int) (session.Channel, error) {
	var c session.Channel
	var blob []byte
	err := s.QueryRow(`
		SELECT label, description, unit, scale, sample_offset, gain, samples
		FROM channels WHERE channel_index = ?`, index,
	).Scan(&c.Label, &c.Description, &c.Unit, &c.Scale, &c.Offset, &c.Gain, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Channel{}, mocaperr.Missing("analog channel", fmt.Sprint(index))
	}
	if err != nil {
		return session.Channel{}, err
	}
	if c.Samples, err = decodeSamples(blob); err != nil {
		return session.Channel{}, fmt.Errorf("channel %d: %w", index, err)
	}
	return c, nil
}

func (s *Store) PlateCount() int {
	var n int
	if err := s.QueryRow(`SELECT COUNT(*) FROM force_plates`).Scan(&n); err != nil {
		monitoring.Logf("failed to count force plates: %v", err)
		return 0
	}
	return n
}

func (s *Store) PlateGeometry(index int) (session.PlateGeometry, error) {
	var geo string
	err := s.QueryRow(`SELECT geometry FROM force_plates WHERE plate_index = ?`, index).Scan(&geo)
	if errors.Is(err, sql.ErrNoRows) {
		return session.PlateGeometry{}, mocaperr.Missing("force plate", fmt.Sprint(index))
	}
	if err != nil {
		return session.PlateGeometry{}, err
	}
	var p session.PlateGeometry
	if err := json.Unmarshal([]byte(geo), &p); err != nil {
		return session.PlateGeometry{}, fmt.Errorf("failed to parse force plate %d: %w", index, err)
	}
	return p, nil
}

func (s *Store) ChannelInfo(index int) (session.ChannelInfo, error) {
	var c session.ChannelInfo
	err := s.QueryRow(`
		SELECT label, description, unit, scale, sample_offset, gain
		FROM channels WHERE channel_index = ?`, index,
	).Scan(&c.Label, &c.Description, &c.Unit, &c.Scale, &c.Offset, &c.Gain)
	if errors.Is(err, sql.ErrNoRows) {
		return session.ChannelInfo{}, mocaperr.Missing("analog channel", fmt.Sprint(index))
	}
	return c, err
}

func (s *Store) ChannelWaveform(index int, rng *session.FrameRange, scaled bool) ([]float64, error) {
	if err := s.requireRecording(); err != nil {
		return nil, err
	}
	c, err := s.channel(index)
	if err != nil {
		return nil, err
	}
	first, last := s.FrameBounds()
	start, end, err := rng.Resolve(first, last)
	if err != nil {
		return nil, err
	}
	ratio := s.hdr.ratio
	lo, hi := (start-first)*ratio, (end-first+1)*ratio
	if hi > len(c.Samples) {
		return nil, mocaperr.Dimension(fmt.Sprintf("channel %d samples", index), len(c.Samples), s.hdr.frames*ratio)
	}
	raw := c.Samples[lo:hi]
	if scaled {
		return session.ScaleSamples(raw, c.ChannelInfo, s.hdr.setup), nil
	}
	return raw, nil
}
