// Package store keeps a motion recording in a sqlite database and serves it
// as a session.Session, alongside an audit log of gap-fill runs.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/session"
	"github.com/banshee-data/mocap.report/internal/units"
)

// pragmas applied to every pooled connection.
const pragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

type Store struct {
	*sql.DB
	path string
	hdr  *header
}

// header is the single recording row.
type header struct {
	rate       float64
	ratio      int
	firstFrame int
	frames     int
	markerUnit string
	setup      session.AnalogSetup
}

var _ session.Session = (*Store)(nil)

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&" + pragmas
	} else {
		dsn += "?" + pragmas
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadHeader(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadHeader() error {
	var h header
	var unsigned bool
	err := s.QueryRow(`
		SELECT frame_rate, analog_video_ratio, first_frame, frames, marker_unit,
		       general_scale, unsigned_samples
		FROM recording WHERE id = 1`,
	).Scan(&h.rate, &h.ratio, &h.firstFrame, &h.frames, &h.markerUnit, &h.setup.GeneralScale, &unsigned)
	if errors.Is(err, sql.ErrNoRows) {
		s.hdr = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read recording header: %w", err)
	}
	h.setup.Unsigned = unsigned
	s.hdr = &h
	return nil
}

// Empty reports whether no recording has been imported yet.
func (s *Store) Empty() bool { return s.hdr == nil }

// MarkerUnit is the length unit of stored marker positions.
func (s *Store) MarkerUnit() string {
	if s.hdr == nil {
		return ""
	}
	return s.hdr.markerUnit
}

func (s *Store) requireRecording() error {
	if s.hdr == nil {
		return mocaperr.Missing("recording", s.path)
	}
	return nil
}

// Import replaces the stored recording with rec. Fill run history is kept.
func (s *Store) Import(rec *session.Recording) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	unit := rec.MarkerUnit
	if unit == "" {
		unit = units.MM
	}
	if !units.IsValidLength(unit) {
		return mocaperr.Unsupported("marker unit", fmt.Sprintf("%q (valid: %s)", unit, units.GetValidLengthUnitsString()))
	}

	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"force_plates", "channels", "marker_samples", "markers", "recording"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO recording (id, frame_rate, analog_video_ratio, first_frame, frames,
			marker_unit, general_scale, unsigned_samples)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Rate, rec.Ratio, rec.FirstFrame, rec.Frames, unit, rec.Analog.GeneralScale, rec.Analog.Unsigned,
	); err != nil {
		return fmt.Errorf("failed to insert recording header: %w", err)
	}
	if err := insertMarkers(tx, rec.Markers); err != nil {
		return err
	}
	if err := insertChannels(tx, rec.Channels); err != nil {
		return err
	}
	if err := insertPlates(tx, rec.Plates); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	monitoring.Logf("imported %d markers, %d analog channels and %d force plates over %d frames",
		len(rec.Markers), len(rec.Channels), len(rec.Plates), rec.Frames)
	return s.loadHeader()
}

// Export reads the stored recording back into memory.
func (s *Store) Export() (*session.Recording, error) {
	if err := s.requireRecording(); err != nil {
		return nil, err
	}
	h := s.hdr
	rec := session.NewRecording(h.rate, h.ratio, h.firstFrame, h.frames)
	rec.MarkerUnit = h.markerUnit
	rec.Analog = h.setup

	markers, err := s.exportMarkers()
	if err != nil {
		return nil, err
	}
	rec.Markers = markers
	if rec.Channels, err = s.exportChannels(); err != nil {
		return nil, err
	}
	if rec.Plates, err = s.exportPlates(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) FrameRate() float64 {
	if s.hdr == nil {
		return 0
	}
	return s.hdr.rate
}

// FrameBounds returns 0, -1 for an empty store.
func (s *Store) FrameBounds() (first, last int) {
	if s.hdr == nil {
		return 0, -1
	}
	return s.hdr.firstFrame, s.hdr.firstFrame + s.hdr.frames - 1
}

func (s *Store) AnalogVideoRatio() int {
	if s.hdr == nil {
		return 1
	}
	return s.hdr.ratio
}

func (s *Store) AnalogSetup() session.AnalogSetup {
	if s.hdr == nil {
		return session.AnalogSetup{}
	}
	return s.hdr.setup
}
