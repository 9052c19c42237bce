package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/session"
	"github.com/banshee-data/mocap.report/internal/trajectory"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func insertMarkers(tx *sql.Tx, markers []session.MarkerData) error {
	markerStmt, err := tx.Prepare(`INSERT INTO markers (name, description) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer markerStmt.Close()
	sampleStmt, err := tx.Prepare(`
		INSERT INTO marker_samples (marker_id, frame_index, x, y, z, residual)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer sampleStmt.Close()

	for _, m := range markers {
		res, err := markerStmt.Exec(m.Name, m.Description)
		if err != nil {
			return fmt.Errorf("failed to insert marker %s: %w", m.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for i, p := range m.Positions {
			if _, err := sampleStmt.Exec(id, i, p[0], p[1], p[2], m.Residuals[i]); err != nil {
				return fmt.Errorf("failed to insert marker %s frame %d: %w", m.Name, i, err)
			}
		}
	}
	return nil
}

func (s *Store) exportMarkers() ([]session.MarkerData, error) {
	rows, err := s.Query(`SELECT marker_id, name, description FROM markers ORDER BY marker_id`)
	if err != nil {
		return nil, err
	}
	type row struct {
		id int64
		m  session.MarkerData
	}
	var list []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.m.Name, &r.m.Description); err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var out []session.MarkerData
	for _, r := range list {
		pos, res, err := s.markerSamples(r.id, 0, s.hdr.frames-1)
		if err != nil {
			return nil, err
		}
		r.m.Positions, r.m.Residuals = pos, res
		out = append(out, r.m)
	}
	return out, nil
}

func markerID(q queryer, name string) (int64, error) {
	var id int64
	err := q.QueryRow(`SELECT marker_id FROM markers WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, mocaperr.Missing("marker", name)
	}
	return id, err
}

// markerSamples reads frame indices lo..hi inclusive.
func (s *Store) markerSamples(id int64, lo, hi int) ([]geom.Vec3, []float64, error) {
	n := hi - lo + 1
	pos := make([]geom.Vec3, n)
	res := make([]float64, n)
	for i := range res {
		res[i] = trajectory.MissingResidual
	}
	rows, err := s.Query(`
		SELECT frame_index, x, y, z, residual FROM marker_samples
		WHERE marker_id = ? AND frame_index BETWEEN ? AND ?
		ORDER BY frame_index`, id, lo, hi)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var fi int
		var p geom.Vec3
		var r float64
		if err := rows.Scan(&fi, &p[0], &p[1], &p[2], &r); err != nil {
			return nil, nil, err
		}
		pos[fi-lo] = p
		res[fi-lo] = r
	}
	return pos, res, rows.Err()
}

// MarkerNames returns the marker labels in import order.
func (s *Store) MarkerNames() []string {
	rows, err := s.Query(`SELECT name FROM markers ORDER BY marker_id`)
	if err != nil {
		monitoring.Logf("failed to list markers: %v", err)
		return nil
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			monitoring.Logf("failed to list markers: %v", err)
			return nil
		}
		names = append(names, name)
	}
	return names
}

func (s *Store) MarkerTrajectory(name string, rng *session.FrameRange) (trajectory.Trajectory, error) {
	if err := s.requireRecording(); err != nil {
		return nil, err
	}
	id, err := markerID(s.DB, name)
	if err != nil {
		return nil, err
	}
	first, last := s.FrameBounds()
	start, end, err := rng.Resolve(first, last)
	if err != nil {
		return nil, err
	}
	pos, res, err := s.markerSamples(id, start-first, end-first)
	if err != nil {
		return nil, fmt.Errorf("failed to read marker %s: %w", name, err)
	}
	return trajectory.FromResiduals(pos, res)
}

// SetMarkerTrajectory writes every frame of traj in one transaction.
func (s *Store) SetMarkerTrajectory(name string, traj trajectory.Trajectory, startFrame int) error {
	if err := s.requireRecording(); err != nil {
		return err
	}
	first, _ := s.FrameBounds()
	lo := startFrame - first
	if lo < 0 {
		return mocaperr.Unsupported("start frame", fmt.Sprintf("%d (first frame is %d)", startFrame, first))
	}
	if lo+len(traj) > s.hdr.frames {
		return mocaperr.Dimension(name+" frames written", lo+len(traj), s.hdr.frames)
	}

	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, err := markerID(tx, name)
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		UPDATE marker_samples SET x = ?, y = ?, z = ?, residual = ?
		WHERE marker_id = ? AND frame_index = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pos, res := traj.Positions(), traj.Residuals()
	for i := range traj {
		p := pos[i]
		if _, err := stmt.Exec(p[0], p[1], p[2], res[i], id, lo+i); err != nil {
			return fmt.Errorf("failed to update marker %s frame %d: %w", name, startFrame+i, err)
		}
	}
	return tx.Commit()
}
