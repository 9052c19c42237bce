package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/mocap.report/internal/gapfill"
)

var _ gapfill.RunRecorder = (*Store)(nil)

// StoredRun is a fill run as kept in the audit log.
type StoredRun struct {
	ID string
	gapfill.FillRun
}

// RecordFillRun appends run to the audit log under a fresh id.
func (s *Store) RecordFillRun(run gapfill.FillRun) error {
	support, err := json.Marshal(run.Support)
	if err != nil {
		return err
	}
	if run.At.IsZero() {
		run.At = time.Now()
	}
	_, err = s.Exec(`
		INSERT INTO fill_runs (run_id, target, strategy, support, updated, valid_frames,
			filled, reason, created_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), run.Target, string(run.Strategy), string(support), run.Updated,
		run.ValidFrames, run.Filled, run.Reason, run.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record fill run: %w", err)
	}
	return nil
}

// FillRuns lists recorded runs for target, or for every marker when target
// is empty, oldest first.
func (s *Store) FillRuns(target string) ([]StoredRun, error) {
	rows, err := s.Query(`
		SELECT run_id, target, strategy, support, updated, valid_frames, filled, reason,
		       created_unix_nanos
		FROM fill_runs
		WHERE ? = '' OR target = ?
		ORDER BY created_unix_nanos, rowid`, target, target)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRun
	for rows.Next() {
		var r StoredRun
		var strategy, support string
		var nanos int64
		if err := rows.Scan(&r.ID, &r.Target, &strategy, &support, &r.Updated, &r.ValidFrames,
			&r.Filled, &r.Reason, &nanos); err != nil {
			return nil, err
		}
		r.Strategy = gapfill.Strategy(strategy)
		if err := json.Unmarshal([]byte(support), &r.Support); err != nil {
			return nil, fmt.Errorf("fill run %s: %w", r.ID, err)
		}
		r.At = time.Unix(0, nanos)
		out = append(out, r)
	}
	return out, rows.Err()
}
