package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/handsignal/internal/sample"
)

// Sample is one archived sample. Data holds the sample record as JSON.
type Sample struct {
	ID           int64           `json:"id"`
	RunID        string          `json:"run_id"`
	SampleNumber int             `json:"sample_number"`
	Gesture      string          `json:"gesture"`
	TakenAt      time.Time       `json:"taken_at"`
	Data         json.RawMessage `json:"data"`
}

// SampleRepository provides access to archived samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Add stores one sample of a run.
func (r *SampleRepository) Add(runID string, s sample.Sample) error {
	data, err := json.Marshal(sample.ToRecord(s))
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO samples (run_id, sample_number, gesture, taken_at, data) VALUES (?, ?, ?, ?, ?)`,
		runID, s.Number, s.Gesture, s.Time, string(data),
	)
	return err
}

// GetByRunID retrieves all samples of a run in sample order.
func (r *SampleRepository) GetByRunID(runID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, sample_number, gesture, taken_at, data
		 FROM samples
		 WHERE run_id = ?
		 ORDER BY sample_number`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.RunID, &s.SampleNumber, &s.Gesture, &s.TakenAt, &data); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// CountByRunID returns the number of samples stored for a run.
func (r *SampleRepository) CountByRunID(runID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM samples WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
