package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// Run is one archived collection run.
type Run struct {
	ID         string     `json:"id"`
	Index      int        `json:"index"`
	Gesture    string     `json:"gesture"`
	Status     RunStatus  `json:"status"`
	Planned    int        `json:"planned"`
	Samples    int        `json:"samples"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunRepository provides access to archived runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a run in the running state. An empty ID is filled with a
// new UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunRunning

	_, err := r.db.Exec(
		`INSERT INTO runs (id, run_index, gesture, status, planned, samples, started_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		run.ID, run.Index, run.Gesture, string(run.Status), run.Planned, run.StartedAt,
	)
	return err
}

// Finish records the final status and the number of stored samples.
func (r *RunRepository) Finish(id string, status RunStatus) error {
	result, err := r.db.Exec(
		`UPDATE runs SET status = ?, finished_at = ?,
		   samples = (SELECT COUNT(*) FROM samples WHERE run_id = ?)
		 WHERE id = ?`,
		string(status), time.Now(), id, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, run_index, gesture, status, planned, samples, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first. limit <= 0 returns every run.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, run_index, gesture, status, planned, samples, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, run_index DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and, through the foreign key, its samples.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var status string
	var finished sql.NullTime

	err := row.Scan(&run.ID, &run.Index, &run.Gesture, &status, &run.Planned, &run.Samples, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
