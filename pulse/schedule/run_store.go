package schedule

import (
	"context"
	"database/sql"

	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
)

// RunStore handles persistence of driver run history
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new run store
func NewRunStore(conn *sql.DB) *RunStore {
	return &RunStore{db: conn}
}

const runColumns = `id, status, triggered_at, started_at, completed_at, duration_ms,
	cadences_processed, instances_created, instances_advanced,
	failed_cadences, failed_instances, error_message, created_at, updated_at`

// CreateRun inserts a new run record
func (s *RunStore) CreateRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO scheduler_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Status,
		db.FormatTime(run.TriggeredAt),
		db.FormatTime(run.StartedAt),
		db.NullTime(run.CompletedAt),
		nullInt(run.DurationMs),
		run.CadencesProcessed,
		run.InstancesCreated,
		run.InstancesAdvanced,
		run.FailedCadences,
		run.FailedInstances,
		nullMessage(run.ErrorMessage),
		db.FormatTime(run.CreatedAt),
		db.FormatTime(run.UpdatedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create run %s", run.ID)
	}
	return nil
}

// FinishRun writes the final counters, status and failures of run in one
// transaction.
func (s *RunStore) FinishRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin run update")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE scheduler_runs
		SET status = ?,
		    completed_at = ?,
		    duration_ms = ?,
		    cadences_processed = ?,
		    instances_created = ?,
		    instances_advanced = ?,
		    failed_cadences = ?,
		    failed_instances = ?,
		    error_message = ?,
		    updated_at = ?
		WHERE id = ?`,
		run.Status,
		db.NullTime(run.CompletedAt),
		nullInt(run.DurationMs),
		run.CadencesProcessed,
		run.InstancesCreated,
		run.InstancesAdvanced,
		run.FailedCadences,
		run.FailedInstances,
		nullMessage(run.ErrorMessage),
		db.FormatTime(run.UpdatedAt),
		run.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update run %s", run.ID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError("run %s", run.ID)
	}

	for _, f := range run.Failures {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_failures
			(run_id, stage, subject_id, message, created_at) VALUES (?, ?, ?, ?, ?)`,
			run.ID, f.Stage, f.SubjectID, f.Message, db.FormatTime(f.CreatedAt)); err != nil {
			return errors.Wrapf(err, "failed to record %s failure for %s", f.Stage, f.SubjectID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "failed to commit run %s", run.ID)
	}
	return nil
}

// GetRun retrieves a run and its failures by ID
func (s *RunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM scheduler_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("run %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get run %s", id)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT stage, subject_id, message, created_at
		FROM run_failures WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list failures for run %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var f Failure
		var createdAt string
		if err := rows.Scan(&f.Stage, &f.SubjectID, &f.Message, &createdAt); err != nil {
			return nil, errors.Wrapf(err, "failed to scan failure for run %s", id)
		}
		if f.CreatedAt, err = db.ParseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		run.Failures = append(run.Failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating failures for run %s", id)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, optionally filtered by status.
func (s *RunStore) ListRuns(ctx context.Context, limit int, statusFilter string) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM scheduler_runs`
	var args []interface{}
	if statusFilter != "" {
		query += ` WHERE status = ?`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
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
		return nil, errors.Wrap(err, "error iterating runs")
	}
	return runs, nil
}

// LastCompleted returns the most recent completed run, or nil when none exists.
func (s *RunStore) LastCompleted(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1, RunStatusCompleted)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var triggeredAt, startedAt, createdAt, updatedAt string
	var completedAt, errorMessage sql.NullString
	var durationMs sql.NullInt64

	if err := row.Scan(
		&run.ID,
		&run.Status,
		&triggeredAt,
		&startedAt,
		&completedAt,
		&durationMs,
		&run.CadencesProcessed,
		&run.InstancesCreated,
		&run.InstancesAdvanced,
		&run.FailedCadences,
		&run.FailedInstances,
		&errorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if run.TriggeredAt, err = db.ParseTime("triggered_at", triggeredAt); err != nil {
		return nil, err
	}
	if run.StartedAt, err = db.ParseTime("started_at", startedAt); err != nil {
		return nil, err
	}
	if run.CreatedAt, err = db.ParseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if run.UpdatedAt, err = db.ParseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = db.ParseNullTime("completed_at", completedAt); err != nil {
		return nil, err
	}
	if durationMs.Valid {
		d := int(durationMs.Int64)
		run.DurationMs = &d
	}
	if errorMessage.Valid {
		run.ErrorMessage = &errorMessage.String
	}
	return &run, nil
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullMessage(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
