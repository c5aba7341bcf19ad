package instance

import (
	"context"
	"database/sql"
	"strings"

	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
)

// SQLStore persists instances in SQLite. The unique index on
// (cadence_id, scheduled_for) is the materialization idempotency key.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new instance store
func NewSQLStore(conn *sql.DB) *SQLStore {
	return &SQLStore{db: conn}
}

var _ Store = (*SQLStore)(nil)

const instanceColumns = `id, cadence_id, form_id, workspace_id, scheduled_for, due_at, status,
	started_at, completed_at, submission_id, skip_reason, created_at, updated_at`

// InsertIfAbsent inserts inst in one statement; a conflicting occurrence is a no-op.
func (s *SQLStore) InsertIfAbsent(ctx context.Context, inst *Instance) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO instances (`+instanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cadence_id, scheduled_for) DO NOTHING`,
		inst.ID,
		inst.CadenceID,
		inst.FormID,
		inst.WorkspaceID,
		db.FormatTime(inst.ScheduledFor),
		db.FormatTime(inst.DueAt),
		string(inst.Status),
		db.NullTime(inst.StartedAt),
		db.NullTime(inst.CompletedAt),
		db.NullString(inst.SubmissionID),
		db.NullString(inst.SkipReason),
		db.FormatTime(inst.CreatedAt),
		db.FormatTime(inst.UpdatedAt),
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to insert instance for cadence %s at %s",
			inst.CadenceID, db.FormatTime(inst.ScheduledFor))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return n == 1, nil
}

// Get retrieves an instance by ID
func (s *SQLStore) Get(ctx context.Context, id string) (*Instance, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("instance %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get instance %s", id)
	}
	return inst, nil
}

// ListOpen returns every non-terminal instance, earliest due first.
func (s *SQLStore) ListOpen(ctx context.Context) ([]*Instance, error) {
	return s.query(ctx, `SELECT `+instanceColumns+` FROM instances
		WHERE status IN (?, ?, ?)
		ORDER BY due_at, id`,
		string(StatusPending), string(StatusReady), string(StatusInProgress))
}

// List returns instances matching f.
func (s *SQLStore) List(ctx context.Context, f Filter) ([]*Instance, error) {
	var where []string
	var args []interface{}

	if f.WorkspaceID != "" {
		where = append(where, "workspace_id = ?")
		args = append(args, f.WorkspaceID)
	}
	if f.CadenceID != "" {
		where = append(where, "cadence_id = ?")
		args = append(args, f.CadenceID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN (?"+strings.Repeat(", ?", len(f.Statuses)-1)+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if f.From != nil {
		where = append(where, "scheduled_for >= ?")
		args = append(args, db.FormatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "scheduled_for < ?")
		args = append(args, db.FormatTime(*f.To))
	}

	query := `SELECT ` + instanceColumns + ` FROM instances`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_for, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return s.query(ctx, query, args...)
}

// CompareAndSwap applies t in one UPDATE guarded by the current status.
func (s *SQLStore) CompareAndSwap(ctx context.Context, t Transition) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE instances SET
			status = ?,
			started_at = COALESCE(?, started_at),
			completed_at = COALESCE(?, completed_at),
			submission_id = COALESCE(?, submission_id),
			skip_reason = COALESCE(?, skip_reason),
			updated_at = ?
		WHERE id = ? AND status = ?`,
		string(t.To),
		db.NullTime(t.StartedAt),
		db.NullTime(t.CompletedAt),
		db.NullString(t.SubmissionID),
		db.NullString(t.SkipReason),
		db.FormatTime(t.UpdatedAt),
		t.ID,
		string(t.From),
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to update instance %s (%s -> %s)", t.ID, t.From, t.To)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return n == 1, nil
}

func (s *SQLStore) query(ctx context.Context, query string, args ...interface{}) ([]*Instance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query instances")
	}
	defer rows.Close()

	var out []*Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate instances")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(row scanner) (*Instance, error) {
	var inst Instance
	var status, scheduledFor, dueAt, createdAt, updatedAt string
	var startedAt, completedAt, submissionID, skipReason sql.NullString

	err := row.Scan(
		&inst.ID,
		&inst.CadenceID,
		&inst.FormID,
		&inst.WorkspaceID,
		&scheduledFor,
		&dueAt,
		&status,
		&startedAt,
		&completedAt,
		&submissionID,
		&skipReason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.Status = Status(status)
	inst.SubmissionID = submissionID.String
	inst.SkipReason = skipReason.String

	// Parse errors indicate data corruption or schema mismatch
	if inst.ScheduledFor, err = db.ParseTime("scheduled_for", scheduledFor); err != nil {
		return nil, errors.Wrapf(err, "instance %s", inst.ID)
	}
	if inst.DueAt, err = db.ParseTime("due_at", dueAt); err != nil {
		return nil, errors.Wrapf(err, "instance %s", inst.ID)
	}
	if inst.StartedAt, err = db.ParseNullTime("started_at", startedAt); err != nil {
		return nil, errors.Wrapf(err, "instance %s", inst.ID)
	}
	if inst.CompletedAt, err = db.ParseNullTime("completed_at", completedAt); err != nil {
		return nil, errors.Wrapf(err, "instance %s", inst.ID)
	}
	if inst.CreatedAt, err = db.ParseTime("created_at", createdAt); err != nil {
		return nil, errors.Wrapf(err, "instance %s", inst.ID)
	}
	if inst.UpdatedAt, err = db.ParseTime("updated_at", updatedAt); err != nil {
		return nil, errors.Wrapf(err, "instance %s", inst.ID)
	}

	return &inst, nil
}
