package cadence

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/pulse/recurrence"
)

// Store persists cadences in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a new cadence store
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn, now: time.Now}
}

const cadenceColumns = `id, workspace_id, form_id, name, pattern, time_of_day, timezone,
	days_of_week, start_date, end_date, completion_window_hours, is_active,
	created_at, updated_at`

// Create normalizes, validates and inserts c. An empty ID is assigned a UUID.
func (s *Store) Create(ctx context.Context, c *Cadence) error {
	if err := c.Normalize(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now().UTC().Truncate(time.Second)
	c.CreatedAt, c.UpdatedAt = now, now

	var endDate interface{}
	if c.Schedule.EndDate != nil {
		endDate = c.Schedule.EndDate.String()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO cadences (`+cadenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.WorkspaceID,
		c.FormID,
		db.NullString(c.Name),
		string(c.Schedule.Pattern),
		c.Schedule.Time.String(),
		c.Schedule.Timezone,
		formatDays(c.Schedule.DaysOfWeek),
		c.Schedule.StartDate.String(),
		endDate,
		c.Schedule.CompletionWindowHours,
		c.IsActive,
		db.FormatTime(c.CreatedAt),
		db.FormatTime(c.UpdatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return errors.Wrapf(errors.ErrConflict, "cadence %s already exists", c.ID)
		}
		return errors.Wrapf(err, "failed to create cadence %s", c.ID)
	}
	return nil
}

// Get retrieves a cadence by ID
func (s *Store) Get(ctx context.Context, id string) (*Cadence, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cadenceColumns+` FROM cadences WHERE id = ?`, id)
	c, err := scanCadence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("cadence %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get cadence %s", id)
	}
	return c, nil
}

// ListActive returns every active cadence ordered by ID.
func (s *Store) ListActive(ctx context.Context) ([]*Cadence, error) {
	return s.query(ctx, `SELECT `+cadenceColumns+` FROM cadences WHERE is_active = 1 ORDER BY id`)
}

// List returns cadences of one workspace, or all when workspaceID is empty.
func (s *Store) List(ctx context.Context, workspaceID string) ([]*Cadence, error) {
	if workspaceID == "" {
		return s.query(ctx, `SELECT `+cadenceColumns+` FROM cadences ORDER BY id`)
	}
	return s.query(ctx, `SELECT `+cadenceColumns+` FROM cadences WHERE workspace_id = ? ORDER BY id`, workspaceID)
}

// SetActive pauses or resumes a cadence. Instances already materialized are untouched.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cadences SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, db.FormatTime(s.now()), id)
	if err != nil {
		return errors.Wrapf(err, "failed to update cadence %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to update cadence %s", id)
	}
	if n == 0 {
		return errors.NewNotFoundError("cadence %s", id)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) ([]*Cadence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cadences")
	}
	defer rows.Close()

	var cadences []*Cadence
	for rows.Next() {
		c, err := scanCadence(rows)
		if err != nil {
			return nil, err
		}
		cadences = append(cadences, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate cadences")
	}
	return cadences, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCadence(row scanner) (*Cadence, error) {
	var c Cadence
	var name, endDate sql.NullString
	var pattern, timeOfDay, days, startDate, createdAt, updatedAt string

	err := row.Scan(
		&c.ID,
		&c.WorkspaceID,
		&c.FormID,
		&name,
		&pattern,
		&timeOfDay,
		&c.Schedule.Timezone,
		&days,
		&startDate,
		&endDate,
		&c.Schedule.CompletionWindowHours,
		&c.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Name = name.String
	c.Schedule.Pattern = recurrence.Pattern(pattern)

	// Parse errors indicate data corruption or schema mismatch
	if c.Schedule.Time, err = recurrence.ParseTimeOfDay(timeOfDay); err != nil {
		return nil, errors.Wrapf(err, "cadence %s: time_of_day", c.ID)
	}
	if c.Schedule.DaysOfWeek, err = parseDays(days); err != nil {
		return nil, errors.Wrapf(err, "cadence %s: days_of_week", c.ID)
	}
	if c.Schedule.StartDate, err = recurrence.ParseDate(startDate); err != nil {
		return nil, errors.Wrapf(err, "cadence %s: start_date", c.ID)
	}
	if endDate.Valid {
		end, err := recurrence.ParseDate(endDate.String)
		if err != nil {
			return nil, errors.Wrapf(err, "cadence %s: end_date", c.ID)
		}
		c.Schedule.EndDate = &end
	}
	if c.CreatedAt, err = db.ParseTime("created_at", createdAt); err != nil {
		return nil, errors.Wrapf(err, "cadence %s", c.ID)
	}
	if c.UpdatedAt, err = db.ParseTime("updated_at", updatedAt); err != nil {
		return nil, errors.Wrapf(err, "cadence %s", c.ID)
	}

	return &c, nil
}

// formatDays stores weekdays as "1,3,5".
func formatDays(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func parseDays(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "weekday %q", p)
		}
		days = append(days, d)
	}
	return days, nil
}
