package db

import (
	"database/sql"
	"time"

	"github.com/teranos/cadence/errors"
)

// TimeFormat is the on-disk timestamp layout. Every stored instant is UTC so
// lexical ordering in SQL matches chronological ordering.
const TimeFormat = time.RFC3339

// FormatTime renders t as a UTC storage timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// NullTime renders an optional timestamp, nil for NULL.
func NullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

// ParseTime parses a storage timestamp.
func ParseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse %s %q", column, value)
	}
	return t.UTC(), nil
}

// ParseNullTime parses an optional storage timestamp.
func ParseNullTime(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := ParseTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NullString maps an empty string to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
