package cadence

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/pulse/recurrence"
)

// SupportedFormat is the constraint an import file's format_version must satisfy.
const SupportedFormat = "^1.0"

// File is the on-disk import format, in TOML or YAML:
//
//	format_version = "1.0"
//
//	[[cadence]]
//	workspace_id = "ws-1"
//	form_id = "daily-safety-check"
//	pattern = "daily"
//	time = "09:00"
//	timezone = "America/New_York"
//	days_of_week = [1, 2, 3, 4, 5]
//	start_date = "2025-01-06"
//	completion_window_hours = 2
type File struct {
	FormatVersion string `toml:"format_version" yaml:"format_version"`
	Cadences      []Spec `toml:"cadence" yaml:"cadence"`
}

// Spec is one cadence as written in an import file.
type Spec struct {
	ID                    string `toml:"id" yaml:"id"`
	WorkspaceID           string `toml:"workspace_id" yaml:"workspace_id"`
	FormID                string `toml:"form_id" yaml:"form_id"`
	Name                  string `toml:"name" yaml:"name"`
	Pattern               string `toml:"pattern" yaml:"pattern"`
	Time                  string `toml:"time" yaml:"time"`
	Timezone              string `toml:"timezone" yaml:"timezone"`
	DaysOfWeek            []int  `toml:"days_of_week" yaml:"days_of_week"`
	StartDate             string `toml:"start_date" yaml:"start_date"`
	EndDate               string `toml:"end_date" yaml:"end_date"`
	CompletionWindowHours int    `toml:"completion_window_hours" yaml:"completion_window_hours"`
	Active                *bool  `toml:"active" yaml:"active"` // nil = active
}

// Format names an import encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.WithHint(
		errors.Wrapf(errors.ErrInvalidRequest, "unsupported import file %s", path),
		"use a .toml, .yaml or .yml file")
}

// Parse decodes an import document and converts every entry to a Cadence.
func Parse(data []byte, format Format) ([]*Cadence, error) {
	var f File
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
			return nil, errors.Wrap(err, "failed to decode TOML")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "failed to decode YAML")
		}
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unknown format %q", format)
	}

	if err := checkFormatVersion(f.FormatVersion); err != nil {
		return nil, err
	}

	cadences := make([]*Cadence, 0, len(f.Cadences))
	for i, spec := range f.Cadences {
		c, err := spec.ToCadence()
		if err != nil {
			return nil, errors.Wrapf(err, "cadence #%d", i+1)
		}
		cadences = append(cadences, c)
	}
	return cadences, nil
}

// ParseFile reads and parses an import file.
func ParseFile(path string) ([]*Cadence, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	cadences, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "import %s", path)
	}
	return cadences, nil
}

// ImportFile parses path and creates every cadence in it. Creation stops at
// the first failure; earlier cadences stay created.
func ImportFile(ctx context.Context, s *Store, path string) ([]*Cadence, error) {
	cadences, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	for i, c := range cadences {
		if err := s.Create(ctx, c); err != nil {
			return cadences[:i], errors.Wrapf(err, "import %s: cadence #%d", path, i+1)
		}
	}
	return cadences, nil
}

func checkFormatVersion(raw string) error {
	if raw == "" {
		return errors.WithHint(
			errors.Wrap(errors.ErrInvalidRequest, "format_version is required"),
			`add format_version = "1.0" at the top of the file`)
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "format_version %q is not a version: %v", raw, err)
	}
	constraint, err := semver.NewConstraint(SupportedFormat)
	if err != nil {
		return errors.AssertionFailedf("bad format constraint %q: %v", SupportedFormat, err)
	}
	if !constraint.Check(v) {
		return errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRequest, "format_version %s is not supported", v),
			"this build reads format "+SupportedFormat)
	}
	return nil
}

// ToCadence converts a spec, parsing its date and time strings. The result
// is validated when it is created in a Store.
func (s Spec) ToCadence() (*Cadence, error) {
	pattern, err := recurrence.ParsePattern(s.Pattern)
	if err != nil {
		return nil, err
	}
	tod, err := recurrence.ParseTimeOfDay(s.Time)
	if err != nil {
		return nil, err
	}
	start, err := recurrence.ParseDate(s.StartDate)
	if err != nil {
		return nil, errors.Wrap(err, "start_date")
	}

	c := &Cadence{
		ID:          s.ID,
		WorkspaceID: s.WorkspaceID,
		FormID:      s.FormID,
		Name:        s.Name,
		IsActive:    s.Active == nil || *s.Active,
		Schedule: recurrence.Schedule{
			Pattern:               pattern,
			Time:                  tod,
			Timezone:              s.Timezone,
			DaysOfWeek:            s.DaysOfWeek,
			StartDate:             start,
			CompletionWindowHours: s.CompletionWindowHours,
		},
	}

	if s.EndDate != "" {
		end, err := recurrence.ParseDate(s.EndDate)
		if err != nil {
			return nil, errors.Wrap(err, "end_date")
		}
		c.Schedule.EndDate = &end
	}

	return c, nil
}
