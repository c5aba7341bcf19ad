package commands

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/teranos/cadence/errors"
)

// parseWhen accepts RFC3339 or a bare YYYY-MM-DD date (midnight UTC).
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return time.Time{}, errors.WithHint(
			errors.Newf("invalid time %q", s),
			"use YYYY-MM-DD or RFC3339, e.g. 2025-03-10T09:00:00Z")
	}
	return d.In(time.UTC), nil
}

var weekdayNames = map[string]int{
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

// parseDays reads "1,3,5", "mon,wed,fri", "weekdays" or "all".
func parseDays(s string) ([]int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "all", "daily":
		return []int{1, 2, 3, 4, 5, 6, 7}, nil
	case "weekdays":
		return []int{1, 2, 3, 4, 5}, nil
	case "weekends":
		return []int{6, 7}, nil
	}

	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, ok := weekdayNames[part[:min(3, len(part))]]
		if !ok {
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 || n > 7 {
				return nil, errors.WithHint(
					errors.Newf("invalid weekday %q", part),
					"use 1-7 (1 = Monday) or mon..sun")
			}
			day = n
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
