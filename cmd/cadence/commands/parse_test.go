package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
)

func TestParseWhen(t *testing.T) {
	got, err := parseWhen("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), got)

	got, err = parseWhen("2025-03-10T09:00:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())

	_, err = parseWhen("next tuesday")
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"", []int{1, 2, 3, 4, 5, 6, 7}},
		{"weekdays", []int{1, 2, 3, 4, 5}},
		{"Weekends", []int{6, 7}},
		{"1,3,5", []int{1, 3, 5}},
		{"mon, wednesday ,fri", []int{1, 3, 5}},
		{"sun,7,sun", []int{7}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDays(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"0", "8", "funday"} {
		_, err := parseDays(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatOptionalTime(t *testing.T) {
	assert.Equal(t, "-", formatOptionalTime(nil))
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2025-03-10T08:00:00Z", formatOptionalTime(&ts))
}
