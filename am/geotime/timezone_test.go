package geotime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimezone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Europe/Amsterdam", "Europe/Amsterdam"},
		{"europe/berlin", "Europe/Berlin"},
		{"PST", "America/Los_Angeles"},
		{"EST", "America/New_York"},
		{"cet", "Europe/Berlin"},
		{"Amsterdam", "Europe/Amsterdam"},
		{"San Francisco", "America/Los_Angeles"},
		{"NL", "Europe/Amsterdam"},
		{"  UTC  ", "UTC"},
		// Valid IANA names with lowercase articles are preserved
		{"America/Port_of_Spain", "America/Port_of_Spain"},
		{"Europe/Isle_of_Man", "Europe/Isle_of_Man"},
		{"Pacific/Port_Moresby", "Pacific/Port_Moresby"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			actual, err := NormalizeTimezone(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestNormalizeTimezoneRejects(t *testing.T) {
	for _, input := range []string{"", "   ", "Mars/Olympus_Mons", "xyz"} {
		_, err := NormalizeTimezone(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestGuessTimezoneHelpers(t *testing.T) {
	assert.Equal(t, "Europe/Berlin", GuessTimezoneFromLocation("Based in Berlin, Germany"))
}

func TestNormalizeTimezoneCountryCodes(t *testing.T) {
	tz, err := NormalizeTimezone("JP")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", tz)

	_, err = NormalizeTimezone("zz")
	assert.Error(t, err)
	_, err = NormalizeTimezone("America/Atlantis")
	assert.Error(t, err)
}
