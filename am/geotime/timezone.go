package geotime

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teranos/cadence/errors"
)

// locationKeywordTimezones maps city and country names seen in free-form
// timezone fields to their IANA zone.
var locationKeywordTimezones = map[string]string{
	"amsterdam":      "Europe/Amsterdam",
	"netherlands":    "Europe/Amsterdam",
	"rotterdam":      "Europe/Amsterdam",
	"eindhoven":      "Europe/Amsterdam",
	"dutch":          "Europe/Amsterdam",
	"berlin":         "Europe/Berlin",
	"germany":        "Europe/Berlin",
	"munich":         "Europe/Berlin",
	"hamburg":        "Europe/Berlin",
	"frankfurt":      "Europe/Berlin",
	"cologne":        "Europe/Berlin",
	"london":         "Europe/London",
	"united kingdom": "Europe/London",
	"great britain":  "Europe/London",
	"england":        "Europe/London",
	"manchester":     "Europe/London",
	"edinburgh":      "Europe/London",
	"belfast":        "Europe/London",
	"new york":       "America/New_York",
	"boston":         "America/New_York",
	"washington":     "America/New_York",
	"new jersey":     "America/New_York",
	"usa":            "America/New_York",
	"united states":  "America/New_York",
	"san francisco":  "America/Los_Angeles",
	"los angeles":    "America/Los_Angeles",
	"seattle":        "America/Los_Angeles",
	"california":     "America/Los_Angeles",
	"bay area":       "America/Los_Angeles",
	"silicon valley": "America/Los_Angeles",
	"vancouver":      "America/Vancouver",
	"canada":         "America/Toronto",
	"toronto":        "America/Toronto",
	"montreal":       "America/Toronto",
	"quebec":         "America/Toronto",
	"mexico":         "America/Mexico_City",
	"mexico city":    "America/Mexico_City",
	"brazil":         "America/Sao_Paulo",
	"sao paulo":      "America/Sao_Paulo",
	"buenos aires":   "America/Argentina/Buenos_Aires",
	"sydney":         "Australia/Sydney",
	"melbourne":      "Australia/Sydney",
	"australia":      "Australia/Sydney",
	"brisbane":       "Australia/Brisbane",
	"singapore":      "Asia/Singapore",
	"hong kong":      "Asia/Hong_Kong",
	"tokyo":          "Asia/Tokyo",
	"japan":          "Asia/Tokyo",
	"india":          "Asia/Kolkata",
	"delhi":          "Asia/Kolkata",
	"mumbai":         "Asia/Kolkata",
	"bangalore":      "Asia/Kolkata",
	"israel":         "Asia/Jerusalem",
	"tel aviv":       "Asia/Jerusalem",
	"uae":            "Asia/Dubai",
	"dubai":          "Asia/Dubai",
	"stockholm":      "Europe/Stockholm",
	"sweden":         "Europe/Stockholm",
	"oslo":           "Europe/Oslo",
	"norway":         "Europe/Oslo",
	"copenhagen":     "Europe/Copenhagen",
	"denmark":        "Europe/Copenhagen",
	"helsinki":       "Europe/Helsinki",
	"finland":        "Europe/Helsinki",
	"dublin":         "Europe/Dublin",
	"ireland":        "Europe/Dublin",
	"paris":          "Europe/Paris",
	"france":         "Europe/Paris",
	"madrid":         "Europe/Madrid",
	"spain":          "Europe/Madrid",
	"rome":           "Europe/Rome",
	"italy":          "Europe/Rome",
}

var countryCodeTimezones = map[string]string{
	"nl": "Europe/Amsterdam",
	"de": "Europe/Berlin",
	"be": "Europe/Brussels",
	"fr": "Europe/Paris",
	"it": "Europe/Rome",
	"es": "Europe/Madrid",
	"gb": "Europe/London",
	"uk": "Europe/London",
	"ie": "Europe/Dublin",
	"ca": "America/Toronto",
	"us": "America/New_York",
	"mx": "America/Mexico_City",
	"br": "America/Sao_Paulo",
	"ar": "America/Argentina/Buenos_Aires",
	"au": "Australia/Sydney",
	"nz": "Pacific/Auckland",
	"sg": "Asia/Singapore",
	"hk": "Asia/Hong_Kong",
	"jp": "Asia/Tokyo",
	"kr": "Asia/Seoul",
	"in": "Asia/Kolkata",
	"il": "Asia/Jerusalem",
	"ae": "Asia/Dubai",
	"se": "Europe/Stockholm",
	"no": "Europe/Oslo",
	"dk": "Europe/Copenhagen",
	"fi": "Europe/Helsinki",
}

var timezoneByAbbreviation = map[string]string{
	"pst":   "America/Los_Angeles",
	"pdt":   "America/Los_Angeles",
	"est":   "America/New_York",
	"edt":   "America/New_York",
	"cst":   "America/Chicago",
	"cdt":   "America/Chicago",
	"mst":   "America/Denver",
	"mdt":   "America/Denver",
	"bst":   "Europe/London",
	"cet":   "Europe/Berlin",
	"cest":  "Europe/Berlin",
	"ist":   "Asia/Kolkata",
	"sgt":   "Asia/Singapore",
	"hkt":   "Asia/Hong_Kong",
	"aest":  "Australia/Sydney",
	"aedst": "Australia/Sydney",
}

// NormalizeTimezone attempts to resolve user input into a valid IANA timezone.
// Abbreviations resolve to a DST-observing region before the zone database is
// consulted, so "EST" yields America/New_York rather than the fixed EST zone.
func NormalizeTimezone(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("timezone cannot be empty")
	}

	lower := strings.ToLower(trimmed)
	if tz, ok := timezoneByAbbreviation[lower]; ok {
		return tz, nil
	}

	// First, check if the input is already a valid timezone
	if isValidTimezone(trimmed) {
		// For valid timezones, always canonicalize to ensure proper IANA format
		// This handles cases like "america/New_york" which may be parseable but not canonical
		canonicalized := canonicalizeValidTimezone(trimmed)
		if canonicalized != "" {
			return canonicalized, nil
		}
		// If canonicalization fails but timezone is valid, return as-is
		// This preserves properly formatted names like "America/Port_of_Spain"
		return trimmed, nil
	}

	// Try sanitizing only if the raw input isn't valid
	candidate := sanitizeTimezone(trimmed)
	if isValidTimezone(candidate) {
		return candidate, nil
	}

	if tz := GuessTimezoneFromLocation(lower); tz != "" {
		return tz, nil
	}

	if tz, ok := countryCodeTimezones[lower]; ok {
		return tz, nil
	}

	return "", errors.Newf("unknown timezone: %s", input)
}

// GuessTimezoneFromLocation uses keyword heuristics to derive a timezone.
func GuessTimezoneFromLocation(location string) string {
	lower := strings.ToLower(strings.TrimSpace(location))
	for keyword, timezone := range locationKeywordTimezones {
		if strings.Contains(lower, keyword) {
			return timezone
		}
	}
	return ""
}

// DetectLocalTimezone attempts to determine the host operating system timezone.
func DetectLocalTimezone() (string, error) {
	if tz := os.Getenv("TZ"); tz != "" {
		if isValidTimezone(tz) {
			return tz, nil
		}
	}

	if name := time.Now().Location().String(); name != "" && name != "Local" {
		if isValidTimezone(name) {
			return name, nil
		}
	}

	if data, err := os.ReadFile("/etc/timezone"); err == nil {
		tz := sanitizeTimezone(string(data))
		if isValidTimezone(tz) {
			return tz, nil
		}
	}

	if tz, err := readZoneinfoSymlink("/etc/localtime"); err == nil && tz != "" {
		return tz, nil
	}
	if tz, err := readZoneinfoSymlink("/var/db/timezone/zoneinfo/localtime"); err == nil && tz != "" {
		return tz, nil
	}

	return "", errors.New("could not detect local timezone: tried TZ env var, time.Now().Location(), /etc/timezone, /etc/localtime, /var/db/timezone/zoneinfo/localtime")
}

func readZoneinfoSymlink(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	idx := strings.Index(resolved, "zoneinfo")
	if idx == -1 {
		return "", errors.New("zoneinfo segment not found")
	}
	candidate := strings.TrimPrefix(resolved[idx+len("zoneinfo"):], string(filepath.Separator))
	candidate = strings.ReplaceAll(candidate, string(os.PathSeparator), "/")
	candidate = sanitizeTimezone(candidate)
	if isValidTimezone(candidate) {
		return candidate, nil
	}
	return "", errors.Newf("invalid timezone: %q (from %s)", candidate, path)
}

func sanitizeTimezone(tz string) string {
	trimmed := strings.TrimSpace(tz)
	trimmed = strings.Trim(trimmed, "\"'")
	trimmed = strings.ReplaceAll(trimmed, " ", "_")
	if strings.Contains(trimmed, "/") {
		parts := strings.Split(trimmed, "/")
		for i, part := range parts {
			parts[i] = title(part)
		}
		return strings.Join(parts, "/")
	}
	return title(trimmed)
}

func title(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func isValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// canonicalizeValidTimezone attempts to return the canonical IANA name for a valid timezone
// This ensures proper formatting for cases like "america/New_york" -> "America/New_York"
// but preserves properly formatted names like "America/Port_of_Spain"
func canonicalizeValidTimezone(tz string) string {
	// Only canonicalize if the timezone appears to have incorrect capitalization
	// Check if it's all lowercase or has clear formatting issues
	if strings.ToLower(tz) == tz || hasIncorrectCapitalization(tz) {
		candidate := sanitizeTimezone(tz)
		if isValidTimezone(candidate) && candidate != tz {
			return candidate
		}
	}
	// For properly formatted timezones, return empty to preserve original
	return ""
}

// hasIncorrectCapitalization detects timezones that need case correction
// but aren't already properly formatted IANA names
func hasIncorrectCapitalization(tz string) bool {
	// If it's all lowercase, it needs correction
	if strings.ToLower(tz) == tz {
		return true
	}

	// If it starts with lowercase after a slash, it needs correction
	// e.g., "america/New_York" should be "America/New_York"
	if strings.Contains(tz, "/") {
		parts := strings.Split(tz, "/")
		for _, part := range parts {
			if len(part) > 0 && part[0] >= 'a' && part[0] <= 'z' {
				return true
			}
		}
	}

	return false
}
