package shared

import "time"

const dateOnly = "2006-01-02"

// ParseDate accepts RFC3339 or a plain YYYY-MM-DD calendar date, which is
// how leave ranges arrive from clients. Empty input parses to the zero
// time so optional query parameters can fall through to defaults.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(dateOnly, value)
}
