package domain

import (
	"strings"
	"time"
)

// zone-less layouts are read in the server time zone
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseDate parses a requested appointment date, reading zone-less input
// in time.Local.
func ParseDate(raw string) (time.Time, error) {
	return ParseDateIn(raw, time.Local)
}

// ParseDateIn is ParseDate with zone-less input read in loc. Input that
// carries an offset keeps it; callers align it to their own zone.
func ParseDateIn(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, NewValidationError("date", "is required")
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, NewValidationError("date", "must be an ISO-8601 timestamp")
}
