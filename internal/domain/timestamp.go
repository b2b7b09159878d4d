package domain

import (
	"strings"
	"time"
)

// TimestampLayout renders UTC instants with a literal Z suffix and up to
// microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.999999Z07:00"

// Accepted input layouts. Layouts without a zone are read as UTC.
// Fractional seconds are accepted after any seconds field.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04-07",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeTimestamp converts t to UTC and drops precision below a microsecond,
// which is the finest resolution every supported database keeps.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatTimestamp renders t as an ISO-8601 UTC string ending in "Z".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp supplied for field.
// Values without zone information are interpreted as UTC; values with an
// offset are converted to UTC.
func ParseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, NewValidationError(field, "is required", ErrValidation)
	}
	if strings.HasSuffix(value, "z") {
		value = value[:len(value)-1] + "Z"
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return NormalizeTimestamp(t), nil
		}
	}

	return time.Time{}, NewValidationError(field, "must be an ISO-8601 timestamp", ErrInvalidFormat)
}
