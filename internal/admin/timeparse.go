package admin

import (
	"strconv"
	"strings"
	"time"
)

// Timestamp layouts seen across the two backends, including legacy
// writers that stored local wall-clock strings without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// epochMillisThreshold separates epoch-second from epoch-millisecond
// values. Anything above it (~Sep 2001 in milliseconds) is millis.
const epochMillisThreshold = 1e12

// ParseFlexibleTime normalizes a timestamp of unknown provenance.
// Accepts RFC3339-ish strings, epoch seconds and epoch milliseconds
// (numeric or string-encoded). Returns nil rather than an error on
// anything unparseable: a bad timestamp must not fail the row.
func ParseFlexibleTime(v any) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case string:
		return parseTimeString(t)
	case float64:
		return fromEpoch(t)
	case int64:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	default:
		return nil
	}
}

func parseTimeString(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			u := parsed.UTC()
			return &u
		}
	}
	// Numeric strings are epoch values
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(n)
	}
	return nil
}

func fromEpoch(n float64) *time.Time {
	if n <= 0 {
		return nil
	}
	var t time.Time
	if n >= epochMillisThreshold {
		t = time.UnixMilli(int64(n)).UTC()
	} else {
		t = time.Unix(int64(n), 0).UTC()
	}
	return &t
}
