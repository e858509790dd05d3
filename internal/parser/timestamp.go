package parser

import (
	"strconv"
	"strings"
	"time"
)

// fallbackLayouts is tried, in order, after the context's user-supplied
// pattern, ISO-8601, and epoch have all failed (§4.3.4 step d).
var fallbackLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05,000",
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"02/Jan/2006:15:04:05",
	"Jan 02, 2006 15:04:05",
	"Jan 02 15:04:05",
	"Jan _2 15:04:05",
}

// isoLayouts covers local, offset, and instant ISO-8601 variants (§4.3.4
// step b).
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// ParseTimestamp attempts, in the order mandated by §4.3.4, to parse raw as
// a timestamp: (a) userPattern if non-empty, (b) ISO-8601, (c) epoch, (d)
// the fixed fallback layout list. now is used both as the final fallback
// value and to fill in the current year for layouts (e.g. syslog) that
// omit one.
func ParseTimestamp(raw string, userPattern string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}

	if userPattern != "" {
		if t, err := time.Parse(goLayout(userPattern), raw); err == nil {
			return t
		}
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}

	if t, ok := parseEpoch(raw); ok {
		return t
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.Year() == 0 {
				t = t.AddDate(now.Year(), 0, 0)
			}
			return t
		}
	}

	return now
}

// ParseTimestampValue parses a JSON-native scalar (string or number) per
// the numeric-epoch rule of §4.3.2: values above 10^12 are treated as
// millisecond epochs, otherwise second epochs.
func ParseTimestampValue(val interface{}, userPattern string, now time.Time) time.Time {
	switch v := val.(type) {
	case string:
		return ParseTimestamp(v, userPattern, now)
	case float64:
		return epochFromFloat(v)
	case int64:
		return epochFromFloat(float64(v))
	default:
		return now
	}
}

func epochFromFloat(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// parseEpoch recognizes a bare numeric timestamp (§4.3.4 step c).
func parseEpoch(raw string) (time.Time, bool) {
	for _, r := range raw {
		if (r < '0' || r > '9') && r != '.' {
			return time.Time{}, false
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, false
	}
	return epochFromFloat(f), true
}

// goLayout translates a small set of common Java/PostgreSQL-style pattern
// tokens (yyyy, MM, dd, HH, mm, ss, SSS) into a Go reference-time layout,
// covering the "user-supplied pattern" case of §4.3.4 step a without
// pulling in a full pattern-translation library.
func goLayout(pattern string) string {
	replacer := strings.NewReplacer(
		"yyyy", "2006",
		"MM", "01",
		"dd", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
		"SSS", "000",
	)
	return replacer.Replace(pattern)
}
