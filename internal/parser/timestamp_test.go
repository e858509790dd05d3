package parser

import (
	"testing"
	"time"
)

func TestParseTimestampChain(t *testing.T) {
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2024-06-01T10:00:00Z", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"epoch seconds", "1717236000", time.Unix(1717236000, 0).UTC()},
		{"epoch millis", "1717236000000", time.UnixMilli(1717236000000).UTC()},
		{"fallback space layout", "2024-06-01 10:00:00.123", time.Date(2024, 6, 1, 10, 0, 0, 123_000_000, time.UTC)},
		{"syslog layout fills in now's year", "Jun  1 10:00:00", time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"empty falls back to now", "", now},
		{"unparseable falls back to now", "not a date", now},
	}

	for _, tt := range tests {
		got := ParseTimestamp(tt.raw, "", now)
		if !got.Equal(tt.want) {
			t.Errorf("%s: ParseTimestamp(%q) = %v, want %v", tt.name, tt.raw, got, tt.want)
		}
	}
}

func TestParseTimestampUserPattern(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := ParseTimestamp("01/06/2024 10:00:00", "dd/MM/yyyy HH:mm:ss", now)
	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTimestamp with user pattern = %v, want %v", got, want)
	}
}

func TestParseTimestampValue(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := ParseTimestampValue(float64(1717236000000), "", now); !got.Equal(time.UnixMilli(1717236000000).UTC()) {
		t.Errorf("ParseTimestampValue(millis) = %v", got)
	}
	if got := ParseTimestampValue(float64(1717236000), "", now); !got.Equal(time.Unix(1717236000, 0).UTC()) {
		t.Errorf("ParseTimestampValue(seconds) = %v", got)
	}
	if got := ParseTimestampValue(nil, "", now); !got.Equal(now) {
		t.Errorf("ParseTimestampValue(nil) = %v, want now fallback", got)
	}
}
