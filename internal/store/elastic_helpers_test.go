package store

import "testing"

func TestContainsWildcard(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"exact", false},
		{"prefix*", true},
		{"a?c", true},
		{"", false},
	}
	for _, c := range cases {
		if got := containsWildcard(c.in); got != c.want {
			t.Errorf("containsWildcard(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestResolveInterval(t *testing.T) {
	cases := []struct {
		in           string
		wantInterval string
		wantCalendar bool
	}{
		{"1d", "day", true},
		{"1w", "week", true},
		{"1M", "month", true},
		{"5m", "5m", false},
		{"1h", "1h", false},
		{"unknown", "1h", false},
	}
	for _, c := range cases {
		interval, calendar := resolveInterval(c.in)
		if interval != c.wantInterval || calendar != c.wantCalendar {
			t.Errorf("resolveInterval(%q) = (%q, %v), want (%q, %v)", c.in, interval, calendar, c.wantInterval, c.wantCalendar)
		}
	}
}
