package parser

import (
	"testing"

	"github.com/dalibo/logforge/internal/model"
)

func TestCSVParserHeaderDetectionAndRouting(t *testing.T) {
	p := NewCSVParser()
	ctx := model.NewParseContext("job-1", "app.csv", "", false)

	header := p.ParseLine("timestamp,level,message,user", 1, ctx)
	if header.Kind != model.OutcomeSkipped {
		t.Fatalf("header row outcome = %v, want Skipped", header.Kind)
	}

	row := p.ParseLine("2024-06-01 10:00:00,ERROR,disk full,alice", 2, ctx)
	if row.Kind != model.OutcomeSuccess {
		t.Fatalf("data row outcome = %v, want Success", row.Kind)
	}
	e := row.Entry
	if e.Level != model.LevelError {
		t.Errorf("Level = %q, want ERROR", e.Level)
	}
	if e.Message != "disk full" {
		t.Errorf("Message = %q", e.Message)
	}
	if v, ok := e.Metadata["user"]; !ok || v != "alice" {
		t.Errorf("Metadata[user] = %v, ok=%v", v, ok)
	}
}

func TestCSVParserPositionalHeaderWhenNoneDetected(t *testing.T) {
	p := NewCSVParser()
	ctx := model.NewParseContext("job-1", "app.csv", "", false)

	// A numeric cell (the request ID) keeps looksLikeHeader from treating
	// this first row as a header, so it falls through to the positional
	// timestamp/level/message column defaults.
	row := p.ParseLine("2024-06-01 10:00:00,INFO,service started,42", 1, ctx)
	if row.Kind != model.OutcomeSuccess {
		t.Fatalf("outcome = %v, want Success", row.Kind)
	}
	if row.Entry.Message != "service started" {
		t.Errorf("Message = %q, want positional column 2 to map to message", row.Entry.Message)
	}
	if v, ok := row.Entry.Metadata["column_3"]; !ok || v != 42 {
		t.Errorf("Metadata[column_3] = %v, ok=%v, want 42", v, ok)
	}
}

func TestCSVParserDelimiterDetection(t *testing.T) {
	p := NewCSVParser()
	ctx := model.NewParseContext("job-1", "app.tsv", "", false)

	p.ParseLine("timestamp\tlevel\tmessage", 1, ctx)
	row := p.ParseLine("2024-06-01 10:00:00\tWARN\tqueue backing up", 2, ctx)
	if row.Kind != model.OutcomeSuccess {
		t.Fatalf("outcome = %v, want Success", row.Kind)
	}
	if row.Entry.Message != "queue backing up" {
		t.Errorf("Message = %q", row.Entry.Message)
	}
}

func TestCoerceType(t *testing.T) {
	tests := []struct {
		raw  string
		want interface{}
	}{
		{"true", true},
		{"42", int(42)},
		{"3.14", float64(3.14)},
		{"hello", "hello"},
	}
	for _, tt := range tests {
		if got := coerceType(tt.raw); got != tt.want {
			t.Errorf("coerceType(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
		}
	}
}
