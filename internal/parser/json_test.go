package parser

import (
	"testing"

	"github.com/dalibo/logforge/internal/model"
)

func TestJSONParserCanParse(t *testing.T) {
	p := NewJSONParser()
	tests := []struct {
		sample string
		want   bool
	}{
		{`{"level":"INFO","message":"hi"}`, true},
		{"{\"a\":1}\n{\"a\":2}", true},
		{"[{\"a\":1},{\"a\":2}", true},
		{"not json at all", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.CanParse("app.log", tt.sample); got != tt.want {
			t.Errorf("CanParse(%q) = %v, want %v", tt.sample, got, tt.want)
		}
	}
}

func TestJSONParserParseLine(t *testing.T) {
	p := NewJSONParser()
	ctx := model.NewParseContext("job-1", "app.json", "", false)

	line := `{"timestamp":"2024-06-01T10:00:00Z","level":"warn","message":"disk low","logger":"com.acme.Disk","extra":"field"}`
	outcome := p.ParseLine(line, 1, ctx)

	if outcome.Kind != model.OutcomeSuccess {
		t.Fatalf("ParseLine outcome = %v, want Success", outcome.Kind)
	}
	e := outcome.Entry
	if e.Level != model.LevelWarn {
		t.Errorf("Level = %q, want WARN", e.Level)
	}
	if e.Message != "disk low" {
		t.Errorf("Message = %q", e.Message)
	}
	if e.Logger != "com.acme.Disk" {
		t.Errorf("Logger = %q", e.Logger)
	}
	if e.Source != "Disk" {
		t.Errorf("Source = %q, want last segment of logger", e.Source)
	}
	if v, ok := e.Metadata["extra"]; !ok || v != "field" {
		t.Errorf("Metadata[extra] = %v, ok=%v", v, ok)
	}
}

func TestJSONParserStackTracePromotesLevel(t *testing.T) {
	p := NewJSONParser()
	ctx := model.NewParseContext("job-1", "app.json", "", false)

	line := `{"message":"boom","exception":"java.lang.NullPointerException"}`
	outcome := p.ParseLine(line, 1, ctx)
	if outcome.Kind != model.OutcomeSuccess {
		t.Fatalf("ParseLine outcome = %v, want Success", outcome.Kind)
	}
	if outcome.Entry.Level != model.LevelError {
		t.Errorf("Level = %q, want ERROR when a stack trace is present with no explicit level", outcome.Entry.Level)
	}
	if !outcome.Entry.HasStackTrace {
		t.Errorf("HasStackTrace = false")
	}
}

func TestJSONParserMalformedLineFails(t *testing.T) {
	p := NewJSONParser()
	ctx := model.NewParseContext("job-1", "app.json", "", false)

	outcome := p.ParseLine("{not valid json", 1, ctx)
	if outcome.Kind != model.OutcomeFailed {
		t.Errorf("ParseLine outcome = %v, want Failed", outcome.Kind)
	}
}

func TestJSONParserEmptyLineSkipped(t *testing.T) {
	p := NewJSONParser()
	ctx := model.NewParseContext("job-1", "app.json", "", false)

	outcome := p.ParseLine("   ", 1, ctx)
	if outcome.Kind != model.OutcomeSkipped {
		t.Errorf("ParseLine outcome = %v, want Skipped", outcome.Kind)
	}
}
