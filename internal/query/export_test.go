package query

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

func TestExportCSVWithHeader(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	var buf bytes.Buffer
	opts := model.ExportOptions{Format: model.ExportCSV, IncludeHeader: true, Fields: []string{"lineNumber", "level", "message"}}
	if err := Export(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, opts, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (header + 3 entries), output:\n%s", len(lines), buf.String())
	}
	if lines[0] != "lineNumber,level,message" {
		t.Errorf("header = %q", lines[0])
	}
}

func TestExportJSONProducesArray(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	var buf bytes.Buffer
	opts := model.ExportOptions{Format: model.ExportJSON}
	if err := Export(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, opts, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var entries []model.LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestExportNDJSONOneObjectPerLine(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	var buf bytes.Buffer
	opts := model.ExportOptions{Format: model.ExportNDJSON}
	if err := Export(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, opts, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for _, l := range lines {
		var e model.LogEntry
		if err := json.Unmarshal([]byte(l), &e); err != nil {
			t.Errorf("line not valid JSON: %v", err)
		}
	}
}

func TestExportRespectsMaxRecords(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	var buf bytes.Buffer
	opts := model.ExportOptions{Format: model.ExportNDJSON, MaxRecords: 2}
	if err := Export(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, opts, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (capped by MaxRecords)", len(lines))
	}
}

func TestExportUnsupportedFormatErrors(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	var buf bytes.Buffer
	opts := model.ExportOptions{Format: model.ExportFormat("xml")}
	if err := Export(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, opts, &buf); err == nil {
		t.Fatalf("Export with unsupported format error = nil")
	}
}
