package query

import (
	"context"
	"testing"
	"time"

	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

func seed(t *testing.T, st store.Store, jobID string) {
	t.Helper()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	entries := []*model.LogEntry{
		{ID: "1", JobID: jobID, LineNumber: 1, Level: model.LevelInfo, Message: "service started", Logger: "com.acme.App", Timestamp: base},
		{ID: "2", JobID: jobID, LineNumber: 2, Level: model.LevelWarn, Message: "queue backing up", Logger: "com.acme.Queue", Timestamp: base.Add(time.Minute)},
		{ID: "3", JobID: jobID, LineNumber: 3, Level: model.LevelError, Message: "disk full", Logger: "com.acme.Disk", HasError: true, Timestamp: base.Add(2 * time.Minute)},
	}
	if err := st.BulkWrite(context.Background(), entries); err != nil {
		t.Fatalf("BulkWrite: %v", err)
	}
}

func TestExecuteAppliesDefaultsAndPaginates(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	resp, err := Execute(context.Background(), st, model.LogQueryRequest{JobID: "job-1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(resp.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(resp.Entries))
	}
	if resp.Pagination.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", resp.Pagination.TotalPages)
	}
}

func TestExecuteInvalidRequestReturnsValidationError(t *testing.T) {
	st := store.NewMemStore()
	_, err := Execute(context.Background(), st, model.LogQueryRequest{})
	if err == nil {
		t.Fatalf("Execute with missing jobId error = nil, want validation error")
	}
}

func TestCountReturnsFilteredTotal(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	res, err := Count(context.Background(), st, model.LogQueryRequest{JobID: "job-1", Levels: []string{"ERROR"}})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("Total = %d, want 1", res.Total)
	}
}

func TestTimelineDefaultsIntervalAndBuckets(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	data, err := Timeline(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, "")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if data.Interval != DefaultTimelineInterval {
		t.Errorf("Interval = %q, want %q", data.Interval, DefaultTimelineInterval)
	}
	if len(data.Buckets) != 1 {
		t.Fatalf("got %d buckets, want 1", len(data.Buckets))
	}
}

func TestTimelineRejectsUnsupportedInterval(t *testing.T) {
	st := store.NewMemStore()
	_, err := Timeline(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, "3h")
	if err == nil {
		t.Fatalf("Timeline with bad interval error = nil")
	}
}

func TestUniqueValuesRejectsNonKeywordField(t *testing.T) {
	st := store.NewMemStore()
	_, err := UniqueValues(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, "message", 0)
	if err == nil {
		t.Fatalf("UniqueValues(message) error = nil, want validation error (message is not a keyword field)")
	}
}

func TestUniqueValuesReturnsTerms(t *testing.T) {
	st := store.NewMemStore()
	seed(t, st, "job-1")

	res, err := UniqueValues(context.Background(), st, model.LogQueryRequest{JobID: "job-1"}, "logger", 0)
	if err != nil {
		t.Fatalf("UniqueValues: %v", err)
	}
	if len(res.Values) != 3 {
		t.Fatalf("got %d values, want 3 distinct loggers", len(res.Values))
	}
}

func TestBuildJobSummaryComputesTimeSpanAndWarnings(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)

	meta := JobMeta{
		JobID:       "job-1",
		StartedAt:   start,
		LevelCounts: map[model.Level]int{model.LevelWarn: 1, model.LevelError: 1},
	}
	summary := model.FilterSummary{
		MinTimestamp:  &start,
		MaxTimestamp:  &end,
		UniqueLoggers: 3,
	}

	js := BuildJobSummary(meta, summary)
	if js.TimeSpanSeconds != 120 {
		t.Errorf("TimeSpanSeconds = %v, want 120", js.TimeSpanSeconds)
	}
	if js.WarningCount != 1 {
		t.Errorf("WarningCount = %d, want 1", js.WarningCount)
	}
	if js.UniqueLoggers != 3 {
		t.Errorf("UniqueLoggers = %d, want 3", js.UniqueLoggers)
	}
}

func TestSummaryQueryRequestsSummaryWithMinimalSize(t *testing.T) {
	req := SummaryQuery("job-1")
	if !req.IncludeSummary {
		t.Errorf("IncludeSummary = false, want true")
	}
	if req.Size != 1 {
		t.Errorf("Size = %d, want 1", req.Size)
	}
}
