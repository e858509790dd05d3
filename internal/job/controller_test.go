package job

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalibo/logforge/internal/config"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/parser"
	"github.com/dalibo/logforge/internal/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ProcessingThreadCore = 1
	cfg.ProcessingThreadMax = 2
	cfg.ProcessingBufferSize = 16
	cfg.ProcessingBatchSize = 10
	return cfg
}

func waitForTerminal(t *testing.T, c *Controller, jobID string) model.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s, err := c.GetStatus(jobID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if s.State == model.JobCompleted || s.State == model.JobFailed {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state in time", jobID)
	return model.JobStatus{}
}

func TestControllerSubmitAndCompleteJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	content := "2024-06-01 10:00:00.000 INFO 1 --- [main] com.acme.App : service started\n" +
		"2024-06-01 10:00:01.000 ERROR 1 --- [main] com.acme.App : disk full\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := store.NewMemStore()
	c := NewController(parser.NewRegistry(), st, testConfig())

	jobID, err := c.SubmitJob(path, "app.log", int64(len(content)), "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	status := waitForTerminal(t, c, jobID)
	if status.State != model.JobCompleted {
		t.Fatalf("final state = %v, want Completed (error: %s)", status.State, status.Error)
	}
	if status.TotalLines != 2 {
		t.Errorf("TotalLines = %d, want 2", status.TotalLines)
	}
	if status.SuccessfulLines != 2 {
		t.Errorf("SuccessfulLines = %d, want 2", status.SuccessfulLines)
	}
	if status.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", status.ErrorCount)
	}

	result, err := c.GetResult(jobID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.State != model.JobCompleted {
		t.Errorf("Result.State = %v", result.State)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file %s was not removed after processing", path)
	}
}

func TestControllerJobMissingFileFails(t *testing.T) {
	st := store.NewMemStore()
	c := NewController(parser.NewRegistry(), st, testConfig())

	jobID, err := c.SubmitJob("/nonexistent/path/app.log", "app.log", 0, "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	status := waitForTerminal(t, c, jobID)
	if status.State != model.JobFailed {
		t.Fatalf("final state = %v, want Failed", status.State)
	}
	if status.Error == "" {
		t.Errorf("expected a non-empty Error message on failure")
	}
}

func TestControllerGetStatusUnknownJob(t *testing.T) {
	c := NewController(parser.NewRegistry(), store.NewMemStore(), testConfig())
	if _, err := c.GetStatus("does-not-exist"); err == nil {
		t.Errorf("GetStatus(unknown) error = nil, want not-found error")
	}
}

func TestControllerGetResultAfterCompletionSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("2024-06-01 10:00:00.000 INFO 1 --- [main] a : hi\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := NewController(parser.NewRegistry(), store.NewMemStore(), testConfig())
	jobID, err := c.SubmitJob(path, "app.log", 10, "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	waitForTerminal(t, c, jobID)

	if _, err := c.GetResult(jobID); err != nil {
		t.Errorf("GetResult after completion returned error: %v", err)
	}
}

func TestControllerBlankLinesOnlyLeaveProcessedLinesZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.log")
	content := "\n\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := store.NewMemStore()
	c := NewController(parser.NewRegistry(), st, testConfig())

	jobID, err := c.SubmitJob(path, "blank.log", int64(len(content)), "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	status := waitForTerminal(t, c, jobID)
	if status.State != model.JobCompleted {
		t.Fatalf("final state = %v, want Completed (error: %s)", status.State, status.Error)
	}
	if status.TotalLines != 3 {
		t.Errorf("TotalLines = %d, want 3", status.TotalLines)
	}
	// every line is blank and therefore skipped, never reaching Success or
	// Failed, so processedLines = successfulLines + failedLines = 0.
	if status.ProcessedLines != 0 {
		t.Errorf("ProcessedLines = %d, want 0 (all lines skipped)", status.ProcessedLines)
	}
	if status.SuccessfulLines != 0 {
		t.Errorf("SuccessfulLines = %d, want 0", status.SuccessfulLines)
	}
	if status.FailedLines != 0 {
		t.Errorf("FailedLines = %d, want 0", status.FailedLines)
	}
}

func TestControllerMultiLineStackTraceKeepsProcessedLinesInvariant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.log")
	content := "2024-06-01 10:00:00.000 INFO 1 --- [main] com.acme.App : service started\n" +
		"2024-06-01 10:00:01.000 ERROR 1 --- [main] com.acme.App : NullPointerException\n" +
		"at com.acme.App.run(App.java:42)\n" +
		"at com.acme.App.main(App.java:10)\n" +
		"2024-06-01 10:00:02.000 INFO 1 --- [main] com.acme.App : recovered\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := store.NewMemStore()
	c := NewController(parser.NewRegistry(), st, testConfig())

	jobID, err := c.SubmitJob(path, "stack.log", int64(len(content)), "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	status := waitForTerminal(t, c, jobID)
	if status.State != model.JobCompleted {
		t.Fatalf("final state = %v, want Completed (error: %s)", status.State, status.Error)
	}
	if status.TotalLines != 5 {
		t.Errorf("TotalLines = %d, want 5", status.TotalLines)
	}
	// the buffered entry and its two continuation lines are not terminal
	// outcomes by themselves; only the 3 finalized entries (plain, stack
	// trace entry, trailing line) count toward processed/successful lines.
	if status.ProcessedLines != status.SuccessfulLines+status.FailedLines {
		t.Errorf("ProcessedLines = %d, want SuccessfulLines(%d)+FailedLines(%d)", status.ProcessedLines, status.SuccessfulLines, status.FailedLines)
	}
	if status.SuccessfulLines != 3 {
		t.Errorf("SuccessfulLines = %d, want 3", status.SuccessfulLines)
	}
}

func TestControllerSweepExpiredRemovesOldTerminalJobs(t *testing.T) {
	c := NewController(parser.NewRegistry(), store.NewMemStore(), testConfig())

	past := time.Now().Add(-model.JobTTL - time.Hour)
	c.statuses.put(&model.JobStatus{
		JobID:       "old-job",
		State:       model.JobCompleted,
		UpdatedAt:   past,
		CompletedAt: &past,
	})

	removed := c.SweepExpired()
	if removed != 1 {
		t.Fatalf("SweepExpired removed = %d, want 1", removed)
	}
	if _, err := c.GetStatus("old-job"); err == nil {
		t.Errorf("expected old-job to be gone after sweep")
	}
}
