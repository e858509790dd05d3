package model

import "testing"
import "time"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobState
		want     bool
	}{
		{JobQueued, JobProcessing, true},
		{JobQueued, JobCompleted, false},
		{JobProcessing, JobCompleted, true},
		{JobProcessing, JobFailed, true},
		{JobCompleted, JobProcessing, false},
		{JobFailed, JobProcessing, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestJobStatusTransitionTo(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j := &JobStatus{State: JobQueued, StartedAt: start, ProcessedLines: 100}

	if !j.TransitionTo(JobProcessing, start.Add(time.Second)) {
		t.Fatalf("expected QUEUED -> PROCESSING to be legal")
	}
	if j.State != JobProcessing {
		t.Errorf("State = %s, want PROCESSING", j.State)
	}

	completedAt := start.Add(10 * time.Second)
	if !j.TransitionTo(JobCompleted, completedAt) {
		t.Fatalf("expected PROCESSING -> COMPLETED to be legal")
	}
	if j.CompletedAt == nil || !j.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt = %v, want %v", j.CompletedAt, completedAt)
	}
	if j.ProcessingTimeMs != 10000 {
		t.Errorf("ProcessingTimeMs = %d, want 10000", j.ProcessingTimeMs)
	}
	if j.LinesPerSecond != 10 {
		t.Errorf("LinesPerSecond = %v, want 10", j.LinesPerSecond)
	}

	if j.TransitionTo(JobFailed, completedAt.Add(time.Second)) {
		t.Errorf("expected COMPLETED -> FAILED to be illegal (terminal state)")
	}
}

func TestJobStatusExpired(t *testing.T) {
	completedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j := &JobStatus{State: JobCompleted, CompletedAt: &completedAt}

	if j.Expired(completedAt.Add(JobTTL - time.Minute)) {
		t.Errorf("job reported expired before its TTL elapsed")
	}
	if !j.Expired(completedAt.Add(JobTTL + time.Minute)) {
		t.Errorf("job reported not expired after its TTL elapsed")
	}

	running := &JobStatus{State: JobProcessing}
	if running.Expired(completedAt.Add(JobTTL * 2)) {
		t.Errorf("a non-terminal job must never expire")
	}
}
