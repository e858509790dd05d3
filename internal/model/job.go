package model

import "time"

// JobState is the lifecycle state of an ingestion job. Transitions are
// strictly monotone: QUEUED -> PROCESSING -> {COMPLETED, FAILED}.
type JobState string

const (
	JobQueued     JobState = "QUEUED"
	JobProcessing JobState = "PROCESSING"
	JobCompleted  JobState = "COMPLETED"
	JobFailed     JobState = "FAILED"
)

// jobTransitions enumerates the only legal state-to-state moves.
var jobTransitions = map[JobState][]JobState{
	JobQueued:     {JobProcessing},
	JobProcessing: {JobCompleted, JobFailed},
	JobCompleted:  {},
	JobFailed:     {},
}

// CanTransition reports whether moving from "from" to "to" is legal.
func CanTransition(from, to JobState) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// JobStatus is the process-wide observable state of one upload, keyed by
// JobID. The owning worker is the only writer; readers (status polling)
// see whole-record snapshots.
type JobStatus struct {
	JobID string   `json:"jobId"`
	State JobState `json:"state"`

	Progress int    `json:"progress"` // 0..100
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`

	TotalLines      int `json:"totalLines"`
	ProcessedLines  int `json:"processedLines"`
	SuccessfulLines int `json:"successfulLines"`
	FailedLines     int `json:"failedLines"`

	StartedAt         time.Time  `json:"startedAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	ProcessingTimeMs  int64      `json:"processingTimeMs"`
	LinesPerSecond    float64    `json:"linesPerSecond"`

	FileName         string `json:"fileName"`
	FileSize         int64  `json:"fileSize"`
	TimestampFormat  string `json:"timestampFormat,omitempty"`

	LevelCounts map[Level]int `json:"levelCounts,omitempty"`
	ErrorCount  int           `json:"errorCount"`
}

// JobTTL is how long a terminal JobStatus is retained before it may be
// reclaimed (§3). This governs only the in-process status map, not the
// indexed LogEntry documents (see SPEC_FULL.md Open Question 1).
const JobTTL = 24 * time.Hour

// Expired reports whether a terminal job's status is past its TTL relative
// to "now".
func (j *JobStatus) Expired(now time.Time) bool {
	if j.State != JobCompleted && j.State != JobFailed {
		return false
	}
	if j.CompletedAt == nil {
		return false
	}
	return now.Sub(*j.CompletedAt) > JobTTL
}

// Touch advances UpdatedAt. Every transition or progress report calls this.
func (j *JobStatus) Touch(now time.Time) {
	j.UpdatedAt = now
}

// TransitionTo moves the job to a new state if legal, updating timing
// fields. Returns false (and leaves the status untouched) if the
// transition is not allowed by the state machine.
func (j *JobStatus) TransitionTo(state JobState, now time.Time) bool {
	if !CanTransition(j.State, state) {
		return false
	}
	j.State = state
	j.Touch(now)
	if state == JobCompleted || state == JobFailed {
		j.CompletedAt = &now
		j.ProcessingTimeMs = now.Sub(j.StartedAt).Milliseconds()
		if j.ProcessingTimeMs > 0 {
			j.LinesPerSecond = float64(j.ProcessedLines) / (float64(j.ProcessingTimeMs) / 1000.0)
		}
	}
	return true
}
