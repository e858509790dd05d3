package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dalibo/logforge/internal/batch"
	"github.com/dalibo/logforge/internal/config"
	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/parser"
	"github.com/dalibo/logforge/internal/reader"
	"github.com/dalibo/logforge/internal/store"
)

// ephemeralIdleTimeout is how long a pool worker spawned above core size
// waits for a task before exiting, shrinking the pool back toward core
// (§5 core/max thread pool).
const ephemeralIdleTimeout = 30 * time.Second

// Task is one ingestion job handed to the worker pool.
type Task struct {
	JobID           string
	FilePath        string
	FileName        string
	FileSize        int64
	TimestampFormat string
}

// Result is the terminal view getResult returns: counters plus level
// distribution (§4.5).
type Result struct {
	JobID           string          `json:"jobId"`
	State           model.JobState  `json:"state"`
	TotalLines      int             `json:"totalLines"`
	ProcessedLines  int             `json:"processedLines"`
	SuccessfulLines int             `json:"successfulLines"`
	FailedLines     int             `json:"failedLines"`
	LevelCounts     map[model.Level]int `json:"levelCounts"`
	ErrorCount      int             `json:"errorCount"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	LinesPerSecond  float64         `json:"linesPerSecond"`
	FileName        string          `json:"fileName"`
	FileSize        int64           `json:"fileSize"`
	StartedAt       time.Time       `json:"startedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// Controller orchestrates the ingestion pipeline (§4.5): it owns the
// JobStatus registry and a bounded worker pool, grounded on the teacher's
// fileChan+sync.WaitGroup worker pool in cmd/execute.go, adapted from a
// one-shot batch-of-files run to a long-lived server pool that accepts
// jobs continuously and grows from core to max size under backpressure.
type Controller struct {
	statuses *statusRegistry

	queue chan Task
	core  int
	max   int
	// active counts every worker currently running, persistent and
	// ephemeral, to enforce max without a second lock.
	active int32

	parsers *parser.Registry
	store   store.Store
	cfg     config.Config
}

// NewController builds a Controller and starts its core workers.
func NewController(parsers *parser.Registry, st store.Store, cfg config.Config) *Controller {
	core := cfg.ProcessingThreadCore
	if core <= 0 {
		core = 4
	}
	max := cfg.ProcessingThreadMax
	if max < core {
		max = core
	}
	queueSize := cfg.ProcessingBufferSize
	if queueSize <= 0 {
		queueSize = 8192
	}

	c := &Controller{
		statuses: newStatusRegistry(),
		queue:    make(chan Task, queueSize),
		core:     core,
		max:      max,
		parsers:  parsers,
		store:    st,
		cfg:      cfg,
	}

	for i := 0; i < core; i++ {
		atomic.AddInt32(&c.active, 1)
		go c.persistentWorker()
	}
	return c
}

// SubmitJob enqueues a new ingestion task and returns its jobId
// immediately (§4.5 step 1). Returns a capacity-exhausted error if the
// bounded queue is full and the pool is already at max size.
func (c *Controller) SubmitJob(filePath, fileName string, fileSize int64, timestampFormat string) (string, error) {
	jobID := uuid.NewString()
	now := time.Now()

	c.statuses.put(&model.JobStatus{
		JobID:           jobID,
		State:           model.JobQueued,
		FileName:        fileName,
		FileSize:        fileSize,
		TimestampFormat: timestampFormat,
		StartedAt:       now,
		UpdatedAt:       now,
	})

	task := Task{
		JobID:           jobID,
		FilePath:        filePath,
		FileName:        fileName,
		FileSize:        fileSize,
		TimestampFormat: timestampFormat,
	}

	if !c.tryEnqueue(task) {
		return "", errkind.New(errkind.Internal, "ingestion queue is full, capacity exhausted")
	}
	return jobID, nil
}

// tryEnqueue attempts a non-blocking send, growing the pool past core (up
// to max) when the queue is already full.
func (c *Controller) tryEnqueue(t Task) bool {
	select {
	case c.queue <- t:
		return true
	default:
	}

	if int(atomic.LoadInt32(&c.active)) < c.max {
		atomic.AddInt32(&c.active, 1)
		go c.ephemeralWorker()
		c.queue <- t
		return true
	}
	return false
}

// GetStatus returns a snapshot of jobId's current status.
func (c *Controller) GetStatus(jobID string) (model.JobStatus, error) {
	s, ok := c.statuses.get(jobID)
	if !ok {
		return model.JobStatus{}, errkind.New(errkind.NotFound, fmt.Sprintf("job %q not found", jobID))
	}
	return s, nil
}

// GetResult returns the terminal counters and level distribution for a
// completed or failed job (§4.5). Returns not-found for an unknown jobId
// and an error for a job still queued or processing.
func (c *Controller) GetResult(jobID string) (Result, error) {
	s, ok := c.statuses.get(jobID)
	if !ok {
		return Result{}, errkind.New(errkind.NotFound, fmt.Sprintf("job %q not found", jobID))
	}
	if s.State != model.JobCompleted && s.State != model.JobFailed {
		return Result{}, errkind.New(errkind.Internal, fmt.Sprintf("job %q has not completed yet", jobID))
	}
	return Result{
		JobID:            s.JobID,
		State:            s.State,
		TotalLines:       s.TotalLines,
		ProcessedLines:   s.ProcessedLines,
		SuccessfulLines:  s.SuccessfulLines,
		FailedLines:      s.FailedLines,
		LevelCounts:      s.LevelCounts,
		ErrorCount:       s.ErrorCount,
		ProcessingTimeMs: s.ProcessingTimeMs,
		LinesPerSecond:   s.LinesPerSecond,
		FileName:         s.FileName,
		FileSize:         s.FileSize,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		Error:            s.Error,
	}, nil
}

// SweepExpired drops terminal statuses past their 24h TTL. Callers run it
// on a periodic ticker (see cmd/serve.go).
func (c *Controller) SweepExpired() int {
	return c.statuses.sweepExpired(time.Now())
}

func (c *Controller) persistentWorker() {
	for t := range c.queue {
		c.process(t)
	}
}

// ephemeralWorker handles tasks while the queue has backlog and exits once
// idle, shrinking the pool back toward core size.
func (c *Controller) ephemeralWorker() {
	defer atomic.AddInt32(&c.active, -1)
	timer := time.NewTimer(ephemeralIdleTimeout)
	defer timer.Stop()
	for {
		select {
		case t, ok := <-c.queue:
			if !ok {
				return
			}
			c.process(t)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(ephemeralIdleTimeout)
		case <-timer.C:
			return
		}
	}
}

// process runs one job's pipeline end to end (§4.5 steps 3-8), always
// deleting the uploaded temp file and never letting a panic escape to
// crash the worker.
func (c *Controller) process(t Task) {
	defer func() {
		if err := os.Remove(t.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("[WARN] job %s: failed to remove temp file %s: %v", t.JobID, t.FilePath, err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			c.fail(t.JobID, fmt.Sprintf("panic during ingestion: %v", r))
		}
	}()

	c.statuses.update(t.JobID, time.Now(), func(s *model.JobStatus) {
		s.TransitionTo(model.JobProcessing, time.Now())
	})

	if err := c.run(t); err != nil {
		c.fail(t.JobID, err.Error())
		return
	}
	c.complete(t.JobID)
}

var errSampleDone = errors.New("sample complete")

// sampleFile reads up to the registry's detection window through the stream
// reader's own decompression/BOM handling, so format sniffing sees exactly
// what the parser will see (§4.2).
func sampleFile(rd *reader.StreamReader, path string) (string, error) {
	var b []byte
	lines := 0
	_, err := rd.Each(path, 0, func(l reader.Line) error {
		if lines >= 10 || len(b) >= 4096 {
			return errSampleDone
		}
		b = append(b, l.Text...)
		b = append(b, '\n')
		lines++
		return nil
	})
	if err != nil && !errors.Is(err, errSampleDone) {
		return "", err
	}
	return string(b), nil
}

// counters tracks the running per-job line counters updated during run.
type counters struct {
	successful int
	failed     int
}

// processed implements the §8 invariant processedLines = successfulLines +
// failedLines: buffered/continuation/skipped outcomes are never counted,
// since they are not yet (and in the skipped case never will be) terminal.
func (c *counters) processed() int {
	return c.successful + c.failed
}

// run implements pipeline steps 3-6 (§4.5): parser selection, the
// streaming second pass with per-outcome routing, flush, and final
// level-count aggregation.
func (c *Controller) run(t Task) error {
	rd := reader.NewStreamReader(model.DefaultMaxLineLength)

	sample, err := sampleFile(rd, t.FilePath)
	if err != nil {
		return fmt.Errorf("sampling %s: %w", t.FileName, err)
	}

	p, err := c.parsers.Select(t.FileName, sample)
	if err != nil {
		return fmt.Errorf("selecting parser for %s: %w", t.FileName, err)
	}
	p.Reset()

	total, err := rd.CountLines(t.FilePath)
	if err != nil {
		return fmt.Errorf("counting lines in %s: %w", t.FileName, err)
	}

	c.statuses.update(t.JobID, time.Now(), func(s *model.JobStatus) {
		s.TotalLines = total
		s.Progress = 5
	})

	batchSize := c.cfg.ProcessingBatchSize
	ctr := &counters{}
	// onFlush runs synchronously on this job's own goroutine (batch.Batch
	// is confined to one worker, §5), so updating ctr here needs no lock.
	writer := batch.New(c.store, batchSize, true, func(flush batch.FlushStats, stats batch.Statistics) {
		ctr.successful += flush.Saved
		ctr.failed += flush.Attempted - flush.Saved
		c.statuses.update(t.JobID, time.Now(), func(s *model.JobStatus) {
			s.ProcessedLines = ctr.processed()
			s.SuccessfulLines = ctr.successful
			s.FailedLines = ctr.failed
		})
	})

	rd.OnProgress = func(current, totalLines int) {
		pct := ingestProgress(current, totalLines)
		c.statuses.update(t.JobID, time.Now(), func(s *model.JobStatus) {
			if pct > s.Progress {
				s.Progress = pct
			}
			s.ProcessedLines = ctr.processed()
			s.SuccessfulLines = ctr.successful
			s.FailedLines = ctr.failed
		})
	}

	ctx := model.NewParseContext(t.JobID, t.FileName, t.TimestampFormat, false)

	_, err = rd.Each(t.FilePath, total, func(l reader.Line) error {
		outcome := p.ParseLine(l.Text, l.Number, ctx)
		return c.route(outcome, writer, ctr)
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", t.FileName, err)
	}

	if flusher, ok := p.(parser.Flusher); ok {
		for {
			outcome := flusher.FlushPending(ctx)
			if outcome == nil {
				break
			}
			if err := c.route(*outcome, writer, ctr); err != nil {
				return fmt.Errorf("flushing pending entry in %s: %w", t.FileName, err)
			}
		}
	}

	if err := writer.Flush(context.Background()); err != nil {
		return fmt.Errorf("flushing batch for job %s: %w", t.JobID, err)
	}

	levelCounts, errorCount, err := c.store.LevelCounts(context.Background(), t.JobID)
	if err != nil {
		return fmt.Errorf("computing level counts for job %s: %w", t.JobID, err)
	}

	c.statuses.update(t.JobID, time.Now(), func(s *model.JobStatus) {
		s.ProcessedLines = ctr.processed()
		s.SuccessfulLines = ctr.successful
		s.FailedLines = ctr.failed
		s.LevelCounts = levelCounts
		s.ErrorCount = errorCount
	})
	return nil
}

// route dispatches one ParseOutcome per §4.3/§4.5 step 4: Success hands
// the entry to the batch writer, whose own onFlush callback updates the
// success/failure counters once the write actually lands (so a later
// storage failure is reflected, not assumed away at hand-off time);
// Continuation has already been appended to the buffered entry by the
// parser itself and needs no further action; Buffered and Skipped are not
// terminal outcomes and are never counted toward processedLines, so that
// processedLines = successfulLines + failedLines holds at every point, not
// just at job completion; Failed increments the failure counter
// immediately (it never reaches the batch writer).
func (c *Controller) route(outcome model.ParseOutcome, writer *batch.Batch, ctr *counters) error {
	switch outcome.Kind {
	case model.OutcomeSuccess:
		outcome.Entry.Normalize(time.Now())
		if err := writer.Add(context.Background(), outcome.Entry); err != nil {
			return err
		}
	case model.OutcomeFailed:
		ctr.failed++
	case model.OutcomeBuffered, model.OutcomeContinuation, model.OutcomeSkipped:
		// non-terminal: not yet (or never) counted in processed/success/failed
	}
	return nil
}

// ingestProgress implements the §4.5 progress formula: 5 + floor(current *
// 90 / total), reserving the last 5% for statistics computation and
// finalization. Returns 5 (the post-count-lines floor) when total is 0.
func ingestProgress(current, total int) int {
	if total <= 0 {
		return 5
	}
	pct := 5 + (current*90)/total
	if pct > 95 {
		pct = 95
	}
	return pct
}

func (c *Controller) complete(jobID string) {
	c.statuses.update(jobID, time.Now(), func(s *model.JobStatus) {
		s.TransitionTo(model.JobCompleted, time.Now())
		s.Progress = 100
	})
}

func (c *Controller) fail(jobID, message string) {
	c.statuses.update(jobID, time.Now(), func(s *model.JobStatus) {
		s.Error = message
		s.TransitionTo(model.JobFailed, time.Now())
	})
	log.Printf("[ERROR] job %s failed: %s", jobID, message)
}
