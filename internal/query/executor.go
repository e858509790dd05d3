package query

import (
	"context"
	"time"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

// Execute compiles and runs a search request against st, producing a full
// response envelope with pagination, optional summary/highlights and
// wall-clock timing (§4.7).
func Execute(ctx context.Context, st store.Store, req model.LogQueryRequest) (model.LogQueryResponse, error) {
	start := time.Now()
	req.ApplyDefaults()

	q, err := Compile(req)
	if err != nil {
		return model.LogQueryResponse{}, err
	}

	result, err := st.Search(ctx, q)
	if err != nil {
		return model.LogQueryResponse{}, errkind.Wrap(errkind.Storage, "search failed", err)
	}

	entries := make([]model.LogEntry, len(result.Entries))
	for i, e := range result.Entries {
		entries[i] = *e
	}

	return model.LogQueryResponse{
		Entries:     entries,
		Pagination:  model.NewPaginationInfo(q.Page, q.Size, result.Total),
		Summary:     result.Summary,
		Highlights:  result.Highlights,
		QueryTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Count runs the dedicated count compiler against st (§4.6).
func Count(ctx context.Context, st store.Store, req model.LogQueryRequest) (model.CountResult, error) {
	req.ApplyDefaults()

	q, err := CompileCount(req)
	if err != nil {
		return model.CountResult{}, err
	}
	total, err := st.Count(ctx, q)
	if err != nil {
		return model.CountResult{}, errkind.Wrap(errkind.Storage, "count failed", err)
	}
	return model.CountResult{Total: total}, nil
}

// Timeline runs the dedicated timeline compiler against st (§4.6).
func Timeline(ctx context.Context, st store.Store, req model.LogQueryRequest, interval string) (model.TimelineData, error) {
	req.ApplyDefaults()

	tq, err := CompileTimeline(req, interval)
	if err != nil {
		return model.TimelineData{}, err
	}
	data, err := st.Timeline(ctx, tq)
	if err != nil {
		return model.TimelineData{}, errkind.Wrap(errkind.Storage, "timeline failed", err)
	}
	return data, nil
}

// UniqueValues runs the dedicated unique-values compiler against st (§4.6).
func UniqueValues(ctx context.Context, st store.Store, req model.LogQueryRequest, field string, topN int) (model.UniqueValuesResult, error) {
	req.ApplyDefaults()

	uq, err := CompileUniqueValues(req, field, topN)
	if err != nil {
		return model.UniqueValuesResult{}, err
	}
	res, err := st.UniqueValues(ctx, uq)
	if err != nil {
		return model.UniqueValuesResult{}, errkind.Wrap(errkind.Storage, "unique values failed", err)
	}
	return res, nil
}

// JobMeta is the subset of C5 job metadata JobSummary needs. The HTTP
// layer supplies it from a job.Result so this package never has to import
// the job controller.
type JobMeta struct {
	JobID            string
	FileName         string
	FileSize         int64
	StartedAt        time.Time
	CompletedAt      *time.Time
	ProcessingTimeMs int64
	LinesPerSecond   float64
	TotalLines       int
	SuccessfulLines  int
	FailedLines      int
	LevelCounts      map[model.Level]int
	ErrorCount       int
}

// BuildJobSummary composes job metadata with a filter summary computed
// over that job's full result set (§4.7 JobSummary).
func BuildJobSummary(meta JobMeta, summary model.FilterSummary) model.JobSummary {
	var timeSpan float64
	if summary.MinTimestamp != nil && summary.MaxTimestamp != nil {
		timeSpan = summary.MaxTimestamp.Sub(*summary.MinTimestamp).Seconds()
	}
	return model.JobSummary{
		JobID:            meta.JobID,
		FileName:         meta.FileName,
		FileSize:         meta.FileSize,
		StartedAt:        meta.StartedAt,
		CompletedAt:      meta.CompletedAt,
		ProcessingTimeMs: meta.ProcessingTimeMs,
		LinesPerSecond:   meta.LinesPerSecond,
		TotalLines:       meta.TotalLines,
		SuccessfulLines:  meta.SuccessfulLines,
		FailedLines:      meta.FailedLines,
		LevelCounts:      meta.LevelCounts,
		ErrorCount:       meta.ErrorCount,
		WarningCount:     meta.LevelCounts[model.LevelWarn],
		TimeSpanSeconds:  timeSpan,
		UniqueLoggers:    summary.UniqueLoggers,
		UniqueThreads:    summary.UniqueThreads,
		UniqueSources:    summary.UniqueSources,
	}
}

// SummaryQuery builds a summary-only search (§4.7): size 1 is enough
// since only the aggregations are needed, not the hits.
func SummaryQuery(jobID string) model.LogQueryRequest {
	req := model.LogQueryRequest{JobID: jobID, IncludeSummary: true, Size: 1}
	req.ApplyDefaults()
	return req
}
