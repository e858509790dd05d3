// Package query implements the Query Compiler (C6) and Query Executor &
// Summarizer (C7): it turns a declarative LogQueryRequest into a
// backend-agnostic store.CompiledQuery, runs it, and composes the
// aggregation-driven summaries, timelines and exports on top.
package query

import (
	"strings"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

// Compile validates req (§4.6 "Validation") and turns it into a
// store.CompiledQuery. Callers should have already applied
// LogQueryRequest.ApplyDefaults().
func Compile(req model.LogQueryRequest) (store.CompiledQuery, error) {
	if msg := req.Validate(); msg != "" {
		return store.CompiledQuery{}, errkind.New(errkind.Validation, msg)
	}

	q := store.CompiledQuery{
		JobID: req.JobID,

		SearchText:   req.SearchText,
		SearchFields: req.SearchFields,

		Levels:      upperAll(req.Levels),
		FileName:    req.FileName,
		Logger:      req.Logger,
		Thread:      req.Thread,
		Source:      req.Source,
		Hostname:    req.Hostname,
		Application: req.Application,
		Environment: req.Environment,
		Tags:        req.Tags,

		HasError:      req.HasError,
		HasStackTrace: req.HasStackTrace,

		MinLineNumber: req.MinLineNumber,
		MaxLineNumber: req.MaxLineNumber,

		SortBy:        req.SortBy,
		SortDirection: req.SortDirection,

		Page: req.Page,
		Size: req.Size,

		IncludeFields: req.IncludeFields,
		ExcludeFields: req.ExcludeFields,

		IncludeSummary:   req.IncludeSummary,
		HighlightMatches: req.HighlightMatches,
	}

	if req.StartDate != nil {
		ms := req.StartDate.UnixMilli()
		q.StartDate = &ms
	}
	if req.EndDate != nil {
		ms := req.EndDate.UnixMilli()
		q.EndDate = &ms
	}
	if q.SortBy == "" {
		q.SortBy = "timestamp"
	}
	if q.SortDirection == "" {
		q.SortDirection = model.SortDesc
	}
	return q, nil
}

func upperAll(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strings.ToUpper(v)
	}
	return out
}
