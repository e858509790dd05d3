// Package store defines the storage abstraction the ingestion pipeline
// writes through and the query layer reads from (§9): bulk indexing of
// documents keyed by jobId, and filtered search with aggregations.
package store

import (
	"context"

	"github.com/dalibo/logforge/internal/model"
)

// CompiledQuery is the backend-agnostic shape the query compiler (C6)
// produces: every LogQueryRequest field already validated and resolved
// into filter terms, ready for a Store to execute.
type CompiledQuery struct {
	JobID string

	SearchText   string
	SearchFields []string

	Levels       []string
	FileName     string
	Logger       string
	Thread       string
	Source       string
	Hostname     string
	Application  string
	Environment  string
	Tags         []string

	HasError      *bool
	HasStackTrace *bool

	StartDate *int64 // unix millis
	EndDate   *int64

	MinLineNumber *int
	MaxLineNumber *int

	SortBy        string
	SortDirection model.SortDirection

	Page int
	Size int

	IncludeFields []string
	ExcludeFields []string

	IncludeSummary   bool
	HighlightMatches bool
}

// SearchResult is what a Store returns for a compiled query (§4.7).
type SearchResult struct {
	Entries []*model.LogEntry
	Total   int64
	// Highlights maps entry ID to field name to highlighted fragments.
	Highlights map[string]map[string][]string
	Summary    *model.FilterSummary
}

// TimelineQuery compiles a timeline request (§4.6): a date histogram over
// `timestamp` plus the same filter set as CompiledQuery.
type TimelineQuery struct {
	Filter   CompiledQuery
	Interval string
}

// UniqueValuesQuery compiles a terms aggregation over one keyword field.
type UniqueValuesQuery struct {
	Filter CompiledQuery
	Field  string
	TopN   int
}

// Store is the contract every backend implements: bulk write for
// ingestion (C4) and filtered search/aggregation for querying (C6/C7).
type Store interface {
	BulkWrite(ctx context.Context, entries []*model.LogEntry) error
	WriteOne(ctx context.Context, entry *model.LogEntry) error

	Search(ctx context.Context, q CompiledQuery) (SearchResult, error)
	Count(ctx context.Context, q CompiledQuery) (int64, error)
	Timeline(ctx context.Context, q TimelineQuery) (model.TimelineData, error)
	UniqueValues(ctx context.Context, q UniqueValuesQuery) (model.UniqueValuesResult, error)

	// LevelCounts computes the per-level distribution and error count for
	// a job, used by C5 step 6 to finalize JobStatus.
	LevelCounts(ctx context.Context, jobID string) (map[model.Level]int, int, error)

	// DeleteJob removes every document indexed under jobID (retention /
	// cleanup support, supplementing §4.4's storage contract).
	DeleteJob(ctx context.Context, jobID string) error
}
