package model

import "time"

// SortDirection for LogQueryRequest.SortDirection.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortableFields is the closed set of fields LogQueryRequest.SortBy may
// name (§4.6 validation).
var SortableFields = map[string]bool{
	"timestamp":   true,
	"lineNumber":  true,
	"level":       true,
	"logger":      true,
	"thread":      true,
	"source":      true,
	"hostname":    true,
	"application": true,
	"indexedAt":   true,
}

// KeywordFields is the set of exact-match attributes eligible for
// unique-values aggregation (§4.6 "unique-values field not in the keyword
// set").
var KeywordFields = map[string]bool{
	"level":       true,
	"logger":      true,
	"thread":      true,
	"source":      true,
	"hostname":    true,
	"application": true,
	"environment": true,
	"fileName":    true,
	"tags":        true,
}

// LogQueryRequest is the declarative, user-facing search request (§4.6).
type LogQueryRequest struct {
	JobID    string   `json:"jobId"`
	SearchText string `json:"searchText,omitempty"`
	SearchFields []string `json:"searchFields,omitempty"`

	Levels []string `json:"levels,omitempty"`

	FileName    string `json:"fileName,omitempty"`
	Logger      string `json:"logger,omitempty"`
	Thread      string `json:"thread,omitempty"`
	Source      string `json:"source,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	Application string `json:"application,omitempty"`
	Environment string `json:"environment,omitempty"`

	HasError      *bool `json:"hasError,omitempty"`
	HasStackTrace *bool `json:"hasStackTrace,omitempty"`

	Tags []string `json:"tags,omitempty"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	MinLineNumber *int `json:"minLineNumber,omitempty"`
	MaxLineNumber *int `json:"maxLineNumber,omitempty"`

	SortBy        string        `json:"sortBy,omitempty"`
	SortDirection SortDirection `json:"sortDirection,omitempty"`

	Page int `json:"page"`
	Size int `json:"size"`

	IncludeFields []string `json:"includeFields,omitempty"`
	ExcludeFields []string `json:"excludeFields,omitempty"`

	IncludeSummary   bool `json:"includeSummary,omitempty"`
	HighlightMatches bool `json:"highlightMatches,omitempty"`
}

// DefaultSearchFields is used when SearchText is set but SearchFields is
// empty (§4.6).
var DefaultSearchFields = []string{"message", "rawLine", "stackTrace"}

const (
	MinPageSize     = 1
	MaxPageSize     = 1000
	DefaultPageSize = 50

	HighlightFragmentSize  = 150
	HighlightFragmentCount = 3
)

// ApplyDefaults fills zero-valued optional fields with their documented
// defaults (§4.6). Call after JSON/query-param decoding, before Validate.
func (r *LogQueryRequest) ApplyDefaults() {
	if len(r.SearchFields) == 0 {
		r.SearchFields = DefaultSearchFields
	}
	if r.SortDirection == "" {
		r.SortDirection = SortDesc
	}
	if r.Size == 0 {
		r.Size = DefaultPageSize
	}
}

// Validate enforces §4.6's validation rules, returning a human-readable
// message on the first violation found (returned to callers as 400
// InvalidQuery).
func (r *LogQueryRequest) Validate() string {
	if r.JobID == "" {
		return "jobId is required"
	}
	if r.StartDate != nil && r.EndDate != nil && r.StartDate.After(*r.EndDate) {
		return "startDate must not be after endDate"
	}
	if r.MinLineNumber != nil && r.MaxLineNumber != nil && *r.MinLineNumber > *r.MaxLineNumber {
		return "minLineNumber must not exceed maxLineNumber"
	}
	if r.SortBy != "" && !SortableFields[r.SortBy] {
		return "sortBy must be one of the supported fields"
	}
	if r.Page < 0 {
		return "page must be >= 0"
	}
	if r.Size < MinPageSize || r.Size > MaxPageSize {
		return "size must be between 1 and 1000"
	}
	return ""
}

// PaginationInfo describes one page of results (§8 invariants).
type PaginationInfo struct {
	Page           int  `json:"page"`
	Size           int  `json:"size"`
	TotalElements  int64 `json:"totalElements"`
	TotalPages     int  `json:"totalPages"`
	HasNext        bool `json:"hasNext"`
	HasPrevious    bool `json:"hasPrevious"`
	FirstIndex     int64 `json:"firstIndex"`
	LastIndex      int64 `json:"lastIndex"`
}

// NewPaginationInfo computes totalPages/hasNext/hasPrevious/first-last
// index per §8's invariants: totalPages = ceil(total/size), hasNext iff
// currentPage < totalPages-1.
func NewPaginationInfo(page, size int, total int64) PaginationInfo {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	info := PaginationInfo{
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasPrevious:   page > 0,
		HasNext:       page < totalPages-1,
	}
	if total > 0 {
		info.FirstIndex = int64(page) * int64(size)
		info.LastIndex = info.FirstIndex + int64(size) - 1
		if info.LastIndex >= total {
			info.LastIndex = total - 1
		}
	}
	return info
}

// FilterSummary is the aggregation-derived view attached to a search
// response when IncludeSummary is set (§4.7).
type FilterSummary struct {
	LevelCounts      map[Level]int  `json:"levelCounts"`
	ErrorCount       int            `json:"errorCount"`
	StackTraceCount  int            `json:"stackTraceCount"`
	MinTimestamp     *time.Time     `json:"minTimestamp,omitempty"`
	MaxTimestamp     *time.Time     `json:"maxTimestamp,omitempty"`
	TopLoggers       []TermCount    `json:"topLoggers,omitempty"`
	TopThreads       []TermCount    `json:"topThreads,omitempty"`
	TopSources       []TermCount    `json:"topSources,omitempty"`
	UniqueLoggers    int            `json:"uniqueLoggers"`
	UniqueThreads    int            `json:"uniqueThreads"`
	UniqueSources    int            `json:"uniqueSources"`
}

// TermCount is a single bucket of a terms aggregation.
type TermCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// LogQueryResponse is the envelope returned by §6's search endpoints.
type LogQueryResponse struct {
	Entries    []LogEntry               `json:"entries"`
	Pagination PaginationInfo           `json:"pagination"`
	Summary    *FilterSummary           `json:"summary,omitempty"`
	Highlights map[string]map[string][]string `json:"highlights,omitempty"`
	QueryTimeMs int64                   `json:"queryTimeMs"`
}

// JobSummary composes C7 query output with C5 job metadata (§4.7).
type JobSummary struct {
	JobID            string        `json:"jobId"`
	FileName         string        `json:"fileName"`
	FileSize         int64         `json:"fileSize"`
	StartedAt        time.Time     `json:"startedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
	LinesPerSecond   float64       `json:"linesPerSecond"`
	TotalLines       int           `json:"totalLines"`
	SuccessfulLines  int           `json:"successfulLines"`
	FailedLines      int           `json:"failedLines"`
	LevelCounts      map[Level]int `json:"levelCounts"`
	ErrorCount       int           `json:"errorCount"`
	WarningCount     int           `json:"warningCount"`
	TimeSpanSeconds  float64       `json:"timeSpanSeconds"`
	UniqueLoggers    int           `json:"uniqueLoggers"`
	UniqueThreads    int           `json:"uniqueThreads"`
	UniqueSources    int           `json:"uniqueSources"`
}

// TimelineBucket is one point of a date-histogram timeline (§4.6).
type TimelineBucket struct {
	Timestamp  time.Time `json:"timestamp"`
	Count      int64     `json:"count"`
	ErrorCount int64     `json:"errorCount"`
	WarnCount  int64     `json:"warnCount"`
}

// TimelineData is the response body for the timeline endpoint.
type TimelineData struct {
	Interval string           `json:"interval"`
	Buckets  []TimelineBucket `json:"buckets"`
}

// ValidTimelineIntervals is the closed set of intervals the timeline
// compiler accepts (§4.6).
var ValidTimelineIntervals = map[string]bool{
	"1s": true, "1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "1d": true, "1w": true, "1M": true,
}

// UniqueValuesResult is the response for the unique-values endpoint.
type UniqueValuesResult struct {
	Field  string      `json:"field"`
	Values []TermCount `json:"values"`
}

// CountResult is the response for the dedicated count compiler.
type CountResult struct {
	Total int64 `json:"total"`
}

// ExportFormat enumerates supported export renderings (§4.7).
type ExportFormat string

const (
	ExportCSV    ExportFormat = "csv"
	ExportJSON   ExportFormat = "json"
	ExportNDJSON ExportFormat = "ndjson"
)

const (
	DefaultMaxExportRecords = 10_000
	MaxExportRecordsCeiling = 100_000
)

// ExportOptions configures the CSV renderer (§4.7).
type ExportOptions struct {
	Format      ExportFormat
	Delimiter   rune
	IncludeHeader bool
	Fields      []string
	MaxRecords  int
}

// DefaultExportFields is the CSV default field projection.
var DefaultExportFields = []string{"timestamp", "level", "logger", "thread", "message", "lineNumber", "fileName"}

// WireTimestampFormat is the ISO-8601-local-with-millis wire format used
// for all externally-serialized timestamps (§6).
const WireTimestampFormat = "2006-01-02T15:04:05.000"
