package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalibo/logforge/internal/model"
)

// MemStore is a linear-scan, in-memory Store implementation. It backs unit
// tests that exercise the query compiler and executor without a live
// Elasticsearch-compatible cluster.
type MemStore struct {
	mu      sync.RWMutex
	entries []*model.LogEntry
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) BulkWrite(_ context.Context, entries []*model.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *MemStore) WriteOne(_ context.Context, entry *model.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemStore) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.JobID != jobID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *MemStore) matches(q CompiledQuery, e *model.LogEntry) bool {
	if q.JobID != "" && e.JobID != q.JobID {
		return false
	}
	if len(q.Levels) > 0 && !containsFold(q.Levels, string(e.Level)) {
		return false
	}
	if q.FileName != "" && !wildcardOrExact(q.FileName, e.FileName) {
		return false
	}
	if q.Logger != "" && !wildcardOrExact(q.Logger, e.Logger) {
		return false
	}
	if q.Thread != "" && !wildcardOrExact(q.Thread, e.Thread) {
		return false
	}
	if q.Source != "" && !wildcardOrExact(q.Source, e.Source) {
		return false
	}
	if q.Hostname != "" && !wildcardOrExact(q.Hostname, e.Hostname) {
		return false
	}
	if q.Application != "" && !wildcardOrExact(q.Application, e.Application) {
		return false
	}
	if q.Environment != "" && !wildcardOrExact(q.Environment, e.Environment) {
		return false
	}
	if len(q.Tags) > 0 {
		found := false
		for _, t := range q.Tags {
			if containsFold(e.Tags, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.HasError != nil && e.HasError != *q.HasError {
		return false
	}
	if q.HasStackTrace != nil && e.HasStackTrace != *q.HasStackTrace {
		return false
	}
	if q.StartDate != nil && e.Timestamp.UnixMilli() < *q.StartDate {
		return false
	}
	if q.EndDate != nil && e.Timestamp.UnixMilli() > *q.EndDate {
		return false
	}
	if q.MinLineNumber != nil && e.LineNumber < *q.MinLineNumber {
		return false
	}
	if q.MaxLineNumber != nil && e.LineNumber > *q.MaxLineNumber {
		return false
	}
	if q.SearchText != "" {
		fields := q.SearchFields
		if len(fields) == 0 {
			fields = model.DefaultSearchFields
		}
		if !matchesSearchText(e, fields, q.SearchText) {
			return false
		}
	}
	return true
}

func matchesSearchText(e *model.LogEntry, fields []string, text string) bool {
	needle := strings.ToLower(text)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(searchableField(e, f)), needle) {
			return true
		}
	}
	return false
}

func searchableField(e *model.LogEntry, field string) string {
	switch field {
	case "message":
		return e.Message
	case "rawLine":
		return e.RawLine
	case "stackTrace":
		return e.StackTrace
	default:
		return ""
	}
}

func wildcardOrExact(pattern, value string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		return strings.EqualFold(pattern, value)
	}
	return globMatch(strings.ToLower(pattern), strings.ToLower(value))
}

// globMatch implements a small '*'/'?' matcher, avoiding a regexp
// compilation per query for the common wildcard case.
func globMatch(pattern, value string) bool {
	return globMatchRunes([]rune(pattern), []rune(value))
}

func globMatchRunes(pattern, value []rune) bool {
	if len(pattern) == 0 {
		return len(value) == 0
	}
	switch pattern[0] {
	case '*':
		if globMatchRunes(pattern[1:], value) {
			return true
		}
		for i := 0; i < len(value); i++ {
			if globMatchRunes(pattern[1:], value[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if len(value) == 0 {
			return false
		}
		return globMatchRunes(pattern[1:], value[1:])
	default:
		if len(value) == 0 || pattern[0] != value[0] {
			return false
		}
		return globMatchRunes(pattern[1:], value[1:])
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func (m *MemStore) filtered(q CompiledQuery) []*model.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.LogEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if m.matches(q, e) {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemStore) Search(_ context.Context, q CompiledQuery) (SearchResult, error) {
	matched := m.filtered(q)
	sortEntries(matched, q.SortBy, q.SortDirection)

	total := int64(len(matched))
	page := q.Page
	size := q.Size
	if size <= 0 {
		size = model.DefaultPageSize
	}
	start := page * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	result := SearchResult{Entries: matched[start:end], Total: total}
	if q.IncludeSummary {
		summary := buildSummary(matched)
		result.Summary = &summary
	}
	if q.HighlightMatches && q.SearchText != "" {
		fields := q.SearchFields
		if len(fields) == 0 {
			fields = model.DefaultSearchFields
		}
		result.Highlights = buildHighlights(result.Entries, fields, q.SearchText)
	}
	return result, nil
}

func (m *MemStore) Count(_ context.Context, q CompiledQuery) (int64, error) {
	return int64(len(m.filtered(q))), nil
}

func (m *MemStore) Timeline(_ context.Context, q TimelineQuery) (model.TimelineData, error) {
	matched := m.filtered(q.Filter)
	step := intervalDuration(q.Interval)

	type bucket struct {
		ts         time.Time
		count      int64
		errorCount int64
		warnCount  int64
	}
	buckets := map[int64]*bucket{}
	for _, e := range matched {
		truncated := e.Timestamp.Truncate(step)
		key := truncated.UnixMilli()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{ts: truncated}
			buckets[key] = b
		}
		b.count++
		if e.HasError {
			b.errorCount++
		}
		if e.Level == model.LevelWarn {
			b.warnCount++
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	data := model.TimelineData{Interval: q.Interval}
	for _, k := range keys {
		b := buckets[k]
		data.Buckets = append(data.Buckets, model.TimelineBucket{
			Timestamp:  b.ts,
			Count:      b.count,
			ErrorCount: b.errorCount,
			WarnCount:  b.warnCount,
		})
	}
	return data, nil
}

func (m *MemStore) UniqueValues(_ context.Context, q UniqueValuesQuery) (model.UniqueValuesResult, error) {
	matched := m.filtered(q.Filter)
	counts := map[string]int64{}
	for _, e := range matched {
		v := fieldValue(e, q.Field)
		if v == "" {
			continue
		}
		counts[v]++
	}
	terms := topTerms(counts, q.TopN)
	return model.UniqueValuesResult{Field: q.Field, Values: terms}, nil
}

func topTerms(counts map[string]int64, topN int) []model.TermCount {
	terms := make([]model.TermCount, 0, len(counts))
	for v, c := range counts {
		terms = append(terms, model.TermCount{Value: v, Count: c})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Value < terms[j].Value
	})
	if topN > 0 && len(terms) > topN {
		terms = terms[:topN]
	}
	return terms
}

func (m *MemStore) LevelCounts(_ context.Context, jobID string) (map[model.Level]int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[model.Level]int{}
	errCount := 0
	for _, e := range m.entries {
		if e.JobID != jobID {
			continue
		}
		counts[e.Level]++
		if e.HasError {
			errCount++
		}
	}
	return counts, errCount, nil
}

func fieldValue(e *model.LogEntry, field string) string {
	switch field {
	case "level":
		return string(e.Level)
	case "logger":
		return e.Logger
	case "thread":
		return e.Thread
	case "source":
		return e.Source
	case "hostname":
		return e.Hostname
	case "application":
		return e.Application
	case "environment":
		return e.Environment
	case "fileName":
		return e.FileName
	default:
		return ""
	}
}

func sortEntries(entries []*model.LogEntry, sortBy string, dir model.SortDirection) {
	if sortBy == "" {
		sortBy = "timestamp"
	}
	less := func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch sortBy {
		case "lineNumber":
			return a.LineNumber < b.LineNumber
		case "level":
			return a.Level < b.Level
		case "logger":
			return a.Logger < b.Logger
		case "thread":
			return a.Thread < b.Thread
		case "source":
			return a.Source < b.Source
		case "hostname":
			return a.Hostname < b.Hostname
		case "application":
			return a.Application < b.Application
		case "indexedAt":
			return a.IndexedAt.Before(b.IndexedAt)
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	}
	if dir == model.SortDesc {
		sort.SliceStable(entries, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(entries, less)
	}
}

const topSummaryTerms = 10

func buildSummary(entries []*model.LogEntry) model.FilterSummary {
	summary := model.FilterSummary{LevelCounts: map[model.Level]int{}}
	loggers := map[string]int64{}
	threads := map[string]int64{}
	sources := map[string]int64{}

	for i, e := range entries {
		summary.LevelCounts[e.Level]++
		if e.HasError {
			summary.ErrorCount++
		}
		if e.HasStackTrace {
			summary.StackTraceCount++
		}
		if e.Logger != "" {
			loggers[e.Logger]++
		}
		if e.Thread != "" {
			threads[e.Thread]++
		}
		if e.Source != "" {
			sources[e.Source]++
		}
		ts := e.Timestamp
		if i == 0 || summary.MinTimestamp == nil || ts.Before(*summary.MinTimestamp) {
			summary.MinTimestamp = &ts
		}
		if i == 0 || summary.MaxTimestamp == nil || ts.After(*summary.MaxTimestamp) {
			summary.MaxTimestamp = &ts
		}
	}

	summary.TopLoggers = topTerms(loggers, topSummaryTerms)
	summary.TopThreads = topTerms(threads, topSummaryTerms)
	summary.TopSources = topTerms(sources, topSummaryTerms)
	summary.UniqueLoggers = len(loggers)
	summary.UniqueThreads = len(threads)
	summary.UniqueSources = len(sources)
	return summary
}

func buildHighlights(entries []*model.LogEntry, fields []string, searchText string) map[string]map[string][]string {
	needle := strings.ToLower(searchText)
	out := map[string]map[string][]string{}
	for _, e := range entries {
		perEntry := map[string][]string{}
		for _, f := range fields {
			if frag := highlightFragment(searchableField(e, f), needle); frag != "" {
				perEntry[f] = []string{frag}
			}
		}
		if len(perEntry) > 0 {
			out[e.ID] = perEntry
		}
	}
	return out
}

func highlightFragment(haystack, needle string) string {
	idx := strings.Index(strings.ToLower(haystack), needle)
	if idx < 0 {
		return ""
	}
	start := idx - model.HighlightFragmentSize/2
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + model.HighlightFragmentSize/2
	if end > len(haystack) {
		end = len(haystack)
	}
	return haystack[start:idx] + "<em>" + haystack[idx:idx+len(needle)] + "</em>" + haystack[idx+len(needle):end]
}

// intervalDuration maps a timeline interval token onto the closest
// time.Duration step MemStore can truncate by. Calendar-aware intervals
// (1M) are approximated to 30 days — acceptable for the in-memory test
// backend; ElasticStore delegates the exact calendar/fixed interval
// distinction to the engine's date_histogram aggregation (§4.6).
func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1s":
		return time.Second
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	case "1M":
		return 30 * 24 * time.Hour
	default:
		return time.Hour
	}
}
