package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalibo/logforge/internal/model"
	elastic "github.com/olivere/elastic"
)

// defaultIndexPrefix is used when ElasticConfig.IndexPrefix is empty. All
// jobs share one index, `<prefix>-logs`, and are told apart by `jobId`;
// indexes are not split by day.
const defaultIndexPrefix = "logforge"

// ElasticStore is the Store implementation backed by an Elasticsearch (or
// Elasticsearch-compatible) cluster via olivere/elastic v6 — the major
// version already present in the example pack's own dependency graph.
type ElasticStore struct {
	client      *elastic.Client
	indexPrefix string
}

// ElasticConfig configures ElasticStore's client construction (§5 timeouts).
type ElasticConfig struct {
	URLs            []string
	Username        string
	Password        string
	ConnectTimeout  time.Duration
	SocketTimeout   time.Duration
	IndexPrefix     string
}

// NewElasticStore builds a client against cfg.URLs, applying the
// connect/socket timeouts mandated by §5.
func NewElasticStore(cfg ElasticConfig) (*ElasticStore, error) {
	httpClient := &http.Client{Timeout: cfg.SocketTimeout}

	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.URLs...),
		elastic.SetHttpClient(httpClient),
		elastic.SetSniff(false),
		elastic.SetHealthcheckTimeoutStartup(cfg.ConnectTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}

	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = defaultIndexPrefix
	}
	return &ElasticStore{client: client, indexPrefix: prefix}, nil
}

func (s *ElasticStore) index() string {
	return s.indexPrefix + "-logs"
}

func (s *ElasticStore) BulkWrite(ctx context.Context, entries []*model.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	bulk := s.client.Bulk().Index(s.index()).Type("_doc")
	for _, e := range entries {
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Id(e.ID).Doc(e))
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	if resp.Errors {
		failed := resp.Failed()
		return fmt.Errorf("bulk index: %d of %d documents failed", len(failed), len(entries))
	}
	return nil
}

func (s *ElasticStore) WriteOne(ctx context.Context, entry *model.LogEntry) error {
	_, err := s.client.Index().Index(s.index()).Type("_doc").Id(entry.ID).BodyJson(entry).Do(ctx)
	if err != nil {
		return fmt.Errorf("index entry: %w", err)
	}
	return nil
}

func (s *ElasticStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.client.DeleteByQuery(s.index()).
		Query(elastic.NewTermQuery("jobId", jobID)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	return nil
}

// buildQuery composes the bool query of §4.6: searchText as `must`, every
// other filter in filter-context for cacheability.
func buildQuery(q CompiledQuery) *elastic.BoolQuery {
	b := elastic.NewBoolQuery()
	b = b.Filter(elastic.NewTermQuery("jobId", q.JobID))

	if q.SearchText != "" {
		fields := q.SearchFields
		if len(fields) == 0 {
			fields = model.DefaultSearchFields
		}
		b = b.Must(elastic.NewMultiMatchQuery(q.SearchText, fields...).
			Type("best_fields").
			Fuzziness("AUTO").
			Operator("AND"))
	}

	if len(q.Levels) > 0 {
		terms := make([]interface{}, len(q.Levels))
		for i, l := range q.Levels {
			terms[i] = l
		}
		b = b.Filter(elastic.NewTermsQuery("level", terms...))
	}

	b = filterExactOrWildcard(b, "fileName", q.FileName)
	b = filterExactOrWildcard(b, "logger", q.Logger)
	b = filterExactOrWildcard(b, "thread", q.Thread)
	b = filterExactOrWildcard(b, "source", q.Source)
	b = filterExactOrWildcard(b, "hostname", q.Hostname)
	b = filterExactOrWildcard(b, "application", q.Application)
	b = filterExactOrWildcard(b, "environment", q.Environment)

	if len(q.Tags) > 0 {
		terms := make([]interface{}, len(q.Tags))
		for i, t := range q.Tags {
			terms[i] = t
		}
		b = b.Filter(elastic.NewTermsQuery("tags", terms...))
	}

	if q.HasError != nil {
		b = b.Filter(elastic.NewTermQuery("hasError", *q.HasError))
	}
	if q.HasStackTrace != nil {
		b = b.Filter(elastic.NewTermQuery("hasStackTrace", *q.HasStackTrace))
	}

	if q.StartDate != nil || q.EndDate != nil {
		r := elastic.NewRangeQuery("timestamp")
		if q.StartDate != nil {
			r = r.Gte(*q.StartDate)
		}
		if q.EndDate != nil {
			r = r.Lte(*q.EndDate)
		}
		b = b.Filter(r)
	}

	if q.MinLineNumber != nil || q.MaxLineNumber != nil {
		r := elastic.NewRangeQuery("lineNumber")
		if q.MinLineNumber != nil {
			r = r.Gte(*q.MinLineNumber)
		}
		if q.MaxLineNumber != nil {
			r = r.Lte(*q.MaxLineNumber)
		}
		b = b.Filter(r)
	}

	return b
}

func filterExactOrWildcard(b *elastic.BoolQuery, field, value string) *elastic.BoolQuery {
	if value == "" {
		return b
	}
	if containsWildcard(value) {
		return b.Filter(elastic.NewWildcardQuery(field, value))
	}
	return b.Filter(elastic.NewTermQuery(field, value))
}

func containsWildcard(v string) bool {
	for _, r := range v {
		if r == '*' || r == '?' {
			return true
		}
	}
	return false
}

func (s *ElasticStore) Search(ctx context.Context, q CompiledQuery) (SearchResult, error) {
	svc := s.client.Search().Index(s.index()).Query(buildQuery(q))

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "timestamp"
	}
	svc = svc.Sort(sortBy, q.SortDirection != model.SortDesc)

	size := q.Size
	if size <= 0 {
		size = model.DefaultPageSize
	}
	svc = svc.From(q.Page * size).Size(size)

	if len(q.IncludeFields) > 0 || len(q.ExcludeFields) > 0 {
		svc = svc.FetchSourceContext(elastic.NewFetchSourceContext(true).
			Include(q.IncludeFields...).
			Exclude(q.ExcludeFields...))
	}

	if q.IncludeSummary {
		addSummaryAggs(svc)
	}
	if q.HighlightMatches && q.SearchText != "" {
		fields := q.SearchFields
		if len(fields) == 0 {
			fields = model.DefaultSearchFields
		}
		hl := elastic.NewHighlight().PreTags("<em>").PostTags("</em>").
			FragmentSize(model.HighlightFragmentSize).
			NumOfFragments(model.HighlightFragmentCount)
		for _, f := range fields {
			hl = hl.Field(f)
		}
		svc = svc.Highlight(hl)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	result := SearchResult{Total: resp.Hits.TotalHits}
	for _, hit := range resp.Hits.Hits {
		var e model.LogEntry
		if err := unmarshalHit(hit, &e); err != nil {
			continue
		}
		result.Entries = append(result.Entries, &e)
		if len(hit.Highlight) > 0 {
			if result.Highlights == nil {
				result.Highlights = map[string]map[string][]string{}
			}
			result.Highlights[e.ID] = hit.Highlight
		}
	}

	if q.IncludeSummary {
		summary := parseSummaryAggs(resp)
		result.Summary = &summary
	}
	return result, nil
}

func (s *ElasticStore) Count(ctx context.Context, q CompiledQuery) (int64, error) {
	n, err := s.client.Count(s.index()).Query(buildQuery(q)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *ElasticStore) Timeline(ctx context.Context, q TimelineQuery) (model.TimelineData, error) {
	interval, calendar := resolveInterval(q.Interval)
	histogram := elastic.NewDateHistogramAggregation().Field("timestamp")
	if calendar {
		histogram = histogram.CalendarInterval(interval)
	} else {
		histogram = histogram.FixedInterval(interval)
	}
	histogram = histogram.
		SubAggregation("error_count", elastic.NewFilterAggregation().Filter(elastic.NewTermQuery("hasError", true))).
		SubAggregation("warn_count", elastic.NewFilterAggregation().Filter(elastic.NewTermQuery("level", "WARN")))

	resp, err := s.client.Search().Index(s.index()).
		Query(buildQuery(q.Filter)).
		Size(0).
		Aggregation("timeline", histogram).
		Do(ctx)
	if err != nil {
		return model.TimelineData{}, fmt.Errorf("timeline: %w", err)
	}

	data := model.TimelineData{Interval: q.Interval}
	agg, found := resp.Aggregations.DateHistogram("timeline")
	if !found {
		return data, nil
	}
	for _, b := range agg.Buckets {
		bucket := model.TimelineBucket{Count: b.DocCount}
		if b.KeyAsString != nil {
			if t, err := time.Parse(time.RFC3339, *b.KeyAsString); err == nil {
				bucket.Timestamp = t
			}
		}
		if errAgg, found := b.Filter("error_count"); found {
			bucket.ErrorCount = errAgg.DocCount
		}
		if warnAgg, found := b.Filter("warn_count"); found {
			bucket.WarnCount = warnAgg.DocCount
		}
		data.Buckets = append(data.Buckets, bucket)
	}
	return data, nil
}

func (s *ElasticStore) UniqueValues(ctx context.Context, q UniqueValuesQuery) (model.UniqueValuesResult, error) {
	topN := q.TopN
	if topN <= 0 {
		topN = 20
	}
	agg := elastic.NewTermsAggregation().Field(q.Field + ".keyword").Size(topN)

	resp, err := s.client.Search().Index(s.index()).
		Query(buildQuery(q.Filter)).
		Size(0).
		Aggregation("unique_values", agg).
		Do(ctx)
	if err != nil {
		return model.UniqueValuesResult{}, fmt.Errorf("unique values: %w", err)
	}

	result := model.UniqueValuesResult{Field: q.Field}
	termsAgg, found := resp.Aggregations.Terms("unique_values")
	if !found {
		return result, nil
	}
	for _, b := range termsAgg.Buckets {
		if key, ok := b.Key.(string); ok {
			result.Values = append(result.Values, model.TermCount{Value: key, Count: b.DocCount})
		}
	}
	return result, nil
}

func (s *ElasticStore) LevelCounts(ctx context.Context, jobID string) (map[model.Level]int, int, error) {
	resp, err := s.client.Search().Index(s.index()).
		Query(elastic.NewTermQuery("jobId", jobID)).
		Size(0).
		Aggregation("levels", elastic.NewTermsAggregation().Field("level.keyword").Size(10)).
		Aggregation("errors", elastic.NewFilterAggregation().Filter(elastic.NewTermQuery("hasError", true))).
		Do(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("level counts: %w", err)
	}

	counts := map[model.Level]int{}
	if levels, found := resp.Aggregations.Terms("levels"); found {
		for _, b := range levels.Buckets {
			if key, ok := b.Key.(string); ok {
				counts[model.Level(key)] = int(b.DocCount)
			}
		}
	}
	errCount := 0
	if errs, found := resp.Aggregations.Filter("errors"); found {
		errCount = int(errs.DocCount)
	}
	return counts, errCount, nil
}

func addSummaryAggs(svc *elastic.SearchService) {
	svc.Aggregation("levels", elastic.NewTermsAggregation().Field("level.keyword").Size(10))
	svc.Aggregation("errors", elastic.NewFilterAggregation().Filter(elastic.NewTermQuery("hasError", true)))
	svc.Aggregation("stack_traces", elastic.NewFilterAggregation().Filter(elastic.NewTermQuery("hasStackTrace", true)))
	svc.Aggregation("min_timestamp", elastic.NewMinAggregation().Field("timestamp"))
	svc.Aggregation("max_timestamp", elastic.NewMaxAggregation().Field("timestamp"))
	svc.Aggregation("top_loggers", elastic.NewTermsAggregation().Field("logger.keyword").Size(10))
	svc.Aggregation("top_threads", elastic.NewTermsAggregation().Field("thread.keyword").Size(10))
	svc.Aggregation("top_sources", elastic.NewTermsAggregation().Field("source.keyword").Size(10))
	svc.Aggregation("unique_loggers", elastic.NewCardinalityAggregation().Field("logger.keyword"))
	svc.Aggregation("unique_threads", elastic.NewCardinalityAggregation().Field("thread.keyword"))
	svc.Aggregation("unique_sources", elastic.NewCardinalityAggregation().Field("source.keyword"))
}

func parseSummaryAggs(resp *elastic.SearchResult) model.FilterSummary {
	summary := model.FilterSummary{LevelCounts: map[model.Level]int{}}

	if levels, found := resp.Aggregations.Terms("levels"); found {
		for _, b := range levels.Buckets {
			if key, ok := b.Key.(string); ok {
				summary.LevelCounts[model.Level(key)] = int(b.DocCount)
			}
		}
	}
	if errs, found := resp.Aggregations.Filter("errors"); found {
		summary.ErrorCount = int(errs.DocCount)
	}
	if stacks, found := resp.Aggregations.Filter("stack_traces"); found {
		summary.StackTraceCount = int(stacks.DocCount)
	}
	if minAgg, found := resp.Aggregations.Min("min_timestamp"); found && minAgg.Value != nil {
		t := time.UnixMilli(int64(*minAgg.Value)).UTC()
		summary.MinTimestamp = &t
	}
	if maxAgg, found := resp.Aggregations.Max("max_timestamp"); found && maxAgg.Value != nil {
		t := time.UnixMilli(int64(*maxAgg.Value)).UTC()
		summary.MaxTimestamp = &t
	}
	summary.TopLoggers = termBuckets(resp, "top_loggers")
	summary.TopThreads = termBuckets(resp, "top_threads")
	summary.TopSources = termBuckets(resp, "top_sources")
	if v, found := resp.Aggregations.Cardinality("unique_loggers"); found && v.Value != nil {
		summary.UniqueLoggers = int(*v.Value)
	}
	if v, found := resp.Aggregations.Cardinality("unique_threads"); found && v.Value != nil {
		summary.UniqueThreads = int(*v.Value)
	}
	if v, found := resp.Aggregations.Cardinality("unique_sources"); found && v.Value != nil {
		summary.UniqueSources = int(*v.Value)
	}
	return summary
}

func termBuckets(resp *elastic.SearchResult, name string) []model.TermCount {
	agg, found := resp.Aggregations.Terms(name)
	if !found {
		return nil
	}
	out := make([]model.TermCount, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		if key, ok := b.Key.(string); ok {
			out = append(out, model.TermCount{Value: key, Count: b.DocCount})
		}
	}
	return out
}

// resolveInterval maps a §4.6 interval token onto an Elasticsearch
// calendar or fixed interval expression. Whole calendar units (day, week,
// month) use calendar_interval; everything else is a fixed_interval.
func resolveInterval(interval string) (string, bool) {
	switch interval {
	case "1d":
		return "day", true
	case "1w":
		return "week", true
	case "1M":
		return "month", true
	case "1s":
		return "1s", false
	case "1m":
		return "1m", false
	case "5m":
		return "5m", false
	case "15m":
		return "15m", false
	case "30m":
		return "30m", false
	case "1h":
		return "1h", false
	default:
		return "1h", false
	}
}

func unmarshalHit(hit *elastic.SearchHit, v interface{}) error {
	if hit.Source == nil {
		return fmt.Errorf("hit %s has no source", hit.Id)
	}
	return json.Unmarshal(*hit.Source, v)
}
