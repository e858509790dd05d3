package httpapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalibo/logforge/internal/model"
)

// UploadResponse is the 202 body returned by POST /upload (§6).
type UploadResponse struct {
	JobID      string `json:"jobId"`
	StatusURL  string `json:"statusUrl"`
	ResultURL  string `json:"resultUrl"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
}

// parseFlatQuery decodes the flat query-param form of a LogQueryRequest
// used by the GET variants of the search/field endpoints (§6). jobID, when
// non-empty, overrides/sets values["jobId"] (the {jobId} path segment on
// job-scoped endpoints).
func parseFlatQuery(values url.Values, jobID string) model.LogQueryRequest {
	var req model.LogQueryRequest

	req.JobID = firstNonEmpty(jobID, values.Get("jobId"))
	req.SearchText = values.Get("searchText")
	req.SearchFields = splitCSV(values.Get("searchFields"))
	req.Levels = splitCSV(values.Get("levels"))

	req.FileName = values.Get("fileName")
	req.Logger = values.Get("logger")
	req.Thread = values.Get("thread")
	req.Source = values.Get("source")
	req.Hostname = values.Get("hostname")
	req.Application = values.Get("application")
	req.Environment = values.Get("environment")

	req.HasError = parseOptionalBool(values.Get("hasError"))
	req.HasStackTrace = parseOptionalBool(values.Get("hasStackTrace"))

	req.Tags = splitCSV(values.Get("tags"))

	req.StartDate = parseOptionalTime(values.Get("startDate"))
	req.EndDate = parseOptionalTime(values.Get("endDate"))

	req.MinLineNumber = parseOptionalInt(values.Get("minLineNumber"))
	req.MaxLineNumber = parseOptionalInt(values.Get("maxLineNumber"))

	req.SortBy = values.Get("sortBy")
	if sd := values.Get("sortDirection"); sd != "" {
		req.SortDirection = model.SortDirection(strings.ToLower(sd))
	}

	if p, err := strconv.Atoi(values.Get("page")); err == nil {
		req.Page = p
	}
	if s, err := strconv.Atoi(values.Get("size")); err == nil {
		req.Size = s
	}

	req.IncludeFields = splitCSV(values.Get("includeFields"))
	req.ExcludeFields = splitCSV(values.Get("excludeFields"))

	req.IncludeSummary = parseBool(values.Get("includeSummary"))
	req.HighlightMatches = parseBool(values.Get("highlightMatches"))

	return req
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func parseOptionalBool(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// timeLayouts are tried in order when parsing a date query parameter: the
// wire format first, then RFC3339, then a bare date.
var timeLayouts = []string{
	model.WireTimestampFormat,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
