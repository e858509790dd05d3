package httpapi

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/query"
)

func (s *Server) registerJobRoutes(r *mux.Router) {
	r.HandleFunc("/job/{jobId}/summary", s.handleJobSummary).Methods(http.MethodGet)
	r.HandleFunc("/job/{jobId}/levels", s.handleJobLevels).Methods(http.MethodGet)
	r.HandleFunc("/job/{jobId}/timeline", s.handleJobTimeline).Methods(http.MethodGet)
	r.HandleFunc("/job/{jobId}/fields", s.handleJobFields).Methods(http.MethodGet)
	r.HandleFunc("/job/{jobId}/fields/{field}", s.handleJobFieldValues).Methods(http.MethodGet)
	r.HandleFunc("/job/{jobId}/context/{lineNumber}", s.handleJobContext).Methods(http.MethodGet)
}

// handleJobSummary implements GET /job/{jobId}/summary (§6): composes C7's
// aggregation output with C5's job metadata (§4.7 JobSummary).
func (s *Server) handleJobSummary(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	status, err := s.controller.GetStatus(jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := s.requestDeadline(r)
	defer cancel()

	resp, err := query.Execute(ctx, s.store, query.SummaryQuery(jobID))
	if err != nil {
		writeError(w, err)
		return
	}
	var summary model.FilterSummary
	if resp.Summary != nil {
		summary = *resp.Summary
	}

	meta := query.JobMeta{
		JobID:            status.JobID,
		FileName:         status.FileName,
		FileSize:         status.FileSize,
		StartedAt:        status.StartedAt,
		CompletedAt:      status.CompletedAt,
		ProcessingTimeMs: status.ProcessingTimeMs,
		LinesPerSecond:   status.LinesPerSecond,
		TotalLines:       status.TotalLines,
		SuccessfulLines:  status.SuccessfulLines,
		FailedLines:      status.FailedLines,
		LevelCounts:      status.LevelCounts,
		ErrorCount:       status.ErrorCount,
	}
	writeJSON(w, http.StatusOK, query.BuildJobSummary(meta, summary))
}

// handleJobLevels implements GET /job/{jobId}/levels (§6): the level
// distribution computed by C5 step 6 at job completion.
func (s *Server) handleJobLevels(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	status, err := s.controller.GetStatus(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status.LevelCounts)
}

// handleJobTimeline implements GET /job/{jobId}/timeline?interval= (§6).
func (s *Server) handleJobTimeline(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if _, err := s.controller.GetStatus(jobID); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := s.requestDeadline(r)
	defer cancel()

	interval := r.URL.Query().Get("interval")
	data, err := query.Timeline(ctx, s.store, model.LogQueryRequest{JobID: jobID}, interval)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// commonFields lists the keyword fields sampled by GET .../fields (§6),
// in a stable display order.
var commonFields = []string{"level", "logger", "thread", "source", "hostname", "application", "environment", "fileName"}

// handleJobFields implements GET /job/{jobId}/fields (§6): a map of common
// fields to a handful of sample values each, built from C6's unique-values
// aggregation.
func (s *Server) handleJobFields(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if _, err := s.controller.GetStatus(jobID); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := s.requestDeadline(r)
	defer cancel()

	out := make(map[string][]string, len(commonFields))
	for _, field := range commonFields {
		res, err := query.UniqueValues(ctx, s.store, model.LogQueryRequest{JobID: jobID}, field, 5)
		if err != nil {
			writeError(w, err)
			return
		}
		values := make([]string, 0, len(res.Values))
		for _, v := range res.Values {
			values = append(values, v.Value)
		}
		sort.Strings(values)
		out[field] = values
	}
	writeJSON(w, http.StatusOK, out)
}

// handleJobFieldValues implements GET /job/{jobId}/fields/{field}?limit=
// (§6): unique values for one keyword field.
func (s *Server) handleJobFieldValues(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID, field := vars["jobId"], vars["field"]
	if _, err := s.controller.GetStatus(jobID); err != nil {
		writeError(w, err)
		return
	}

	limit := query.DefaultUniqueValuesTopN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	ctx, cancel := s.requestDeadline(r)
	defer cancel()

	res, err := query.UniqueValues(ctx, s.store, model.LogQueryRequest{JobID: jobID}, field, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleJobContext implements GET /job/{jobId}/context/{lineNumber}
// (§6): the lines immediately surrounding lineNumber, sorted ascending.
func (s *Server) handleJobContext(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["jobId"]
	if _, err := s.controller.GetStatus(jobID); err != nil {
		writeError(w, err)
		return
	}

	lineNumber, err := strconv.Atoi(vars["lineNumber"])
	if err != nil {
		writeError(w, errkind.New(errkind.Validation, "lineNumber must be an integer"))
		return
	}
	before := queryInt(r, "before", 5)
	after := queryInt(r, "after", 5)

	minLine := lineNumber - before
	if minLine < 1 {
		minLine = 1
	}
	maxLine := lineNumber + after

	req := model.LogQueryRequest{
		JobID:         jobID,
		MinLineNumber: &minLine,
		MaxLineNumber: &maxLine,
		SortBy:        "lineNumber",
		SortDirection: model.SortAsc,
		Size:          before + after + 1,
	}

	ctx, cancel := s.requestDeadline(r)
	defer cancel()

	resp, err := query.Execute(ctx, s.store, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
