package httpapi

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/query"
)

func (s *Server) registerExportRoutes(r *mux.Router) {
	r.HandleFunc("/job/{jobId}/export", s.handleExportPost).Methods(http.MethodPost)
	r.HandleFunc("/job/{jobId}/export", s.handleExportGet).Methods(http.MethodGet)
}

var exportContentTypes = map[model.ExportFormat]string{
	model.ExportCSV:    "text/csv; charset=utf-8",
	model.ExportJSON:   "application/json",
	model.ExportNDJSON: "application/x-ndjson",
}

func (s *Server) handleExportPost(w http.ResponseWriter, r *http.Request) {
	s.runExport(w, r, parseFlatQuery(r.URL.Query(), mux.Vars(r)["jobId"]))
}

func (s *Server) handleExportGet(w http.ResponseWriter, r *http.Request) {
	s.runExport(w, r, parseFlatQuery(r.URL.Query(), mux.Vars(r)["jobId"]))
}

// runExport implements POST|GET /job/{jobId}/export?format=csv|json|ndjson
// (§6, §4.7): streams rendered entries directly to the response body.
func (s *Server) runExport(w http.ResponseWriter, r *http.Request, req model.LogQueryRequest) {
	jobID := mux.Vars(r)["jobId"]
	req.JobID = jobID
	if _, err := s.controller.GetStatus(jobID); err != nil {
		writeError(w, err)
		return
	}

	values := r.URL.Query()
	format := model.ExportFormat(values.Get("format"))
	if format == "" {
		format = model.ExportCSV
	}
	contentType, ok := exportContentTypes[format]
	if !ok {
		writeError(w, errkind.New(errkind.Validation, fmt.Sprintf("unsupported export format %q", format)))
		return
	}

	opts := model.ExportOptions{
		Format:        format,
		IncludeHeader: true,
		Fields:        model.DefaultExportFields,
		MaxRecords:    model.DefaultMaxExportRecords,
	}
	if d := values.Get("delimiter"); d != "" {
		opts.Delimiter = []rune(d)[0]
	}
	if h := values.Get("header"); h != "" {
		opts.IncludeHeader = parseBool(h)
	}
	if f := splitCSV(values.Get("fields")); len(f) > 0 {
		opts.Fields = f
	}
	if m := values.Get("maxRecords"); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			opts.MaxRecords = n
		}
	}

	ctx, cancel := s.requestDeadline(r)
	defer cancel()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-export.%s\"", jobID, format))
	w.WriteHeader(http.StatusOK)

	if err := query.Export(ctx, s.store, req, opts, w); err != nil {
		// Headers are already flushed, so the status cannot change and the
		// body is necessarily truncated; log the failure instead.
		log.Printf("[ERROR] export for job %s failed: %v", jobID, err)
		return
	}
}
