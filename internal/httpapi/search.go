package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/query"
)

func (s *Server) registerSearchRoutes(r *mux.Router) {
	r.HandleFunc("/search", s.handleSearchPost).Methods(http.MethodPost)
	r.HandleFunc("/search", s.handleSearchGet).Methods(http.MethodGet)
}

// handleSearchPost implements POST /search (§6): body is a LogQueryRequest.
func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req model.LogQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errkind.Wrap(errkind.Validation, "malformed request body", err))
		return
	}
	s.runSearch(w, r, req)
}

// handleSearchGet implements GET /search (§6): flat query parameters.
func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	req := parseFlatQuery(r.URL.Query(), "")
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req model.LogQueryRequest) {
	if req.JobID == "" {
		writeError(w, errkind.New(errkind.Validation, "jobId is required"))
		return
	}
	if _, err := s.controller.GetStatus(req.JobID); err != nil {
		writeError(w, err)
		return
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
