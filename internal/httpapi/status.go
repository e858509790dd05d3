package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) registerStatusRoutes(r *mux.Router) {
	r.HandleFunc("/status/{jobId}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/result/{jobId}", s.handleResult).Methods(http.MethodGet)
}

// handleStatus implements GET /status/{jobId} (§6).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	status, err := s.controller.GetStatus(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleResult implements GET /result/{jobId} (§6).
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	result, err := s.controller.GetResult(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
