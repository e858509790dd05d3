package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dalibo/logforge/internal/errkind"
)

const maxUploadMemory = 32 << 20 // buffered in memory before multipart spills to disk

func (s *Server) registerUploadRoutes(r *mux.Router) {
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
}

// handleUpload implements POST /upload (§6): validates the multipart
// upload, stages it to a temp file, and hands it to the job controller.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, errkind.Wrap(errkind.Validation, "invalid multipart form", err))
		return
	}

	file, header, err := r.FormFile("logfile")
	if err != nil {
		writeError(w, errkind.Wrap(errkind.Validation, "missing \"logfile\" part", err))
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeError(w, errkind.New(errkind.Validation, "uploaded file is empty"))
		return
	}
	if header.Size > s.cfg.FileMaxSize {
		writeError(w, errkind.New(errkind.TooLarge, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.FileMaxSize)))
		return
	}
	if !allowedExtension(header.Filename, s.cfg.FileAllowedExts) {
		writeError(w, errkind.New(errkind.Validation, "unsupported file extension"))
		return
	}

	tmp, err := os.CreateTemp("", "logforge-upload-*")
	if err != nil {
		writeError(w, errkind.Wrap(errkind.Internal, "failed to stage upload", err))
		return
	}
	defer tmp.Close()

	written, err := io.Copy(tmp, file)
	if err != nil {
		os.Remove(tmp.Name())
		writeError(w, errkind.Wrap(errkind.Internal, "failed to stage upload", err))
		return
	}

	timestampFormat := r.FormValue("timestampFormat")

	jobID, err := s.controller.SubmitJob(tmp.Name(), header.Filename, written, timestampFormat)
	if err != nil {
		os.Remove(tmp.Name())
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{
		JobID:     jobID,
		StatusURL: "/logs/status/" + jobID,
		ResultURL: "/logs/result/" + jobID,
		FileName:  header.Filename,
		FileSize:  written,
	})
}

// allowedExtension reports whether fileName's extension, stripped of its
// leading dot and any recognized compression suffix, is in the configured
// allow-list (default log, txt per §6).
func allowedExtension(fileName string, allowed []string) bool {
	name := fileName
	for _, suffix := range []string{".gz", ".zst", ".zstd"} {
		name = strings.TrimSuffix(name, suffix)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}
