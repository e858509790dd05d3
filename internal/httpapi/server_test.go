package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalibo/logforge/internal/config"
	"github.com/dalibo/logforge/internal/job"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/parser"
	"github.com/dalibo/logforge/internal/store"
)

func newTestServer(t *testing.T) (*Server, *job.Controller) {
	t.Helper()
	cfg := config.Default()
	cfg.ProcessingThreadCore = 1
	cfg.ProcessingThreadMax = 2
	cfg.ProcessingBufferSize = 16
	cfg.ProcessingBatchSize = 10
	cfg.FileAllowedExts = []string{"log", "txt"}
	cfg.FileMaxSize = 10 << 20

	st := store.NewMemStore()
	ctrl := job.NewController(parser.NewRegistry(), st, cfg)
	return NewServer(cfg, ctrl, st), ctrl
}

func waitForCompletion(t *testing.T, c *job.Controller, jobID string) model.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s, err := c.GetStatus(jobID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if s.State == model.JobCompleted || s.State == model.JobFailed {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not complete in time", jobID)
	return model.JobStatus{}
}

func submitAndWait(t *testing.T, s *Server, c *job.Controller, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	jobID, err := c.SubmitJob(path, "app.log", int64(len(content)), "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	st := waitForCompletion(t, c, jobID)
	if st.State != model.JobCompleted {
		t.Fatalf("job did not complete: %+v", st)
	}
	return jobID
}

func TestHandleUploadAccepted(t *testing.T) {
	s, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("logfile", "app.log")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("2024-06-01 10:00:00.000 INFO 1 --- [main] a : hi\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/logs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.JobID == "" {
		t.Errorf("JobID is empty")
	}
}

func TestHandleUploadRejectsOversizedFile(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.FileMaxSize = 10

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("logfile", "app.log")
	part.Write(bytes.Repeat([]byte("x"), 100))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/logs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleUploadRejectsBadExtension(t *testing.T) {
	s, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("logfile", "app.exe")
	part.Write([]byte("hi"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/logs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStatusNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logs/status/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStatusAndResultAfterCompletion(t *testing.T) {
	s, c := newTestServer(t)
	jobID := submitAndWait(t, s, c, "2024-06-01 10:00:00.000 INFO 1 --- [main] a : hi\n")

	req := httptest.NewRequest(http.MethodGet, "/logs/status/"+jobID, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/logs/result/"+jobID, nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSearchGetByJobID(t *testing.T) {
	s, c := newTestServer(t)
	jobID := submitAndWait(t, s, c, "2024-06-01 10:00:00.000 INFO 1 --- [main] a : hi\n2024-06-01 10:00:01.000 ERROR 1 --- [main] a : boom\n")

	req := httptest.NewRequest(http.MethodGet, "/logs/search?jobId="+jobID+"&levels=ERROR", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp model.LogQueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(resp.Entries))
	}
}

func TestHandleSearchMissingJobIDFails(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logs/search", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSearchUnknownJobReturnsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logs/search?jobId=nope", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleJobTimeline(t *testing.T) {
	s, c := newTestServer(t)
	jobID := submitAndWait(t, s, c, "2024-06-01 10:00:00.000 INFO 1 --- [main] a : hi\n")

	req := httptest.NewRequest(http.MethodGet, "/logs/job/"+jobID+"/timeline", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleExportCSV(t *testing.T) {
	s, c := newTestServer(t)
	jobID := submitAndWait(t, s, c, "2024-06-01 10:00:00.000 INFO 1 --- [main] a : hi\n")

	req := httptest.NewRequest(http.MethodGet, "/logs/job/"+jobID+"/export?format=csv", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Errorf("missing Content-Type header")
	}
	if cd := rec.Header().Get("Content-Disposition"); cd == "" {
		t.Errorf("missing Content-Disposition header")
	}
}

func TestHandleExportUnknownJobReturnsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logs/job/nope/export?format=csv", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.ServerCORSOrigins = []string{"https://example.com"}
	st := store.NewMemStore()
	ctrl := job.NewController(parser.NewRegistry(), st, cfg)
	s := NewServer(cfg, ctrl, st)

	req := httptest.NewRequest(http.MethodGet, "/logs/status/nope", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://example.com")
	}
}
