// Package httpapi exposes the ingestion and query layers over HTTP (§6),
// grounded on the teacher's sibling example repo's webhook router
// (influxdb/telegraf plugins/inputs/webhooks/webhooks.go): a gorilla/mux
// router wrapped in a plain http.Server, routes registered by a set of
// per-concern handler groups instead of one giant switch.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dalibo/logforge/internal/config"
	"github.com/dalibo/logforge/internal/job"
	"github.com/dalibo/logforge/internal/store"
)

// Server bundles the router with the components handlers depend on.
type Server struct {
	router     *mux.Router
	httpServer *http.Server

	controller *job.Controller
	store      store.Store
	cfg        config.Config
}

// NewServer builds a Server with every §6 route registered under the
// `/logs` prefix.
func NewServer(cfg config.Config, controller *job.Controller, st store.Store) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		controller: controller,
		store:      st,
		cfg:        cfg,
	}

	logs := s.router.PathPrefix("/logs").Subrouter()
	s.registerUploadRoutes(logs)
	s.registerStatusRoutes(logs)
	s.registerSearchRoutes(logs)
	s.registerJobRoutes(logs)
	s.registerExportRoutes(logs)

	handler := s.withCORS(s.router)

	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}
	return s
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// withCORS applies the configured allowed origins (§6 "CORS is configured
// at boundary") ahead of the router.
func (s *Server) withCORS(next http.Handler) http.Handler {
	origins := s.cfg.ServerCORSOrigins
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && corsAllowed(origins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsAllowed(origins []string, origin string) bool {
	for _, o := range origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return len(origins) == 0
}

// requestDeadline bounds handler-internal store calls to the server's own
// write timeout so a slow backend can't hold a connection open forever.
func (s *Server) requestDeadline(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := s.cfg.ServerWriteTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}
