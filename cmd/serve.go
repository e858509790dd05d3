package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalibo/logforge/internal/config"
	"github.com/dalibo/logforge/internal/httpapi"
	"github.com/dalibo/logforge/internal/job"
	"github.com/dalibo/logforge/internal/parser"
	"github.com/dalibo/logforge/internal/store"
)

var (
	configFile string
	memStore   bool
)

// serveCmd starts the HTTP server: upload/status/search/export endpoints
// backed by the job controller and a configured Store (§6).
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the log ingestion and query HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "",
		"Path to a config file (YAML/JSON/TOML, per spf13/viper)")
	serveCmd.Flags().BoolVar(&memStore, "mem-store", false,
		"Use an in-process memory store instead of Elasticsearch (development/testing only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	st, err := buildStore(cfg)
	if err != nil {
		return err
	}

	parsers := parser.NewRegistry()
	controller := job.NewController(parsers, st, cfg)
	server := httpapi.NewServer(cfg, controller, st)

	sweepTicker := time.NewTicker(1 * time.Hour)
	defer sweepTicker.Stop()
	sweepDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-sweepTicker.C:
				if n := controller.SweepExpired(); n > 0 {
					log.Printf("[INFO] swept %d expired job statuses", n)
				}
			case <-sweepDone:
				return
			}
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		close(sweepDone)
		return err
	case <-sig:
		log.Printf("[INFO] shutting down")
	}

	close(sweepDone)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// buildStore selects the Store implementation: Elasticsearch by default,
// or an in-memory store under --mem-store for local development (§9
// Open Question: storage backend selection is not specified, resolved in
// DESIGN.md).
func buildStore(cfg config.Config) (store.Store, error) {
	if memStore {
		return store.NewMemStore(), nil
	}
	return store.NewElasticStore(store.ElasticConfig{
		URLs:           cfg.StoreURLs,
		Username:       cfg.StoreUsername,
		Password:       cfg.StorePassword,
		ConnectTimeout: cfg.StoreConnectTimeout,
		SocketTimeout:  cfg.StoreSocketTimeout,
		IndexPrefix:    cfg.StoreIndexPrefix,
	})
}
