// Package cmd implements the command-line interface for logforge.
// It uses the Cobra library to handle commands, flags, and execution,
// the same way the teacher's CLI did, generalized from a one-shot log
// parser invocation to a server/query front-end over the ingestion and
// query HTTP API (§6).
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// Version information (passed from main).
var (
	version string
	commit  string
	date    string
)

// rootCmd is the main command for the logforge CLI.
var rootCmd = &cobra.Command{
	Use:   "logforge",
	Short: "Log ingestion and query service",
	Long: `logforge ingests application log files asynchronously and exposes
a declarative HTTP query API over the results.

Use "logforge serve" to start the HTTP server, or "logforge query" to run
a one-off search against a running server from the command line.`,
}

// Execute runs the root command. This is called by main.go to start the
// CLI application.
func Execute(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
}
