// Package main is the entry point for the logforge application: an
// asynchronous log ingestion and query HTTP service.
package main

import (
	"github.com/dalibo/logforge/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
