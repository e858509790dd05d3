// Package parser implements the format-detecting dispatch registry (§4.2)
// and the stateful per-format parsers (§4.3), grounded on the teacher's
// parser package: the priority-ordered format detection of
// parser/autodetect.go and the per-format parsing logic of
// parser/stderr_parser.go, parser/json_parser.go, and parser/csv_parser.go,
// generalized from PostgreSQL-specific fields to the generic LogEntry
// schema this service indexes.
package parser

import "github.com/dalibo/logforge/internal/model"

// Format names recognized by the registry (§4.2).
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

// Priorities, highest wins on ambiguous content (§4.2).
const (
	PriorityJSON = 20
	PriorityCSV  = 10
	PriorityText = 0
)

// Parser is the contract every format-specific parser implements (§4.3).
type Parser interface {
	// CanParse inspects fileName and a content sample without consuming
	// any irreversible state.
	CanParse(fileName, sample string) bool

	// ParseLine parses one source line into a ParseOutcome. n is the
	// 1-based line number. ctx carries the job's file-level settings and
	// counters; multi-line buffering and CSV header state live on the
	// parser itself and are cleared by Reset.
	ParseLine(line string, n int, ctx *model.ParseContext) model.ParseOutcome

	// Reset clears any per-file state the parser retains. Must be called
	// before parsing a new file.
	Reset()

	SupportedFormat() string
	Priority() int
	SupportsMultiLine() bool
}

// FlushPending gives multi-line-capable parsers a chance to emit a
// residual buffered entry at EOF (§4.3.1 flushPending).
type Flusher interface {
	FlushPending(ctx *model.ParseContext) *model.ParseOutcome
}
