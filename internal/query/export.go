package query

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

// Export compiles req (capped at opts.MaxRecords, default 10 000, ceiling
// 100 000), fetches the matching entries page by page, and renders them to
// w in the requested format (§4.7). Export bypasses the interactive
// per-request size cap (1-1000) by paging internally at model.MaxPageSize.
func Export(ctx context.Context, st store.Store, req model.LogQueryRequest, opts model.ExportOptions, w io.Writer) error {
	maxRecords := opts.MaxRecords
	if maxRecords <= 0 {
		maxRecords = model.DefaultMaxExportRecords
	}
	if maxRecords > model.MaxExportRecordsCeiling {
		maxRecords = model.MaxExportRecordsCeiling
	}

	req.ApplyDefaults()
	req.Size = model.MaxPageSize
	req.IncludeSummary = false
	req.HighlightMatches = false

	var entries []model.LogEntry
	for page := 0; len(entries) < maxRecords; page++ {
		req.Page = page
		q, err := Compile(req)
		if err != nil {
			return err
		}
		result, err := st.Search(ctx, q)
		if err != nil {
			return errkind.Wrap(errkind.Storage, "export search failed", err)
		}
		if len(result.Entries) == 0 {
			break
		}
		for _, e := range result.Entries {
			entries = append(entries, *e)
			if len(entries) >= maxRecords {
				break
			}
		}
		if len(result.Entries) < req.Size {
			break
		}
	}

	switch opts.Format {
	case model.ExportCSV:
		return renderCSV(w, entries, opts)
	case model.ExportJSON:
		return renderJSON(w, entries)
	case model.ExportNDJSON:
		return renderNDJSON(w, entries)
	default:
		return errkind.New(errkind.Validation, fmt.Sprintf("unsupported export format %q", opts.Format))
	}
}

func renderCSV(w io.Writer, entries []model.LogEntry, opts model.ExportOptions) error {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = model.DefaultExportFields
	}

	cw := csv.NewWriter(w)
	cw.Comma = delim

	if opts.IncludeHeader {
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	for _, e := range entries {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = exportFieldValue(e, f)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// exportFieldValue renders one entry field as CSV text; null/absent
// values serialize as empty string (§4.7).
func exportFieldValue(e model.LogEntry, field string) string {
	switch field {
	case "id":
		return e.ID
	case "jobId":
		return e.JobID
	case "lineNumber":
		return strconv.Itoa(e.LineNumber)
	case "timestamp":
		return e.Timestamp.Format(model.WireTimestampFormat)
	case "indexedAt":
		return e.IndexedAt.Format(model.WireTimestampFormat)
	case "level":
		return string(e.Level)
	case "message":
		return e.Message
	case "rawLine":
		return e.RawLine
	case "stackTrace":
		return e.StackTrace
	case "logger":
		return e.Logger
	case "thread":
		return e.Thread
	case "source":
		return e.Source
	case "hostname":
		return e.Hostname
	case "application":
		return e.Application
	case "environment":
		return e.Environment
	case "fileName":
		return e.FileName
	default:
		if v, ok := e.Metadata[field]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
}

func renderJSON(w io.Writer, entries []model.LogEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func renderNDJSON(w io.Writer, entries []model.LogEntry) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return bw.Flush()
}
