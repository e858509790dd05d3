// Package output renders query results for the logforge CLI (cmd/query.go),
// the way the teacher's output package renders analysis reports for its
// CLI: a terminal-width-aware table for search results (grounded on
// query_table.go) and a proportional bar chart for timeline buckets
// (grounded on histogram.go/histogram_query.go).
package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dalibo/logforge/internal/model"
)

// entryColumn describes one fixed column of the entries table; the
// message column absorbs whatever width remains (mirrors query_table.go's
// "Query" column treatment).
type entryColumn struct {
	header string
	width  int
	value  func(model.LogEntry) string
}

func entryColumns() []entryColumn {
	return []entryColumn{
		{"TIMESTAMP", 23, func(e model.LogEntry) string { return e.Timestamp.Format(model.WireTimestampFormat) }},
		{"LEVEL", 5, func(e model.LogEntry) string { return string(e.Level) }},
		{"LINE", 8, func(e model.LogEntry) string { return fmt.Sprintf("%d", e.LineNumber) }},
		{"LOGGER", 20, func(e model.LogEntry) string { return e.Logger }},
	}
}

// PrintEntriesTable renders entries as an aligned table, matching the
// teacher's wide/compact split: a message column is shown in full on wide
// terminals and truncated on narrow ones.
func PrintEntriesTable(entries []model.LogEntry) {
	if len(entries) == 0 {
		fmt.Println("no matching entries")
		return
	}

	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth <= 0 {
		termWidth = 120
	}

	cols := entryColumns()
	fixedWidth := 0
	for _, c := range cols {
		fixedWidth += c.width + 2
	}
	msgWidth := termWidth - fixedWidth - 2
	if msgWidth < 20 {
		msgWidth = 20
	}

	bold, reset := "\033[1m", "\033[0m"

	var header strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&header, "%-*s  ", c.width, c.header)
	}
	fmt.Fprintf(&header, "%-*s", msgWidth, "MESSAGE")
	fmt.Println(bold + header.String() + reset)
	fmt.Println(strings.Repeat("-", termWidth))

	for _, e := range entries {
		var row strings.Builder
		for _, c := range cols {
			fmt.Fprintf(&row, "%-*s  ", c.width, truncate(c.value(e), c.width))
		}
		fmt.Fprintf(&row, "%-*s", msgWidth, truncate(e.Message, msgWidth))
		fmt.Println(row.String())
	}
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}

// PrintTimeline renders a TimelineData as a proportional horizontal bar
// chart, one row per bucket, the bar length scaled to a 40-character
// maximum (mirrors histogram.go's bucket-to-bar scaling).
func PrintTimeline(data model.TimelineData) {
	if len(data.Buckets) == 0 {
		fmt.Println("no data in range")
		return
	}

	const maxBarWidth = 40
	var maxCount int64
	for _, b := range data.Buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	fmt.Printf("interval: %s\n", data.Interval)
	for _, b := range data.Buckets {
		barLen := int(b.Count * maxBarWidth / maxCount)
		if barLen == 0 && b.Count > 0 {
			barLen = 1
		}
		bar := strings.Repeat("■", barLen)
		fmt.Printf("%s  %-40s %6d (err:%d warn:%d)\n",
			b.Timestamp.Format("2006-01-02 15:04"), bar, b.Count, b.ErrorCount, b.WarnCount)
	}
}
