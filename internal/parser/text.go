package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dalibo/logforge/internal/model"
)

// Recognized line patterns (§4.3.1), tried in this order; first match wins.
// Named groups carry the fields each format exposes.
var (
	springBootPattern = regexp.MustCompile(
		`^(?P<ts>\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}[.,]\d{3})\s+(?P<level>TRACE|DEBUG|INFO|WARN|ERROR)\s+(?P<pid>\d+)\s+---\s+\[(?P<thread>[^\]]*)\]\s+(?P<logger>\S+)\s*:\s*(?P<message>.*)$`)

	log4jPattern = regexp.MustCompile(
		`^(?P<ts>\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}[.,]\d{3})\s+(?:\[(?P<thread>[^\]]*)\]\s+)?(?P<level>TRACE|DEBUG|INFO|WARN|ERROR)\s+(?P<logger>\S+)\s*-\s*(?P<message>.*)$`)

	apachePattern = regexp.MustCompile(
		`^(?P<ip>\S+)\s+(?P<ident>\S+)\s+(?P<user>\S+)\s+\[(?P<ts>[^\]]+)\]\s+"(?P<request>[^"]*)"\s+(?P<status>\d{3})\s+(?P<bytes>\S+)(?:\s+"(?P<referer>[^"]*)"\s+"(?P<ua>[^"]*)")?`)

	syslogPattern = regexp.MustCompile(
		`^(?P<ts>[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(?P<host>\S+)\s+(?P<service>[^\[:]+)(?:\[(?P<pid>\d+)\])?:\s*(?P<message>.*)$`)

	isoPattern = regexp.MustCompile(
		`^(?P<ts>\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s+(?:(?P<level>TRACE|DEBUG|INFO|WARN|WARNING|ERROR)\s+)?(?P<message>.*)$`)

	simplePattern = regexp.MustCompile(
		`^\[(?P<ts>[^\]]+)\]\s+(?P<level>\w+):\s*(?P<message>.*)$`)

	continuationPattern = regexp.MustCompile(`^(at |\.\.\.\s*\d+\s+more|Caused by:|Suppressed:)`)
	exceptionPattern    = regexp.MustCompile(`^(?:[\w$]+\.)+[\w$]*(Exception|Error|Throwable)\w*(: .*)?$`)

	kvPattern       = regexp.MustCompile(`(\w[\w.-]*)=("([^"]*)"|\S+)`)
	ipv4Pattern     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Pattern     = regexp.MustCompile(`\b[0-9a-fA-F:]{2,}:[0-9a-fA-F:]+\b`)
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	requestIDPattern = regexp.MustCompile(`(?i)(request|correlation|trace|x-request)-id[=: ]+(\S+)`)
)

type textState int

const (
	textIdle textState = iota
	textBuffering
)

// TextParser implements the line-oriented text parser (§4.3.1), carrying
// its own multi-line/stack-trace state machine across calls to ParseLine.
// Grounded on the teacher's multi-line accumulation in
// parser/stderr_parser.go (continuation-line detection and flush-at-EOF),
// generalized from the teacher's whitespace-prefix rule to the spec's
// regex-based exception/continuation rules.
type TextParser struct {
	state   textState
	pending *model.LogEntry

	// queued holds outcomes produced by the current call that could not
	// all be returned at once (a boundary line both flushes the old
	// buffered entry and starts a new one). The flush is returned at once
	// and the boundary line's own outcome waits here; ParseLine returns the
	// oldest queued outcome before queuing the next line's, so nothing is
	// lost — each queued outcome is delivered one call later than its line.
	queued []model.ParseOutcome
}

func NewTextParser() *TextParser { return &TextParser{} }

func (p *TextParser) SupportedFormat() string { return FormatText }
func (p *TextParser) Priority() int           { return PriorityText }
func (p *TextParser) SupportsMultiLine() bool { return true }

func (p *TextParser) Reset() {
	p.state = textIdle
	p.pending = nil
	p.queued = nil
}

// CanParse is the fallback parser: it accepts anything.
func (p *TextParser) CanParse(fileName, sample string) bool { return true }

func (p *TextParser) ParseLine(line string, n int, ctx *model.ParseContext) model.ParseOutcome {
	if len(p.queued) > 0 {
		out := p.queued[0]
		p.queued = p.queued[1:]
		p.queued = append(p.queued, p.process(line, n, ctx))
		return out
	}
	return p.process(line, n, ctx)
}

// process runs the state machine for one line and returns its primary
// outcome, queuing a second one internally when a boundary line both
// closes the previously buffered entry and opens (or completes) a new one.
func (p *TextParser) process(line string, n int, ctx *model.ParseContext) model.ParseOutcome {
	if strings.TrimSpace(line) == "" {
		if p.state == textBuffering {
			return p.flush()
		}
		return model.Skipped(n, "blank line")
	}

	if continuationPattern.MatchString(line) && p.state == textBuffering {
		p.pending.StackTrace += "\n" + line
		return model.Continuation(n, line)
	}

	if exceptionPattern.MatchString(strings.TrimSpace(line)) {
		entry := p.newEntry(line, n, ctx)
		entry.Level = model.LevelError
		entry.HasError = true
		entry.StackTrace = line

		if p.state == textBuffering {
			flushed := p.flush()
			p.pending = entry
			p.state = textBuffering
			p.queued = append(p.queued, model.Buffered(entry, n, line))
			return flushed
		}

		p.pending = entry
		p.state = textBuffering
		return model.Buffered(entry, n, line)
	}

	entry, _ := p.matchNormal(line, n, ctx)

	if p.state == textBuffering {
		flushed := p.flush()
		if containsExceptionWord(entry.Message) {
			p.pending = entry
			p.state = textBuffering
			p.queued = append(p.queued, model.Buffered(entry, n, line))
		} else {
			p.queued = append(p.queued, model.Success(entry))
		}
		return flushed
	}

	if containsExceptionWord(entry.Message) {
		p.pending = entry
		p.state = textBuffering
		return model.Buffered(entry, n, line)
	}
	return model.Success(entry)
}

func containsExceptionWord(message string) bool {
	return strings.Contains(message, "Exception") || strings.Contains(message, "Error") || strings.Contains(message, "Throwable")
}

func (p *TextParser) flush() model.ParseOutcome {
	entry := p.pending
	p.pending = nil
	p.state = textIdle
	entry.HasStackTrace = entry.StackTrace != ""
	return model.Success(entry)
}

// FlushPending implements parser.Flusher: emit any residual buffered entry
// at EOF (§4.3.1 flushPending). Callers should invoke it in a loop until it
// returns nil, since a boundary line late in the file may have left one
// outcome queued behind the buffered entry.
func (p *TextParser) FlushPending(ctx *model.ParseContext) *model.ParseOutcome {
	if len(p.queued) > 0 {
		out := p.queued[0]
		p.queued = p.queued[1:]
		return &out
	}
	if p.state != textBuffering || p.pending == nil {
		return nil
	}
	out := p.flush()
	return &out
}

func (p *TextParser) newEntry(line string, n int, ctx *model.ParseContext) *model.LogEntry {
	e := &model.LogEntry{
		JobID:      ctx.JobID,
		LineNumber: n,
		RawLine:    line,
		Message:    line,
		FileName:   ctx.FileName,
		Level:      model.LevelInfo,
	}
	extractMetadata(e, line)
	return e
}

// matchNormal tries the six recognized patterns in order and builds an
// entry from the first match; if none match, it builds a basic entry per
// the "no match" fallback rule.
func (p *TextParser) matchNormal(line string, n int, ctx *model.ParseContext) (*model.LogEntry, bool) {
	e := p.newEntry(line, n, ctx)

	switch {
	case matchNamed(springBootPattern, line, func(g map[string]string) {
		e.Timestamp = ParseTimestamp(g["ts"], ctx.TimestampFormat, e.IndexedAt)
		e.Level = model.NormalizeLevel(g["level"])
		e.Thread = g["thread"]
		e.Logger = g["logger"]
		e.Message = g["message"]
		e.Source = lastSegment(g["logger"])
	}):
		return finalize(e), true

	case matchNamed(log4jPattern, line, func(g map[string]string) {
		e.Timestamp = ParseTimestamp(g["ts"], ctx.TimestampFormat, e.IndexedAt)
		e.Level = model.NormalizeLevel(g["level"])
		e.Thread = g["thread"]
		e.Logger = g["logger"]
		e.Message = g["message"]
		e.Source = lastSegment(g["logger"])
	}):
		return finalize(e), true

	case matchNamed(apachePattern, line, func(g map[string]string) {
		e.Timestamp = ParseTimestamp(g["ts"], "dd/MMM/yyyy:HH:mm:ss", e.IndexedAt)
		e.Message = g["request"]
		if e.Metadata == nil {
			e.Metadata = map[string]model.MetadataValue{}
		}
		e.Metadata["client_ip"] = g["ip"]
		e.Metadata["user"] = g["user"]
		if status, err := strconv.Atoi(g["status"]); err == nil {
			e.Metadata["http_status"] = status
			e.Level, e.HasError = levelFromHTTPStatus(status)
		}
		if bytesN, err := strconv.ParseInt(g["bytes"], 10, 64); err == nil {
			e.Metadata["bytes"] = bytesN
		}
		if g["referer"] != "" {
			e.Metadata["referer"] = g["referer"]
		}
		if g["ua"] != "" {
			e.Metadata["user_agent"] = g["ua"]
		}
	}):
		return finalize(e), true

	case matchNamed(syslogPattern, line, func(g map[string]string) {
		e.Timestamp = ParseTimestamp(g["ts"], "MMM  d HH:mm:ss", time.Now())
		e.Hostname = g["host"]
		e.Logger = g["service"]
		e.Message = g["message"]
		if g["pid"] != "" {
			if e.Metadata == nil {
				e.Metadata = map[string]model.MetadataValue{}
			}
			e.Metadata["pid"] = g["pid"]
		}
	}):
		return finalize(e), true

	case matchNamed(isoPattern, line, func(g map[string]string) {
		e.Timestamp = ParseTimestamp(g["ts"], ctx.TimestampFormat, e.IndexedAt)
		if g["level"] != "" {
			e.Level = model.NormalizeLevel(g["level"])
		}
		e.Message = g["message"]
	}):
		return finalize(e), true

	case matchNamed(simplePattern, line, func(g map[string]string) {
		e.Timestamp = ParseTimestamp(g["ts"], ctx.TimestampFormat, e.IndexedAt)
		e.Level = model.NormalizeLevel(g["level"])
		e.Message = g["message"]
	}):
		return finalize(e), true
	}

	e.Timestamp = e.IndexedAt
	e.Level = model.LevelInfo
	return finalize(e), false
}

func finalize(e *model.LogEntry) *model.LogEntry {
	e.HasError = e.Level == model.LevelError
	e.HasStackTrace = e.StackTrace != ""
	return e
}

func levelFromHTTPStatus(status int) (model.Level, bool) {
	switch {
	case status >= 500:
		return model.LevelError, true
	case status >= 400:
		return model.LevelWarn, false
	default:
		return model.LevelInfo, false
	}
}

func lastSegment(logger string) string {
	idx := strings.LastIndex(logger, ".")
	if idx < 0 {
		return logger
	}
	return logger[idx+1:]
}

// matchNamed runs re against line; on a match it builds a name→value map of
// the pattern's named groups and invokes assign, returning true.
func matchNamed(re *regexp.Regexp, line string, assign func(map[string]string)) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		groups[name] = m[i]
	}
	assign(groups)
	return true
}

// extractMetadata always attempts key=value pairs, IP literals, URLs, and
// correlation-id patterns, independent of which recognized pattern (if any)
// matched (§4.3.1).
func extractMetadata(e *model.LogEntry, line string) {
	var meta map[string]model.MetadataValue

	for _, m := range kvPattern.FindAllStringSubmatch(line, -1) {
		key, val := m[1], m[2]
		if m[3] != "" {
			val = m[3]
		}
		if meta == nil {
			meta = map[string]model.MetadataValue{}
		}
		meta[key] = val
	}

	if ip := ipv4Pattern.FindString(line); ip != "" {
		if meta == nil {
			meta = map[string]model.MetadataValue{}
		}
		meta["ip"] = ip
	} else if ip := ipv6Pattern.FindString(line); ip != "" {
		if meta == nil {
			meta = map[string]model.MetadataValue{}
		}
		meta["ip"] = ip
	}

	if u := urlPattern.FindString(line); u != "" {
		if meta == nil {
			meta = map[string]model.MetadataValue{}
		}
		meta["url"] = u
	}

	if m := requestIDPattern.FindStringSubmatch(line); m != nil {
		if meta == nil {
			meta = map[string]model.MetadataValue{}
		}
		meta["requestId"] = m[2]
	}

	if meta != nil {
		e.Metadata = meta
	}
}
