package parser

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalibo/logforge/internal/model"
)

// Column alias tables (§4.3.3), compared case-insensitively.
var (
	csvTimestampAliases = toSet("timestamp", "time", "date", "datetime", "@timestamp", "log_time", "logtime", "created_at", "createdat", "ts")
	csvLevelAliases     = toSet("level", "severity", "log_level", "loglevel", "levelname", "priority", "log_severity")
	csvMessageAliases   = toSet("message", "msg", "text", "log_message", "logmessage", "description", "content", "body", "log")
	csvLoggerAliases    = toSet("logger", "logger_name", "loggername", "log_name")
	csvThreadAliases    = toSet("thread", "thread_name", "threadname")
	csvHostnameAliases  = toSet("hostname", "host")
	csvAppAliases       = toSet("application", "app", "service")
	csvEnvAliases       = toSet("environment", "env")
	csvStackAliases     = toSet("stack_trace", "stacktrace", "exception")
)

func toSet(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// CSVParser implements the delimiter-detecting CSV/TSV parser (§4.3.3),
// grounded on the teacher's parser/csv_parser.go use of encoding/csv for a
// fixed PostgreSQL column layout, generalized here to auto-detect both the
// delimiter and whether a header row is present.
type CSVParser struct {
	delimiter rune
	detected  bool
	headerRow []string
}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) SupportedFormat() string { return FormatCSV }
func (p *CSVParser) Priority() int           { return PriorityCSV }
func (p *CSVParser) SupportsMultiLine() bool { return false }

func (p *CSVParser) Reset() {
	p.delimiter = 0
	p.detected = false
	p.headerRow = nil
}

// CanParse accepts a sample whose first non-empty line contains at least
// one of the recognized delimiters.
func (p *CSVParser) CanParse(fileName, sample string) bool {
	ext := strings.ToLower(fileName)
	if strings.HasSuffix(ext, ".csv") || strings.HasSuffix(ext, ".tsv") {
		return true
	}
	for _, line := range strings.Split(sample, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		_, count := detectDelimiter(line)
		return count >= 1
	}
	return false
}

// detectDelimiter counts unquoted occurrences of each candidate delimiter
// in line and picks the maximum with count ≥ 1, defaulting to comma
// (§4.3.3).
func detectDelimiter(line string) (rune, int) {
	candidates := []rune{',', '\t', ';', '|'}
	best := ','
	bestCount := 0
	inQuotes := false
	counts := map[rune]int{}
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		for _, c := range candidates {
			if r == c {
				counts[c]++
			}
		}
	}
	for _, c := range candidates {
		if counts[c] > bestCount {
			bestCount = counts[c]
			best = c
		}
	}
	return best, bestCount
}

func (p *CSVParser) splitRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = p.delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.Read()
}

func (p *CSVParser) ParseLine(line string, n int, ctx *model.ParseContext) model.ParseOutcome {
	if strings.TrimSpace(line) == "" {
		return model.Skipped(n, "empty line")
	}

	if !p.detected {
		p.delimiter, _ = detectDelimiter(line)
		p.detected = true
	}

	fields, err := p.splitRow(line)
	if err != nil {
		return model.Failed(n, line, err)
	}

	if p.headerRow == nil {
		if looksLikeHeader(fields) {
			p.headerRow = fields
			return model.Skipped(n, "header row")
		}
		p.headerRow = positionalHeader(len(fields))
	}

	e := &model.LogEntry{
		JobID:      ctx.JobID,
		LineNumber: n,
		RawLine:    line,
		FileName:   ctx.FileName,
		Level:      model.LevelInfo,
	}

	meta := map[string]model.MetadataValue{}
	for i, raw := range fields {
		if raw == "" {
			continue
		}
		name := ""
		if i < len(p.headerRow) {
			name = strings.ToLower(p.headerRow[i])
		}
		switch {
		case csvTimestampAliases[name]:
			e.Timestamp = ParseTimestamp(raw, ctx.TimestampFormat, e.IndexedAt)
		case csvLevelAliases[name]:
			e.Level = model.NormalizeLevel(raw)
		case csvMessageAliases[name]:
			e.Message = raw
		case csvLoggerAliases[name]:
			e.Logger = raw
			e.Source = lastSegment(raw)
		case csvThreadAliases[name]:
			e.Thread = raw
		case csvHostnameAliases[name]:
			e.Hostname = raw
		case csvAppAliases[name]:
			e.Application = raw
		case csvEnvAliases[name]:
			e.Environment = raw
		case csvStackAliases[name]:
			e.StackTrace = raw
		default:
			header := name
			if i < len(p.headerRow) {
				header = p.headerRow[i]
			}
			meta[header] = coerceType(raw)
		}
	}

	if len(meta) > 0 {
		e.Metadata = meta
	}
	e.Normalize(time.Now())
	return model.Success(e)
}

// looksLikeHeader applies §4.3.3's rule: the first row is a header iff any
// cell matches a known column alias, or every cell is non-numeric.
func looksLikeHeader(fields []string) bool {
	allNonNumeric := true
	for _, f := range fields {
		lower := strings.ToLower(strings.TrimSpace(f))
		if csvTimestampAliases[lower] || csvLevelAliases[lower] || csvMessageAliases[lower] ||
			csvLoggerAliases[lower] || csvThreadAliases[lower] || csvHostnameAliases[lower] ||
			csvAppAliases[lower] || csvEnvAliases[lower] || csvStackAliases[lower] {
			return true
		}
		if isNumeric(f) {
			allNonNumeric = false
		}
	}
	return allNonNumeric
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// positionalHeader generates column_0..column_N, assigning the positional
// defaults of §4.3.3 (0=timestamp, 1=level, 2=message) when present.
func positionalHeader(n int) []string {
	names := make([]string, n)
	for i := range names {
		switch i {
		case 0:
			names[i] = "timestamp"
		case 1:
			names[i] = "level"
		case 2:
			names[i] = "message"
		default:
			names[i] = "column_" + strconv.Itoa(i)
		}
	}
	return names
}

// coerceType applies the type-coercion order of §4.3.3: boolean, then int,
// then long (int64), then double, then string.
func coerceType(raw string) model.MetadataValue {
	if !utf8.ValidString(raw) {
		return raw
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return int(i)
	}
	if l, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return l
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
