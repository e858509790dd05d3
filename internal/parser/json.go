package parser

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dalibo/logforge/internal/model"
)

// Field alias tables (§4.3.2), walked in order; the first present key wins.
var (
	jsonTimestampAliases = []string{"timestamp", "time", "@timestamp", "datetime", "date", "ts", "log_time", "logTime"}
	jsonLevelAliases     = []string{"level", "severity", "log_level", "logLevel", "loglevel", "levelname"}
	jsonMessageAliases   = []string{"message", "msg", "text", "log_message", "logMessage", "description"}
	jsonLoggerAliases    = []string{"logger", "logger_name", "loggerName", "class", "category", "name"}
	jsonThreadAliases    = []string{"thread"}
	jsonStackAliases     = []string{"stackTrace", "stack_trace", "stacktrace", "exception"}
	jsonHostnameAliases  = []string{"hostname", "host"}
	jsonAppAliases       = []string{"application", "app", "service", "serviceName"}
	jsonEnvAliases       = []string{"environment", "env"}
)

// JSONParser implements the JSON/NDJSON format parser (§4.3.2), grounded on
// the teacher's parser/json_parser.go (array vs. newline-delimited
// detection, lenient field extraction), generalized to the generic field
// alias tables and metadata preservation the spec requires.
type JSONParser struct{}

func NewJSONParser() *JSONParser { return &JSONParser{} }

func (p *JSONParser) SupportedFormat() string { return FormatJSON }
func (p *JSONParser) Priority() int           { return PriorityJSON }
func (p *JSONParser) SupportsMultiLine() bool { return false }
func (p *JSONParser) Reset()                  {}

// CanParse accepts a sample whose first line begins with '{' or whose
// trimmed form begins with '[' (§4.3.2); the closing character is not
// checked.
func (p *JSONParser) CanParse(fileName, sample string) bool {
	t := strings.TrimSpace(sample)
	if t == "" {
		return false
	}
	// Only look at the first meaningful line of the sample: an NDJSON
	// sample's later lines are independent objects, and an array sample's
	// closing bracket lives at the very end of the file, not the sample.
	first := t
	if idx := strings.IndexByte(t, '\n'); idx >= 0 {
		first = strings.TrimSpace(t[:idx])
	}
	if strings.HasPrefix(first, "{") {
		return true
	}
	return strings.HasPrefix(t, "[")
}

func (p *JSONParser) ParseLine(line string, n int, ctx *model.ParseContext) model.ParseOutcome {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimSuffix(trimmed, ",")
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return model.Skipped(n, "empty line")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return model.Failed(n, line, err)
	}

	e := &model.LogEntry{
		JobID:      ctx.JobID,
		LineNumber: n,
		RawLine:    line,
		FileName:   ctx.FileName,
	}

	if v, ok := firstPresent(raw, jsonTimestampAliases); ok {
		e.Timestamp = ParseTimestampValue(v, ctx.TimestampFormat, e.IndexedAt)
	}
	if v, ok := firstString(raw, jsonLevelAliases); ok {
		e.Level = model.NormalizeLevel(v)
	} else {
		e.Level = model.LevelInfo
	}
	if v, ok := firstString(raw, jsonMessageAliases); ok {
		e.Message = v
	}
	if v, ok := firstString(raw, jsonLoggerAliases); ok {
		e.Logger = v
		e.Source = lastSegment(v)
	}
	if v, ok := firstString(raw, jsonThreadAliases); ok {
		e.Thread = v
	}
	if v, ok := firstString(raw, jsonStackAliases); ok {
		e.StackTrace = v
		e.HasStackTrace = true
		if e.Level == model.LevelInfo {
			e.Level = model.LevelError
		}
	}
	if v, ok := firstString(raw, jsonHostnameAliases); ok {
		e.Hostname = v
	}
	if v, ok := firstString(raw, jsonAppAliases); ok {
		e.Application = v
	}
	if v, ok := firstString(raw, jsonEnvAliases); ok {
		e.Environment = v
	}

	e.Metadata = remainingFields(raw)
	e.Normalize(time.Now())
	return model.Success(e)
}

// firstPresent returns the first alias present in raw, regardless of type.
func firstPresent(raw map[string]interface{}, aliases []string) (interface{}, bool) {
	for _, a := range aliases {
		if v, ok := raw[a]; ok {
			return v, true
		}
	}
	return nil, false
}

// firstString returns the first alias present in raw, coerced to a string.
func firstString(raw map[string]interface{}, aliases []string) (string, bool) {
	v, ok := firstPresent(raw, aliases)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

// knownKeys collects every alias consumed above, so remainingFields can
// exclude them from metadata.
var knownKeys = buildKnownKeys()

func buildKnownKeys() map[string]bool {
	known := map[string]bool{}
	for _, group := range [][]string{
		jsonTimestampAliases, jsonLevelAliases, jsonMessageAliases, jsonLoggerAliases,
		jsonThreadAliases, jsonStackAliases, jsonHostnameAliases, jsonAppAliases, jsonEnvAliases,
	} {
		for _, k := range group {
			known[k] = true
		}
	}
	return known
}

// remainingFields builds the metadata map from every field not consumed by
// a known alias, preserving scalar type and flattening objects/arrays to
// their textual form (§4.3.2).
func remainingFields(raw map[string]interface{}) map[string]model.MetadataValue {
	if len(raw) == 0 {
		return nil
	}
	meta := map[string]model.MetadataValue{}
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		switch val := v.(type) {
		case string, float64, bool, nil:
			meta[k] = val
		default:
			if b, err := json.Marshal(val); err == nil {
				meta[k] = string(b)
			}
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
