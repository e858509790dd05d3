package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Buffer size constants, matching the scanner sizing the teacher uses for
// long PostgreSQL STATEMENT lines (parser/stderr_parser.go).
const (
	scannerInitialBuffer = 4 * 1024 * 1024
	scannerMaxBuffer      = 100 * 1024 * 1024

	// DefaultProgressInterval is how often (in handled lines) progress is
	// reported during the second pass (§4.1).
	DefaultProgressInterval = 1000
)

// BOM markers recognized by Open.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// Line is one (text, 1-based line number) pair produced by the reader.
type Line struct {
	Text   string
	Number int
}

// ProgressFunc is invoked periodically during Each with the number of lines
// handled so far and the total from a prior CountLines call (0 if unknown).
type ProgressFunc func(current, total int)

// ErrorFunc is invoked when a per-line handler returns an error. If set,
// Each logs and continues; if nil, Each propagates the first error and
// stops.
type ErrorFunc func(line Line, err error)

// ProcessingStats summarizes one full pass over a file (§4.1).
type ProcessingStats struct {
	TotalLines int
	Bytes       int64
	Elapsed     time.Duration
	LinesPerSec float64
}

// StreamReader reads a file line-by-line with a configurable buffer,
// transparently decompressing recognized suffixes, and never loads the
// whole file into memory.
type StreamReader struct {
	MaxLineLength    int
	ProgressInterval int
	OnProgress       ProgressFunc
	OnError          ErrorFunc
	StartLine        int // resume point: first line number to deliver (1-based)
}

// NewStreamReader builds a reader with the documented defaults.
func NewStreamReader(maxLineLength int) *StreamReader {
	if maxLineLength <= 0 {
		maxLineLength = 100_000
	}
	return &StreamReader{
		MaxLineLength:    maxLineLength,
		ProgressInterval: DefaultProgressInterval,
		StartLine:        1,
	}
}

// open opens fileName, returning a ReadCloser that transparently
// decompresses recognized suffixes and strips a leading BOM if present.
func open(fileName string) (io.ReadCloser, string, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, fileName, fmt.Errorf("open %s: %w", fileName, err)
	}

	c, baseName, compressed := detectCodec(fileName)
	var rc io.ReadCloser = f
	if compressed {
		dr, err := c.opener(f)
		if err != nil {
			f.Close()
			return nil, baseName, fmt.Errorf("open %s decompressor for %s: %w", c.name, fileName, err)
		}
		rc = &wrappedReadCloser{Reader: dr, closers: []io.Closer{dr, f}}
	}
	return stripBOM(rc), baseName, nil
}

type wrappedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (w *wrappedReadCloser) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// stripBOM peeks the first bytes of r and, if they form a recognized BOM
// (UTF-8, UTF-16BE, UTF-16LE per §4.1), consumes them before returning.
// UTF-16 content downstream of the BOM is not transcoded — the service
// treats input as UTF-8 by default — but the marker itself never leaks
// into the first line.
func stripBOM(r io.ReadCloser) io.ReadCloser {
	br := bufio.NewReaderSize(r, 4096)
	peek, _ := br.Peek(3)
	switch {
	case bytes.HasPrefix(peek, bomUTF8):
		br.Discard(len(bomUTF8))
	case bytes.HasPrefix(peek, bomUTF16LE):
		br.Discard(len(bomUTF16LE))
	case len(peek) >= 2 && bytes.HasPrefix(peek, bomUTF16BE):
		br.Discard(len(bomUTF16BE))
	}
	return &bufReadCloser{Reader: br, Closer: r}
}

type bufReadCloser struct {
	*bufio.Reader
	io.Closer
}

// CountLines performs the first pass (§4.1): count total lines for the
// progress denominator, without retaining any line content.
func (s *StreamReader) CountLines(fileName string) (int, error) {
	rc, _, err := open(fileName)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)

	count := 0
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("counting lines in %s: %w", fileName, err)
	}
	return count, nil
}

// Each performs the second pass: stream (line, line_number) pairs to
// handle, truncating any line that exceeds MaxLineLength and reporting
// progress every ProgressInterval handled lines. total is the denominator
// from a prior CountLines call (0 if the caller doesn't have one).
func (s *StreamReader) Each(fileName string, total int, handle func(Line) error) (ProcessingStats, error) {
	start := time.Now()

	rc, _, err := open(fileName)
	if err != nil {
		return ProcessingStats{}, err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)

	interval := s.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	var bytesRead int64
	lineNum := 0
	handled := 0

	for scanner.Scan() {
		lineNum++
		text := scanner.Text()
		bytesRead += int64(len(text)) + 1

		if lineNum < s.StartLine {
			continue
		}

		if s.MaxLineLength > 0 && len(text) > s.MaxLineLength {
			log.Printf("[WARN] %s:%d: line of %d chars truncated to %d", fileName, lineNum, len(text), s.MaxLineLength)
			text = text[:s.MaxLineLength]
		}

		line := Line{Text: text, Number: lineNum}
		if err := handle(line); err != nil {
			if s.OnError != nil {
				s.OnError(line, err)
			} else {
				return ProcessingStats{}, fmt.Errorf("handling %s:%d: %w", fileName, lineNum, err)
			}
		}

		handled++
		if s.OnProgress != nil && handled%interval == 0 {
			s.OnProgress(handled, total)
		}
	}
	if err := scanner.Err(); err != nil {
		return ProcessingStats{}, fmt.Errorf("reading %s: %w", fileName, err)
	}
	if s.OnProgress != nil {
		s.OnProgress(handled, total)
	}

	elapsed := time.Since(start)
	stats := ProcessingStats{TotalLines: lineNum, Bytes: bytesRead, Elapsed: elapsed}
	if elapsed > 0 {
		stats.LinesPerSec = float64(lineNum) / elapsed.Seconds()
	}
	return stats, nil
}
