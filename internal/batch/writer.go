// Package batch implements the bounded, flush-on-threshold accumulator
// that sits between the ingestion pipeline and the storage backend (§4.4).
package batch

import (
	"context"
	"log"
	"time"

	"github.com/dalibo/logforge/internal/model"
)

// DefaultBatchSize is the accumulator threshold before a synchronous flush
// (§4.4), matching the configuration default.
const DefaultBatchSize = 1000

// Writer is the contract the batch accumulator needs from a storage
// backend: a bulk write, and a per-entry fallback for partial-failure
// recovery.
type Writer interface {
	BulkWrite(ctx context.Context, entries []*model.LogEntry) error
	WriteOne(ctx context.Context, entry *model.LogEntry) error
}

// FlushStats describes one flush (§4.4).
type FlushStats struct {
	Attempted int
	Saved     int
	ElapsedMs int64
}

// Statistics aggregates every flush performed by a Batch over its
// lifetime (§4.4).
type Statistics struct {
	Total       int
	Saved       int
	Failed      int
	BatchCount  int
	AvgSaveMs   float64
	SuccessRate float64
}

// FlushCallback is invoked after each flush, carrying that flush's own
// counters and the cumulative statistics — C5 uses it to drive progress.
type FlushCallback func(FlushStats, Statistics)

// Batch accumulates LogEntry values and flushes them to a Writer in
// bounded groups. It is confined to one ingestion worker; no
// synchronization is needed (§5).
type Batch struct {
	writer          Writer
	size            int
	continueOnError bool
	onFlush         FlushCallback

	buf   []*model.LogEntry
	stats Statistics

	totalSaveMs int64
}

// New builds a Batch with the given threshold. size<=0 falls back to
// DefaultBatchSize.
func New(writer Writer, size int, continueOnError bool, onFlush FlushCallback) *Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batch{
		writer:          writer,
		size:            size,
		continueOnError: continueOnError,
		onFlush:         onFlush,
		buf:             make([]*model.LogEntry, 0, size),
	}
}

// Add appends entry to the accumulator, flushing synchronously once the
// threshold is reached (§4.4).
func (b *Batch) Add(ctx context.Context, entry *model.LogEntry) error {
	b.buf = append(b.buf, entry)
	if len(b.buf) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush attempts a bulk write of the current buffer; on failure, if
// continueOnError is set, falls back to per-entry writes so partial
// progress survives a single bad document (§4.4).
func (b *Batch) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	entries := b.buf
	b.buf = make([]*model.LogEntry, 0, b.size)

	start := time.Now()
	attempted := len(entries)
	saved := attempted

	if err := b.writer.BulkWrite(ctx, entries); err != nil {
		log.Printf("[WARN] bulk write of %d entries failed: %v", attempted, err)
		if !b.continueOnError {
			return err
		}
		saved = 0
		for _, e := range entries {
			if werr := b.writer.WriteOne(ctx, e); werr != nil {
				log.Printf("[ERROR] per-entry write failed for line %d: %v", e.LineNumber, werr)
				continue
			}
			saved++
		}
	}

	elapsed := time.Since(start)
	flush := FlushStats{Attempted: attempted, Saved: saved, ElapsedMs: elapsed.Milliseconds()}
	b.record(attempted, saved, elapsed)

	if b.onFlush != nil {
		b.onFlush(flush, b.stats)
	}
	return nil
}

func (b *Batch) record(attempted, saved int, elapsed time.Duration) {
	b.stats.Total += attempted
	b.stats.Saved += saved
	b.stats.Failed += attempted - saved
	b.stats.BatchCount++
	b.totalSaveMs += elapsed.Milliseconds()

	if b.stats.BatchCount > 0 {
		b.stats.AvgSaveMs = float64(b.totalSaveMs) / float64(b.stats.BatchCount)
	}
	if b.stats.Total > 0 {
		b.stats.SuccessRate = float64(b.stats.Saved) / float64(b.stats.Total)
	}
}

// Stats returns a snapshot of the aggregate statistics accumulated so
// far.
func (b *Batch) Stats() Statistics { return b.stats }
