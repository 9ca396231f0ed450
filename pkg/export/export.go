// Package export writes parsed SQL log records to one or more sinks.
//
// Each sink implements the Exporter interface and keeps its own Stats. The
// Manager fans record batches out to every enabled sink and aggregates the
// statistics for the end-of-run report. Sinks: JSONL and CSV files, a SQLite
// database, a MongoDB collection, and a Redis stream.
package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// Exporter is a single export sink.
type Exporter interface {
	// Name identifies the sink in logs and stats.
	Name() string

	// Initialize prepares the sink: opens files, connects, creates
	// tables.
	Initialize(ctx context.Context) error

	// ExportBatch writes a batch of records.
	ExportBatch(ctx context.Context, recs []sqllog.Record) error

	// Finalize flushes buffers and releases resources. It must be safe
	// to call after a failed Initialize.
	Finalize(ctx context.Context) error

	// Stats returns a snapshot of the sink's counters.
	Stats() Stats
}

// Stats counts a sink's activity.
type Stats struct {
	// Exported is the number of records written.
	Exported int64

	// Failed is the number of records that could not be written.
	Failed int64

	// Flushes is the number of batch flush operations.
	Flushes int64

	// LastFlush is the size of the most recent flush.
	LastFlush int
}

func (s *Stats) recordBatch(n int) {
	s.Exported += int64(n)
	s.Flushes++
	s.LastFlush = n
}

// ensureParentDir creates the parent directory of a file path.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
