package export

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/dmtools/sqlog2db/pkg/config"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// JSONL writes records as JSON Lines: one self-contained JSON object per
// line.
type JSONL struct {
	cfg   config.JSONLExporter
	file  *os.File
	w     *bufio.Writer
	enc   *json.Encoder
	stats Stats
}

// NewJSONL creates a JSONL sink. Append mode takes precedence over
// overwrite.
func NewJSONL(cfg config.JSONLExporter) *JSONL {
	return &JSONL{cfg: cfg}
}

func (j *JSONL) Name() string { return "jsonl" }

func (j *JSONL) Initialize(_ context.Context) error {
	if err := ensureParentDir(j.cfg.File); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", j.cfg.File, err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	switch {
	case j.cfg.Append:
		flags |= os.O_APPEND
	case j.cfg.Overwrite:
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(j.cfg.File, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", j.cfg.File, err)
	}

	j.file = f
	j.w = bufio.NewWriterSize(f, 256*1024)
	j.enc = json.NewEncoder(j.w)
	j.enc.SetEscapeHTML(false)
	return nil
}

func (j *JSONL) ExportBatch(_ context.Context, recs []sqllog.Record) error {
	for i := range recs {
		if err := j.enc.Encode(&recs[i]); err != nil {
			j.stats.Failed++
			return fmt.Errorf("encode record: %w", err)
		}
	}
	j.stats.recordBatch(len(recs))
	return nil
}

func (j *JSONL) Finalize(_ context.Context) error {
	if j.file == nil {
		return nil
	}
	if err := j.w.Flush(); err != nil {
		j.file.Close()
		return fmt.Errorf("flush %s: %w", j.cfg.File, err)
	}
	return j.file.Close()
}

func (j *JSONL) Stats() Stats { return j.stats }
