package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/dmtools/sqlog2db/pkg/config"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// csvHeader is the column order of the CSV export.
var csvHeader = []string{
	"ts", "ep", "sess_id", "thrd_id", "username", "trx_id", "statement",
	"appname", "client_ip", "sql", "exec_time_ms", "row_count", "exec_id",
}

// CSV writes records to a CSV file with a header row.
type CSV struct {
	cfg   config.CSVExporter
	file  *os.File
	w     *csv.Writer
	stats Stats
}

// NewCSV creates a CSV sink.
func NewCSV(cfg config.CSVExporter) *CSV {
	return &CSV{cfg: cfg}
}

func (c *CSV) Name() string { return "csv" }

func (c *CSV) Initialize(_ context.Context) error {
	if err := ensureParentDir(c.cfg.File); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", c.cfg.File, err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if c.cfg.Overwrite {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(c.cfg.File, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.cfg.File, err)
	}

	c.file = f
	c.w = csv.NewWriter(f)
	if c.cfg.Delimiter != "" {
		c.w.Comma = []rune(c.cfg.Delimiter)[0]
	}
	if err := c.w.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (c *CSV) ExportBatch(_ context.Context, recs []sqllog.Record) error {
	for i := range recs {
		if err := c.w.Write(csvRow(&recs[i])); err != nil {
			c.stats.Failed++
			return fmt.Errorf("write record: %w", err)
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", c.cfg.File, err)
	}
	c.stats.recordBatch(len(recs))
	return nil
}

func (c *CSV) Finalize(_ context.Context) error {
	if c.file == nil {
		return nil
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return fmt.Errorf("flush %s: %w", c.cfg.File, err)
	}
	return c.file.Close()
}

func (c *CSV) Stats() Stats { return c.stats }

func csvRow(r *sqllog.Record) []string {
	row := []string{
		r.TS,
		strconv.Itoa(int(r.EP)),
		r.SessID,
		r.ThrdID,
		r.Username,
		r.TrxID,
		r.Statement,
		r.AppName,
		r.ClientIP,
		r.SQL,
		"", "", "",
	}
	if r.ExecTimeMS != nil {
		row[10] = strconv.FormatFloat(*r.ExecTimeMS, 'f', -1, 64)
	}
	if r.RowCount != nil {
		row[11] = strconv.FormatUint(uint64(*r.RowCount), 10)
	}
	if r.ExecID != nil {
		row[12] = strconv.FormatInt(*r.ExecID, 10)
	}
	return row
}
