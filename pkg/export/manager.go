package export

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dmtools/sqlog2db/pkg/config"
	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// Manager fans record batches out to all enabled sinks.
type Manager struct {
	exporters []Exporter
	logger    *log.Logger
}

// NewManager builds a manager holding the given sinks.
func NewManager(logger *log.Logger, exporters ...Exporter) *Manager {
	return &Manager{exporters: exporters, logger: logger}
}

// FromConfig builds a manager with one sink per enabled exporter table.
func FromConfig(cfg *config.Config, logger *log.Logger) (*Manager, error) {
	var exporters []Exporter

	if cfg.Exporter.JSONL.Enabled {
		exporters = append(exporters, NewJSONL(cfg.Exporter.JSONL))
	}
	if cfg.Exporter.CSV.Enabled {
		exporters = append(exporters, NewCSV(cfg.Exporter.CSV))
	}
	if cfg.Exporter.SQLite.Enabled {
		exporters = append(exporters, NewSQLite(cfg.Exporter.SQLite))
	}
	if cfg.Exporter.Mongo.Enabled {
		exporters = append(exporters, NewMongo(cfg.Exporter.Mongo))
	}
	if cfg.Exporter.Redis.Enabled {
		exporters = append(exporters, NewRedis(cfg.Exporter.Redis))
	}

	if len(exporters) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "no exporter enabled")
	}

	for _, e := range exporters {
		logger.Debugf("Registered exporter: %s", e.Name())
	}
	return NewManager(logger, exporters...), nil
}

// Names lists the registered sink names.
func (m *Manager) Names() []string {
	names := make([]string, len(m.exporters))
	for i, e := range m.exporters {
		names[i] = e.Name()
	}
	return names
}

// Initialize prepares every sink. On failure the already-initialized sinks
// are finalized before returning.
func (m *Manager) Initialize(ctx context.Context) error {
	for i, e := range m.exporters {
		if err := e.Initialize(ctx); err != nil {
			for _, done := range m.exporters[:i] {
				if ferr := done.Finalize(ctx); ferr != nil {
					m.logger.Warnf("Finalize %s after failed init: %v", done.Name(), ferr)
				}
			}
			return apperrors.Wrap(apperrors.ErrCodeExport, err, "initialize %s exporter", e.Name())
		}
	}
	return nil
}

// ExportBatch writes recs to every sink. The first sink failure aborts the
// batch.
func (m *Manager) ExportBatch(ctx context.Context, recs []sqllog.Record) error {
	if len(recs) == 0 {
		return nil
	}
	for _, e := range m.exporters {
		if err := e.ExportBatch(ctx, recs); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeExport, err, "export batch of %d records to %s", len(recs), e.Name())
		}
	}
	return nil
}

// Finalize flushes and closes every sink, returning the first error while
// still finalizing the rest.
func (m *Manager) Finalize(ctx context.Context) error {
	var first error
	for _, e := range m.exporters {
		if err := e.Finalize(ctx); err != nil && first == nil {
			first = apperrors.Wrap(apperrors.ErrCodeExport, err, "finalize %s exporter", e.Name())
		}
	}
	return first
}

// Stats returns each sink's counters keyed by sink name.
func (m *Manager) Stats() map[string]Stats {
	stats := make(map[string]Stats, len(m.exporters))
	for _, e := range m.exporters {
		stats[e.Name()] = e.Stats()
	}
	return stats
}

// LogStats writes a per-sink summary through the manager's logger.
func (m *Manager) LogStats() {
	for _, e := range m.exporters {
		s := e.Stats()
		m.logger.Infof("Exporter %s: %s records, %s failed, %d flushes",
			e.Name(), humanize.Comma(s.Exported), humanize.Comma(s.Failed), s.Flushes)
	}
}
