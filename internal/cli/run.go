package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dmtools/sqlog2db/pkg/config"
	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
	"github.com/dmtools/sqlog2db/pkg/errlog"
	"github.com/dmtools/sqlog2db/pkg/export"
	phooks "github.com/dmtools/sqlog2db/pkg/progress"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// runSummary aggregates the counters of one export run.
type runSummary struct {
	files       int
	records     int64
	parseErrors int64
	elapsed     time.Duration
}

// newRunCmd creates the run command, which parses SQL logs and exports the
// records to every enabled sink.
func newRunCmd() *cobra.Command {
	var (
		configPath string
		useTUI     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Parse SQL logs and export them to the enabled sinks",
		Long: `Parse DM database SQL logs and export the records.

The input directory, batch size and sinks come from the configuration file.
When the file does not exist the built-in defaults are used, which read logs
from ./sqllog and write a JSONL export to export/sqllog2db.jsonl. Lines that
fail to parse are journaled to the error file and never abort the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(configPath)
			if err != nil {
				if apperrors.GetCode(err) != apperrors.ErrCodeFileNotFound {
					return err
				}
				logger.Warnf("No configuration at %s, using defaults", configPath)
				cfg = config.Default()
			}
			logger.Debugf("Configuration: %s", cfg.String())

			if useTUI {
				return runWithTUI(ctx, &cfg, logger)
			}

			spin := newSpinnerWithContext(ctx, fmt.Sprintf("Exporting SQL logs from %s...", cfg.Sqllog.Directory))
			spin.Start()

			sum, err := runExport(ctx, &cfg, logger)
			if err != nil {
				spin.StopWithError("Export failed")
				return err
			}

			spin.StopWithSuccess(fmt.Sprintf("Exported %s records from %d file(s) in %s",
				humanize.Comma(sum.records), sum.files, sum.elapsed.Round(time.Millisecond)))
			if sum.parseErrors > 0 {
				printWarning("%s lines failed to parse, see %s", humanize.Comma(sum.parseErrors), cfg.Error.File)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "configuration file")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show an interactive progress view")

	return cmd
}

// runExport drives the parse/export pipeline: discover log files, parse each
// one, journal parse failures and fan record batches out to the sinks.
// Progress events are emitted through the registered progress hooks.
func runExport(ctx context.Context, cfg *config.Config, logger *log.Logger) (runSummary, error) {
	start := time.Now()

	parser := sqllog.New(cfg.Sqllog.Directory)
	files, err := parser.LogFiles()
	if err != nil {
		return runSummary{}, err
	}

	journal, err := errlog.New(cfg.Error.File)
	if err != nil {
		return runSummary{}, err
	}
	defer journal.Close()

	manager, err := export.FromConfig(cfg, logger)
	if err != nil {
		return runSummary{}, err
	}
	if err := manager.Initialize(ctx); err != nil {
		return runSummary{}, err
	}

	batchSize := cfg.Sqllog.BatchSize
	if batchSize <= 0 {
		batchSize = config.Default().Sqllog.BatchSize
	}

	hooks := phooks.Get()
	hooks.OnRunStart(ctx, len(files), manager.Names())

	sum := runSummary{files: len(files)}
	if err := exportFiles(ctx, parser, files, manager, journal, batchSize, &sum, logger); err != nil {
		if ferr := manager.Finalize(ctx); ferr != nil {
			logger.Warnf("Finalize after failed export: %v", ferr)
		}
		return runSummary{}, err
	}

	if err := manager.Finalize(ctx); err != nil {
		return runSummary{}, err
	}
	manager.LogStats()

	sum.elapsed = time.Since(start)
	hooks.OnRunDone(ctx, sum.records, sum.parseErrors, sum.elapsed)
	return sum, nil
}

// exportFiles parses each log file and exports its records in batches.
// An unreadable file is journaled and skipped; an export failure aborts.
func exportFiles(ctx context.Context, parser *sqllog.Parser, files []string, manager *export.Manager, journal *errlog.Logger, batchSize int, sum *runSummary, logger *log.Logger) error {
	hooks := phooks.Get()

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		hooks.OnFileStart(ctx, i, file)

		recs, perrs, err := parser.ParseFile(file)
		if err != nil {
			logger.Errorf("Skipping %s: %v", file, err)
			if jerr := journal.LogFileError(file, err); jerr != nil {
				logger.Warnf("Journal write failed: %v", jerr)
			}
			hooks.OnFileDone(ctx, i, file, err)
			continue
		}

		for _, pe := range perrs {
			if jerr := journal.LogParseError(pe); jerr != nil {
				logger.Warnf("Journal write failed: %v", jerr)
			}
		}
		if len(perrs) > 0 {
			sum.parseErrors += int64(len(perrs))
			hooks.OnBatch(ctx, i, 0, len(perrs))
		}

		for off := 0; off < len(recs); off += batchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(off+batchSize, len(recs))
			if err := manager.ExportBatch(ctx, recs[off:end]); err != nil {
				hooks.OnFileDone(ctx, i, file, err)
				return err
			}
			sum.records += int64(end - off)
			hooks.OnBatch(ctx, i, end-off, 0)
		}

		hooks.OnFileDone(ctx, i, file, nil)
		logger.Debugf("Parsed %s: %s records, %d parse errors",
			file, humanize.Comma(int64(len(recs))), len(perrs))
	}
	return nil
}
