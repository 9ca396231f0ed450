package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/dmtools/sqlog2db/pkg/config"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// SQLite writes records to a SQLite database, one transaction per batch.
type SQLite struct {
	cfg   config.SQLiteExporter
	db    *sql.DB
	stats Stats
}

// NewSQLite creates a SQLite sink.
func NewSQLite(cfg config.SQLiteExporter) *SQLite {
	return &SQLite{cfg: cfg}
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Initialize(ctx context.Context) error {
	if err := ensureParentDir(s.cfg.File); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", s.cfg.File, err)
	}
	if s.cfg.Overwrite {
		if err := os.Remove(s.cfg.File); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", s.cfg.File, err)
		}
	}

	db, err := sql.Open("sqlite", s.cfg.File)
	if err != nil {
		return fmt.Errorf("open sqlite database %s: %w", s.cfg.File, err)
	}

	// WAL keeps bulk inserts fast; the busy timeout avoids spurious
	// "database is locked" failures.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		ts TEXT NOT NULL,
		ep INTEGER NOT NULL,
		sess_id TEXT,
		thrd_id TEXT,
		username TEXT,
		trx_id TEXT,
		statement TEXT,
		appname TEXT,
		client_ip TEXT,
		sql TEXT,
		exec_time_ms REAL,
		row_count INTEGER,
		exec_id INTEGER
	)`, s.cfg.Table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("create table %s: %w", s.cfg.Table, err)
	}

	s.db = db
	return nil
}

func (s *SQLite) ExportBatch(ctx context.Context, recs []sqllog.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (ts, ep, sess_id, thrd_id, username, trx_id, statement, appname, client_ip, sql, exec_time_ms, row_count, exec_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.cfg.Table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range recs {
		r := &recs[i]
		_, err := stmt.ExecContext(ctx,
			r.TS, r.EP, r.SessID, r.ThrdID, r.Username, r.TrxID,
			r.Statement, r.AppName, r.ClientIP, r.SQL,
			nullFloat(r.ExecTimeMS), nullUint32(r.RowCount), nullInt64(r.ExecID))
		if err != nil {
			tx.Rollback()
			s.stats.Failed += int64(len(recs))
			return fmt.Errorf("insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.stats.Failed += int64(len(recs))
		return fmt.Errorf("commit batch: %w", err)
	}
	s.stats.recordBatch(len(recs))
	return nil
}

func (s *SQLite) Finalize(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Stats() Stats { return s.stats }

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullUint32(v *uint32) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
