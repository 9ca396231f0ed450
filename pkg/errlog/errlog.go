// Package errlog journals SQL log parse failures to a JSON Lines file.
//
// Each run appends records tagged with a fresh run id, so failures from
// multiple runs can be told apart in one journal.
package errlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// Entry is one journaled parse failure.
type Entry struct {
	RunID   string `json:"run_id"`
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// Logger appends parse failures to a journal file.
type Logger struct {
	runID string
	file  *os.File
	w     *bufio.Writer
	enc   *json.Encoder
	count int
}

// New opens (or creates) the journal at path in append mode.
func New(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open error journal %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Logger{
		runID: uuid.New().String(),
		file:  f,
		w:     w,
		enc:   enc,
	}, nil
}

// RunID returns the id tagged onto every entry of this run.
func (l *Logger) RunID() string { return l.runID }

// Count returns the number of entries journaled so far.
func (l *Logger) Count() int { return l.count }

// LogParseError journals a single parse error.
func (l *Logger) LogParseError(perr sqllog.ParseError) error {
	return l.append(Entry{
		RunID:   l.runID,
		File:    perr.File,
		Line:    perr.Line,
		Message: perr.Message,
		Time:    time.Now().Format(time.RFC3339),
	})
}

// LogFileError journals a whole-file failure (e.g. an unreadable log).
func (l *Logger) LogFileError(file string, err error) error {
	return l.append(Entry{
		RunID:   l.runID,
		File:    file,
		Message: err.Error(),
		Time:    time.Now().Format(time.RFC3339),
	})
}

func (l *Logger) append(e Entry) error {
	if err := l.enc.Encode(&e); err != nil {
		return fmt.Errorf("journal entry: %w", err)
	}
	l.count++
	return nil
}

// Close flushes and closes the journal.
func (l *Logger) Close() error {
	if err := l.w.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
