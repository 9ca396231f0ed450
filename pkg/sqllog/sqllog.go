// Package sqllog parses DM database SQL log files.
//
// A log record starts with a timestamp header carrying session metadata and
// runs until the next header; SQL statements may span multiple lines. Records
// that executed carry trailing indicators (execution time, row count,
// execution id) appended to the statement text:
//
//	2025-10-20 15:10:28.614 (EP[0] sess:0x7f4143 thrd:2188515 user:APP
//	trxid:0 stmt:0x7f4143 appname: ip:::ffff:10.63.97.88) [SEL] select 1
//	EXECTIME: 3(ms) ROWCOUNT: 1(rows) EXEC_ID: 257809109.
//
// Parsing is tolerant: lines that fit no record are collected as ParseErrors
// and never abort a file.
package sqllog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
)

// Record is one parsed SQL log entry. JSON tags match the JSONL export
// schema, so a Record can be serialized directly by the JSONL sink.
type Record struct {
	TS         string   `json:"ts"`
	EP         uint8    `json:"ep"`
	SessID     string   `json:"sess_id"`
	ThrdID     string   `json:"thrd_id"`
	Username   string   `json:"username"`
	TrxID      string   `json:"trx_id"`
	Statement  string   `json:"statement"`
	AppName    string   `json:"appname"`
	ClientIP   string   `json:"client_ip"`
	SQL        string   `json:"sql"`
	ExecTimeMS *float64 `json:"exec_time_ms,omitempty"`
	RowCount   *uint32  `json:"row_count,omitempty"`
	ExecID     *int64   `json:"exec_id,omitempty"`
}

// ParseError describes a line that could not be attributed to any record.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// header matches the start of a record. The appname field may be empty and
// is matched lazily up to the ip field.
var header = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}) ` +
		`\(EP\[(\d+)\] sess:(\S*) thrd:(\S*) user:(\S*) trxid:(\S*) stmt:(\S*) appname:(.*?) ip:(\S*)\) (.*)$`)

// indicators matches the execution suffix at the end of a statement body.
var indicators = regexp.MustCompile(
	` EXECTIME: (\d+(?:\.\d+)?)\(ms\) ROWCOUNT: (\d+)\(rows\) EXEC_ID: (\d+)\.?$`)

// maxLineBytes bounds a single log line; generated SQL can be very long.
const maxLineBytes = 16 << 20

// Parser locates and parses SQL log files under a path.
type Parser struct {
	path string
}

// New creates a parser rooted at path, which may be a single log file or a
// directory containing .log files.
func New(path string) *Parser {
	return &Parser{path: path}
}

// Path returns the configured input path.
func (p *Parser) Path() string {
	return p.path
}

// LogFiles returns the log files to parse, sorted by name. For a file path
// it returns that file; for a directory it returns the contained .log files.
func (p *Parser) LogFiles() ([]string, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "log path does not exist: %s", p.path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "stat %s", p.path)
	}

	if !info.IsDir() {
		return []string{p.path}, nil
	}

	matches, err := filepath.Glob(filepath.Join(p.path, "*.log"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "scan %s", p.path)
	}
	return matches, nil
}

// ParseFile parses one log file into records. Unattributable lines are
// returned as parse errors; only open/read failures return a non-nil error.
func (p *Parser) ParseFile(path string) ([]Record, []ParseError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCodeParse, err, "open %s", path)
	}
	defer f.Close()
	recs, perrs, err := Parse(f, path)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCodeParse, err, "read %s", path)
	}
	return recs, perrs, nil
}

// Parse reads records from r. The file argument is used only for error
// attribution.
func Parse(r io.Reader, file string) ([]Record, []ParseError, error) {
	var (
		recs  []Record
		perrs []ParseError
		cur   *Record
		body  strings.Builder
	)

	flush := func() {
		if cur == nil {
			return
		}
		rec := *cur
		rec.SQL = finishBody(body.String(), &rec)
		recs = append(recs, rec)
		cur = nil
		body.Reset()
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()

		m := header.FindStringSubmatch(text)
		if m == nil {
			if cur == nil {
				if strings.TrimSpace(text) != "" {
					perrs = append(perrs, ParseError{
						File:    file,
						Line:    line,
						Message: "line precedes any record header",
					})
				}
				continue
			}
			// Continuation of a multi-line statement.
			body.WriteByte('\n')
			body.WriteString(text)
			continue
		}

		flush()
		ep, _ := strconv.ParseUint(m[2], 10, 8)
		cur = &Record{
			TS:        m[1],
			EP:        uint8(ep),
			SessID:    m[3],
			ThrdID:    m[4],
			Username:  m[5],
			TrxID:     m[6],
			Statement: m[7],
			AppName:   strings.TrimSpace(m[8]),
			ClientIP:  m[9],
		}
		body.WriteString(m[10])
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	flush()

	return recs, perrs, nil
}

// finishBody trims the statement body and splits off trailing execution
// indicators into the record, when present.
func finishBody(body string, rec *Record) string {
	body = strings.TrimRight(body, " \t\r\n")

	m := indicators.FindStringSubmatch(body)
	if m == nil {
		return body
	}

	if v, err := strconv.ParseFloat(m[1], 64); err == nil {
		rec.ExecTimeMS = &v
	}
	if v, err := strconv.ParseUint(m[2], 10, 32); err == nil {
		rc := uint32(v)
		rec.RowCount = &rc
	}
	if v, err := strconv.ParseInt(m[3], 10, 64); err == nil {
		rec.ExecID = &v
	}

	return strings.TrimRight(body[:len(body)-len(m[0])], " \t")
}
