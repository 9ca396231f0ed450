// Package verify validates JSONL exports line by line.
//
// A JSONL file holds one self-contained JSON value per line. The validator
// makes a single sequential pass over the input, counting total and valid
// lines, echoing the first few parsed values (or their parse failures), and
// reporting aggregate statistics at the end. Malformed lines are counted and
// reported, never fatal; only whole-file I/O failures abort the pass.
package verify

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
)

const (
	// DefaultSampleCount is the number of leading lines echoed in detail.
	DefaultSampleCount = 3

	// DefaultProgressEvery is the line interval between progress notices.
	DefaultProgressEvery = 1_000_000

	// maxLineBytes bounds a single line. Exported SQL statements can be
	// large, so this is generous.
	maxLineBytes = 64 << 20
)

// Options controls a validation pass.
type Options struct {
	// SampleCount is the number of leading lines to echo in detail.
	// Negative values are treated as zero.
	SampleCount int

	// ProgressEvery is the line interval between progress notices.
	// Zero or negative selects DefaultProgressEvery.
	ProgressEvery int64

	// Out receives all validator output. Defaults to os.Stdout.
	Out io.Writer
}

// Result holds the counters accumulated over one pass.
type Result struct {
	// Total is the number of lines read. Lines are 1-indexed, so this is
	// the index of the last line; an empty input yields zero.
	Total int64

	// Valid is the number of lines that parsed as JSON.
	Valid int64
}

// Invalid returns the number of lines that failed to parse.
func (r Result) Invalid() int64 {
	return r.Total - r.Valid
}

// Rate returns the validity rate as a percentage. The second return value
// is false when the input was empty and no rate is defined.
func (r Result) Rate() (float64, bool) {
	if r.Total == 0 {
		return 0, false
	}
	return float64(r.Valid) / float64(r.Total) * 100, true
}

// RateString formats the validity rate to two decimal places, or "N/A" for
// an empty input where the rate is undefined.
func (r Result) RateString() string {
	rate, ok := r.Rate()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", rate)
}

// File validates the JSONL file at path and prints samples, progress and
// summary statistics per opts. A missing file is reported as a
// FILE_NOT_FOUND error; any other open or read failure also aborts the pass
// and discards the statistics gathered so far.
func File(path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "file does not exist: %s", path)
		}
		return Result{}, apperrors.Wrap(apperrors.ErrCodeInternal, err, "open %s", path)
	}
	defer f.Close()

	fmt.Fprintf(out(opts), "Verifying JSONL file: %s\n\n", path)
	return Stream(f, opts)
}

// Stream validates JSONL read from r. It honors the same output contract as
// File minus the leading filename header. Line order is preserved; there is
// no parallelism and no state beyond the returned counters.
func Stream(r io.Reader, opts Options) (Result, error) {
	w := out(opts)
	samples := opts.SampleCount
	if samples < 0 {
		samples = 0
	}
	every := opts.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	fmt.Fprintf(w, "First %d lines:\n\n", samples)

	var res Result
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	for sc.Scan() {
		res.Total++
		i := res.Total
		line := strings.TrimSpace(sc.Text())

		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			if i <= int64(samples) {
				fmt.Fprintf(w, "✗ Line %d parse failed: %s\n", i, describe(err))
			}
		} else {
			res.Valid++
			if i <= int64(samples) {
				fmt.Fprintf(w, "Line %d:\n", i)
				if err := echo(w, v); err != nil {
					return Result{}, apperrors.Wrap(apperrors.ErrCodeInternal, err, "re-serialize line %d", i)
				}
				fmt.Fprintln(w)
			}
		}

		if i%every == 0 {
			fmt.Fprintf(w, "Processed %s lines...\n", humanize.Comma(i))
		}
	}
	if err := sc.Err(); err != nil {
		// Whole-run read failures discard partial statistics.
		return Result{}, apperrors.Wrap(apperrors.ErrCodeInternal, err, "read input")
	}

	fmt.Fprintf(w, "\n✓ Verification complete!\n")
	fmt.Fprintf(w, "Total lines: %s\n", humanize.Comma(res.Total))
	fmt.Fprintf(w, "Valid JSON lines: %s\n", humanize.Comma(res.Valid))
	fmt.Fprintf(w, "Invalid lines: %s\n", humanize.Comma(res.Invalid()))
	fmt.Fprintf(w, "Validity rate: %s\n", res.RateString())

	return res, nil
}

// echo re-serializes v with two-space indentation. HTML escaping is disabled
// so multibyte and markup characters survive the round trip literally.
func echo(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// describe renders a decode failure with enough detail to locate the
// offending token: the decoder message plus a byte offset when one is known.
func describe(err error) string {
	var syn *json.SyntaxError
	if errors.As(err, &syn) && syn.Offset > 0 {
		return fmt.Sprintf("%v (offset %d)", err, syn.Offset)
	}
	return err.Error()
}

func out(opts Options) io.Writer {
	if opts.Out != nil {
		return opts.Out
	}
	return os.Stdout
}
