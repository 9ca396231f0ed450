package verify

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
)

var sampleHeader = regexp.MustCompile(`(?m)^Line \d+:$`)

func runStream(t *testing.T, input string, opts Options) (Result, string) {
	t.Helper()
	var buf bytes.Buffer
	opts.Out = &buf
	res, err := Stream(strings.NewReader(input), opts)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	return res, buf.String()
}

func TestStreamAllValid(t *testing.T) {
	res, out := runStream(t, "{\"a\":1}\n{\"b\":2}\n", Options{SampleCount: 2})

	if res.Total != 2 || res.Valid != 2 || res.Invalid() != 0 {
		t.Errorf("Result = %+v, want total=2 valid=2 invalid=0", res)
	}
	if got := len(sampleHeader.FindAllString(out, -1)); got != 2 {
		t.Errorf("sample blocks = %d, want 2", got)
	}
	if !strings.Contains(out, "Validity rate: 100.00%") {
		t.Errorf("output missing 100.00%% rate:\n%s", out)
	}
	if !strings.Contains(out, "✓ Verification complete!") {
		t.Errorf("output missing completion marker:\n%s", out)
	}
}

func TestStreamMixed(t *testing.T) {
	res, out := runStream(t, "{\"a\":1}\nnot json\n", Options{SampleCount: 2})

	if res.Total != 2 || res.Valid != 1 || res.Invalid() != 1 {
		t.Errorf("Result = %+v, want total=2 valid=1 invalid=1", res)
	}
	if got := len(sampleHeader.FindAllString(out, -1)); got != 1 {
		t.Errorf("valid sample blocks = %d, want 1", got)
	}
	if !strings.Contains(out, "✗ Line 2 parse failed:") {
		t.Errorf("output missing parse failure notice:\n%s", out)
	}
	if !strings.Contains(out, "Validity rate: 50.00%") {
		t.Errorf("output missing 50.00%% rate:\n%s", out)
	}
}

func TestStreamAllInvalid(t *testing.T) {
	res, out := runStream(t, "nope\n{broken\n", Options{SampleCount: 1})

	if res.Total != 2 || res.Valid != 0 {
		t.Errorf("Result = %+v, want total=2 valid=0", res)
	}
	if !strings.Contains(out, "Validity rate: 0.00%") {
		t.Errorf("output missing 0.00%% rate:\n%s", out)
	}
}

func TestStreamEmpty(t *testing.T) {
	res, out := runStream(t, "", Options{SampleCount: 3})

	if res.Total != 0 || res.Valid != 0 {
		t.Errorf("Result = %+v, want total=0 valid=0", res)
	}
	if !strings.Contains(out, "Total lines: 0") {
		t.Errorf("output missing zero total:\n%s", out)
	}
	// Division by zero is guarded; the rate is reported as undefined.
	if !strings.Contains(out, "Validity rate: N/A") {
		t.Errorf("output missing N/A rate:\n%s", out)
	}
}

func TestSampleBound(t *testing.T) {
	input := strings.Repeat("{\"x\":true}\n", 5)
	_, out := runStream(t, input, Options{SampleCount: 2})

	if got := len(sampleHeader.FindAllString(out, -1)); got != 2 {
		t.Errorf("sample blocks = %d, want 2", got)
	}
}

func TestZeroSamples(t *testing.T) {
	_, out := runStream(t, "{\"a\":1}\n", Options{SampleCount: 0})

	if got := len(sampleHeader.FindAllString(out, -1)); got != 0 {
		t.Errorf("sample blocks = %d, want 0", got)
	}
	if !strings.Contains(out, "First 0 lines:") {
		t.Errorf("output missing sample header:\n%s", out)
	}
}

func TestProgressNotices(t *testing.T) {
	input := strings.Repeat("1\n", 5)
	_, out := runStream(t, input, Options{SampleCount: 0, ProgressEvery: 2})

	// floor(5/2) = 2 notices
	want := []string{"Processed 2 lines...", "Processed 4 lines..."}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
	if got := strings.Count(out, "Processed "); got != 2 {
		t.Errorf("progress notices = %d, want 2", got)
	}
}

func TestNonASCIIPreserved(t *testing.T) {
	_, out := runStream(t, "{\"msg\":\"达梦数据库\"}\n", Options{SampleCount: 1})

	if !strings.Contains(out, "达梦数据库") {
		t.Errorf("non-ASCII content was escaped:\n%s", out)
	}
	if strings.Contains(out, "\\u") {
		t.Errorf("output contains unicode escapes:\n%s", out)
	}
}

func TestScalarAndArrayLines(t *testing.T) {
	// Each line may hold any JSON value, not just objects.
	res, _ := runStream(t, "42\n\"text\"\n[1,2,3]\nnull\n", Options{SampleCount: 0})

	if res.Total != 4 || res.Valid != 4 {
		t.Errorf("Result = %+v, want total=4 valid=4", res)
	}
}

func TestSurroundingWhitespace(t *testing.T) {
	res, _ := runStream(t, "  {\"a\":1}  \r\n", Options{SampleCount: 0})

	if res.Total != 1 || res.Valid != 1 {
		t.Errorf("Result = %+v, want total=1 valid=1", res)
	}
}

func TestBlankLineIsInvalid(t *testing.T) {
	res, _ := runStream(t, "{\"a\":1}\n\n", Options{SampleCount: 0})

	if res.Total != 2 || res.Valid != 1 {
		t.Errorf("Result = %+v, want total=2 valid=1", res)
	}
}

func TestParseFailureLocatesToken(t *testing.T) {
	_, out := runStream(t, "{\"a\":}\n", Options{SampleCount: 1})

	if !strings.Contains(out, "offset") {
		t.Errorf("parse failure notice missing byte offset:\n%s", out)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.jsonl")
	if err := os.WriteFile(path, []byte("{\"a\":1}\n{\"b\":2}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	res, err := File(path, Options{SampleCount: 2, Out: &buf})
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	if res.Total != 2 || res.Valid != 2 {
		t.Errorf("Result = %+v, want total=2 valid=2", res)
	}
	if !strings.Contains(buf.String(), "Verifying JSONL file: "+path) {
		t.Errorf("output missing file header:\n%s", buf.String())
	}
}

func TestFileNotFound(t *testing.T) {
	var buf bytes.Buffer
	_, err := File(filepath.Join(t.TempDir(), "missing.jsonl"), Options{Out: &buf})
	if err == nil {
		t.Fatal("File() error = nil, want FILE_NOT_FOUND")
	}
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Errorf("error code = %v, want FILE_NOT_FOUND", apperrors.GetCode(err))
	}
}

// failingReader yields a few valid lines and then a read error, to verify
// that whole-run failures discard partial statistics.
type failingReader struct {
	data []byte
	err  error
	done bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.done {
		return 0, f.err
	}
	f.done = true
	n := copy(p, f.data)
	return n, nil
}

func TestReadFailureDiscardsPartialStats(t *testing.T) {
	var buf bytes.Buffer
	r := &failingReader{data: []byte("{\"a\":1}\n"), err: errors.New("disk gone")}

	res, err := Stream(r, Options{SampleCount: 0, Out: &buf})
	if err == nil {
		t.Fatal("Stream() error = nil, want read failure")
	}
	if res != (Result{}) {
		t.Errorf("Result = %+v, want zero value on whole-run failure", res)
	}
	if strings.Contains(buf.String(), "Verification complete") {
		t.Errorf("summary printed despite read failure:\n%s", buf.String())
	}
}

func TestRateString(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{"empty", Result{}, "N/A"},
		{"all valid", Result{Total: 4, Valid: 4}, "100.00%"},
		{"half", Result{Total: 2, Valid: 1}, "50.00%"},
		{"third", Result{Total: 3, Valid: 1}, "33.33%"},
		{"none", Result{Total: 5, Valid: 0}, "0.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.RateString(); got != tt.want {
				t.Errorf("RateString() = %q, want %q", got, tt.want)
			}
		})
	}
}
