package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
)

const testLogLine = `2025-10-20 15:10:28.614 (EP[0] sess:0x7f41435437a8 thrd:2188515 user:OASIS_MSG trxid:0 stmt:0x7f41435677a8 appname: ip:::ffff:10.63.97.88) [INS] INSERT INTO OASIS_MSG.SYS_NOTIFY_TODOTARGET VALUES( ?,?,? ) EXECTIME: 3(ms) ROWCOUNT: 1(rows) EXEC_ID: 257809109.`

// writeRunFixture lays out a log directory, a JSONL-only config and returns
// the config path plus the export target.
func writeRunFixture(t *testing.T, logContent string) (configPath, exportPath, errorPath string) {
	t.Helper()
	dir := t.TempDir()

	logDir := filepath.Join(dir, "sqllog")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "dmsql_1.log"), []byte(logContent), 0o644); err != nil {
		t.Fatal(err)
	}

	exportPath = filepath.Join(dir, "out.jsonl")
	errorPath = filepath.Join(dir, "errors.json")
	configPath = filepath.Join(dir, "sqlog2db.toml")

	cfg := fmt.Sprintf(`
[sqllog]
directory = %q
batch_size = 2

[error]
file = %q

[logging]
level = "error"

[exporter.jsonl]
enabled = true
file = %q
overwrite = true
`, logDir, errorPath, exportPath)
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, exportPath, errorPath
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

func TestRunCmdExportsJSONL(t *testing.T) {
	var logs strings.Builder
	for range 5 {
		logs.WriteString(testLogLine + "\n")
	}
	configPath, exportPath, _ := writeRunFixture(t, logs.String())

	cmd := newRunCmd()
	if _, err := execCmd(t, cmd, "-c", configPath); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := countLines(t, exportPath); got != 5 {
		t.Errorf("exported %d records, want 5", got)
	}

	// The export must itself be valid JSONL
	f, err := os.Open(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for i := 1; sc.Scan(); i++ {
		var v map[string]any
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			t.Fatalf("line %d not JSON: %v", i, err)
		}
		if v["username"] != "OASIS_MSG" {
			t.Errorf("line %d username = %v, want OASIS_MSG", i, v["username"])
		}
	}
}

func TestRunCmdJournalsParseErrors(t *testing.T) {
	content := "garbage leading line\n" + testLogLine + "\n"
	configPath, exportPath, errorPath := writeRunFixture(t, content)

	if _, err := execCmd(t, newRunCmd(), "-c", configPath); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := countLines(t, exportPath); got != 1 {
		t.Errorf("exported %d records, want 1", got)
	}
	if got := countLines(t, errorPath); got != 1 {
		t.Errorf("journaled %d errors, want 1", got)
	}
}

func TestRunCmdMissingConfigUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// Defaults read from ./sqllog, which does not exist here
	_, err := execCmd(t, newRunCmd(), "-c", filepath.Join(dir, "nope.toml"))
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Errorf("got %v, want FILE_NOT_FOUND for missing log directory", err)
	}
}

func TestRunCmdInvalidConfig(t *testing.T) {
	configPath := writeTempFile(t, "bad.toml", "[sqllog]\ndirectory = 42\n")

	_, err := execCmd(t, newRunCmd(), "-c", configPath)
	if err == nil {
		t.Fatal("expected error for malformed config")
	}
}
