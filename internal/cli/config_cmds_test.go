package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmtools/sqlog2db/pkg/config"
	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
)

func TestInitCmdWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlog2db.toml")

	if _, err := execCmd(t, newInitCmd(), "-o", path); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "[exporter.jsonl]") {
		t.Error("generated config missing jsonl exporter table")
	}

	// The generated file must load and validate
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if !cfg.Exporter.JSONL.Enabled {
		t.Error("generated config should enable the JSONL exporter")
	}
}

func TestInitCmdRefusesToClobber(t *testing.T) {
	path := writeTempFile(t, "sqlog2db.toml", "existing = true\n")

	if _, err := execCmd(t, newInitCmd(), "-o", path); err == nil {
		t.Fatal("init should refuse to overwrite without --force")
	}

	if _, err := execCmd(t, newInitCmd(), "-o", path, "--force"); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "existing = true") {
		t.Error("--force should have replaced the file")
	}
}

func TestValidateCmdAcceptsGenerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlog2db.toml")
	if err := config.WriteDefault(path, false); err != nil {
		t.Fatal(err)
	}

	if _, err := execCmd(t, newValidateCmd(), "-c", path); err != nil {
		t.Fatalf("validate failed on generated config: %v", err)
	}
}

func TestValidateCmdRejectsBadLevel(t *testing.T) {
	path := writeTempFile(t, "bad.toml", `
[sqllog]
directory = "sqllog"

[logging]
level = "loud"

[exporter.jsonl]
enabled = true
file = "out.jsonl"
overwrite = true
`)

	_, err := execCmd(t, newValidateCmd(), "-c", path)
	if !apperrors.Is(err, apperrors.ErrCodeInvalidConfig) {
		t.Errorf("got %v, want INVALID_CONFIG", err)
	}
}

func TestValidateCmdMissingFile(t *testing.T) {
	_, err := execCmd(t, newValidateCmd(), "-c", filepath.Join(t.TempDir(), "nope.toml"))
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Errorf("got %v, want FILE_NOT_FOUND", err)
	}
}
