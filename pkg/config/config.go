// Package config loads and validates the TOML configuration for sqlog2db.
//
// The configuration has four sections: [sqllog] for the input logs, [error]
// for the parse-failure journal, [logging], and one [exporter.*] table per
// sink. A missing configuration file is not fatal; callers fall back to
// Default().
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	apperrors "github.com/dmtools/sqlog2db/pkg/errors"
)

// Levels accepted by [logging].level.
var logLevels = []string{"debug", "info", "warn", "error"}

// Config is the root configuration.
type Config struct {
	Sqllog   SqllogConfig   `toml:"sqllog"`
	Error    ErrorConfig    `toml:"error"`
	Logging  LoggingConfig  `toml:"logging"`
	Exporter ExporterConfig `toml:"exporter"`
}

// SqllogConfig configures the SQL log input.
type SqllogConfig struct {
	// Directory is the log input path: a directory of .log files or a
	// single file.
	Directory string `toml:"directory"`

	// BatchSize is the number of records per export batch. Zero means a
	// single batch holding the whole file.
	BatchSize int `toml:"batch_size"`
}

// ErrorConfig configures the parse-failure journal.
type ErrorConfig struct {
	File string `toml:"file"`
}

// LoggingConfig configures console logging.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ExporterConfig holds one optional table per sink.
type ExporterConfig struct {
	JSONL  JSONLExporter  `toml:"jsonl"`
	CSV    CSVExporter    `toml:"csv"`
	SQLite SQLiteExporter `toml:"sqlite"`
	Mongo  MongoExporter  `toml:"mongo"`
	Redis  RedisExporter  `toml:"redis"`
}

// JSONLExporter configures the JSON Lines file sink.
type JSONLExporter struct {
	Enabled   bool   `toml:"enabled"`
	File      string `toml:"file"`
	Overwrite bool   `toml:"overwrite"`
	Append    bool   `toml:"append"`
}

// CSVExporter configures the CSV file sink.
type CSVExporter struct {
	Enabled   bool   `toml:"enabled"`
	File      string `toml:"file"`
	Overwrite bool   `toml:"overwrite"`
	Delimiter string `toml:"delimiter"`
}

// SQLiteExporter configures the SQLite database sink.
type SQLiteExporter struct {
	Enabled   bool   `toml:"enabled"`
	File      string `toml:"file"`
	Table     string `toml:"table"`
	Overwrite bool   `toml:"overwrite"`
}

// MongoExporter configures the MongoDB collection sink.
type MongoExporter struct {
	Enabled    bool   `toml:"enabled"`
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// RedisExporter configures the Redis Streams sink.
type RedisExporter struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	DB      int    `toml:"db"`
	Stream  string `toml:"stream"`
	// MaxLen caps the stream length (approximate trimming); zero keeps
	// everything.
	MaxLen int64 `toml:"maxlen"`
}

// Default returns the built-in configuration used when no file is present.
func Default() Config {
	return Config{
		Sqllog: SqllogConfig{
			Directory: "sqllog",
			BatchSize: 10000,
		},
		Error: ErrorConfig{
			File: "errors.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Exporter: ExporterConfig{
			JSONL: JSONLExporter{
				Enabled:   true,
				File:      "export/sqllog2db.jsonl",
				Overwrite: true,
			},
			CSV: CSVExporter{
				File:      "export/sqllog2db.csv",
				Overwrite: true,
				Delimiter: ",",
			},
			SQLite: SQLiteExporter{
				File:  "export/sqllog2db.db",
				Table: "sqllog",
			},
			Mongo: MongoExporter{
				URI:        "mongodb://localhost:27017",
				Database:   "sqllog2db",
				Collection: "sqllog",
			},
			Redis: RedisExporter{
				Addr:   "localhost:6379",
				Stream: "sqllog2db",
			},
		},
	}
}

// Load reads and validates the configuration at path. A missing file is
// reported as a FILE_NOT_FOUND error so callers can fall back to Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "configuration file not found: %s", path)
		}
		return Config{}, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	return Parse(string(data), path)
}

// Parse decodes and validates TOML configuration text. The path argument is
// used only for error messages.
func Parse(data, path string) (Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Sqllog.Directory) == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "sqllog.directory cannot be empty")
	}
	if c.Sqllog.BatchSize < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "sqllog.batch_size cannot be negative: %d", c.Sqllog.BatchSize)
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	return c.Exporter.validate()
}

func (l *LoggingConfig) validate() error {
	for _, lvl := range logLevels {
		if l.Level == lvl {
			return nil
		}
	}
	return apperrors.New(apperrors.ErrCodeInvalidConfig,
		"logging.level must be one of %s, got %q", strings.Join(logLevels, "/"), l.Level)
}

func (e *ExporterConfig) validate() error {
	if !e.JSONL.Enabled && !e.CSV.Enabled && !e.SQLite.Enabled && !e.Mongo.Enabled && !e.Redis.Enabled {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "no exporter enabled")
	}
	if e.JSONL.Enabled && strings.TrimSpace(e.JSONL.File) == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.jsonl.file cannot be empty")
	}
	if e.CSV.Enabled {
		if strings.TrimSpace(e.CSV.File) == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.csv.file cannot be empty")
		}
		if d := e.CSV.Delimiter; d != "" && len([]rune(d)) != 1 {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.csv.delimiter must be a single character, got %q", d)
		}
	}
	if e.SQLite.Enabled {
		if strings.TrimSpace(e.SQLite.File) == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.sqlite.file cannot be empty")
		}
		if strings.TrimSpace(e.SQLite.Table) == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.sqlite.table cannot be empty")
		}
	}
	if e.Mongo.Enabled {
		if strings.TrimSpace(e.Mongo.URI) == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.mongo.uri cannot be empty")
		}
		if strings.TrimSpace(e.Mongo.Database) == "" || strings.TrimSpace(e.Mongo.Collection) == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.mongo requires database and collection")
		}
	}
	if e.Redis.Enabled {
		if strings.TrimSpace(e.Redis.Addr) == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.redis.addr cannot be empty")
		}
		if strings.TrimSpace(e.Redis.Stream) == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "exporter.redis.stream cannot be empty")
		}
	}
	return nil
}

// WriteDefault writes the commented default configuration to path. Existing
// files are preserved unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return apperrors.New(apperrors.ErrCodeInvalidPath, "%s already exists (use --force to overwrite)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, []byte(defaultTOML), 0o644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// defaultTOML is the template emitted by `sqlog2db init`. It must stay in
// sync with Default().
const defaultTOML = `# sqlog2db configuration

[sqllog]
# Input path: a directory of .log files, or a single log file.
directory = "sqllog"
# Records per export batch. 0 exports each file in one batch.
batch_size = 10000

[error]
# Parse failures are journaled here as JSON Lines.
file = "errors.json"

[logging]
# One of: debug, info, warn, error.
level = "info"

[exporter.jsonl]
enabled = true
file = "export/sqllog2db.jsonl"
overwrite = true
append = false

[exporter.csv]
enabled = false
file = "export/sqllog2db.csv"
overwrite = true
delimiter = ","

[exporter.sqlite]
enabled = false
file = "export/sqllog2db.db"
table = "sqllog"
overwrite = false

[exporter.mongo]
enabled = false
uri = "mongodb://localhost:27017"
database = "sqllog2db"
collection = "sqllog"

[exporter.redis]
enabled = false
addr = "localhost:6379"
db = 0
stream = "sqllog2db"
maxlen = 0
`

// String renders a short human-readable summary, used by the validate
// command.
func (c *Config) String() string {
	enabled := c.EnabledExporters()
	return fmt.Sprintf("input=%s batch=%d level=%s exporters=%s",
		c.Sqllog.Directory, c.Sqllog.BatchSize, c.Logging.Level, strings.Join(enabled, ","))
}

// EnabledExporters lists the names of enabled sinks.
func (c *Config) EnabledExporters() []string {
	var names []string
	if c.Exporter.JSONL.Enabled {
		names = append(names, "jsonl")
	}
	if c.Exporter.CSV.Enabled {
		names = append(names, "csv")
	}
	if c.Exporter.SQLite.Enabled {
		names = append(names, "sqlite")
	}
	if c.Exporter.Mongo.Enabled {
		names = append(names, "mongo")
	}
	if c.Exporter.Redis.Enabled {
		names = append(names, "redis")
	}
	return names
}
