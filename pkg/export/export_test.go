package export

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dmtools/sqlog2db/pkg/config"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func ptr[T any](v T) *T { return &v }

func testRecords() []sqllog.Record {
	return []sqllog.Record{
		{
			TS:         "2025-10-20 15:10:28.614",
			EP:         0,
			SessID:     "0x7f41435437a8",
			ThrdID:     "2188515",
			Username:   "OASIS_MSG",
			TrxID:      "0",
			Statement:  "0x7f41435677a8",
			ClientIP:   "::ffff:10.63.97.88",
			SQL:        "[INS] INSERT INTO OASIS_MSG.SYS_NOTIFY_TODOTARGET VALUES( ?,?,? )",
			ExecTimeMS: ptr(3.0),
			RowCount:   ptr(uint32(1)),
			ExecID:     ptr(int64(257809109)),
		},
		{
			TS:        "2025-10-20 15:10:28.615",
			EP:        1,
			SessID:    "0x114475f8",
			ThrdID:    "2213103",
			Username:  "SYSDBA",
			TrxID:     "0",
			Statement: "0x1146b5f8",
			AppName:   "disql",
			ClientIP:  "::ffff:10.63.97.89",
			SQL:       "[SEL] select 达梦 from dual",
		},
	}
}

// fakeExporter records calls for manager tests.
type fakeExporter struct {
	name     string
	initErr  error
	batchErr error
	batches  int
	final    bool
	stats    Stats
}

func (f *fakeExporter) Name() string { return f.name }

func (f *fakeExporter) Initialize(context.Context) error { return f.initErr }

func (f *fakeExporter) ExportBatch(_ context.Context, recs []sqllog.Record) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches++
	f.stats.recordBatch(len(recs))
	return nil
}

func (f *fakeExporter) Finalize(context.Context) error {
	f.final = true
	return nil
}

func (f *fakeExporter) Stats() Stats { return f.stats }

func TestManagerFanOut(t *testing.T) {
	ctx := context.Background()
	a := &fakeExporter{name: "a"}
	b := &fakeExporter{name: "b"}
	m := NewManager(testLogger(), a, b)

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if err := m.ExportBatch(ctx, testRecords()); err != nil {
		t.Fatalf("ExportBatch() error: %v", err)
	}
	if err := m.Finalize(ctx); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}

	for _, e := range []*fakeExporter{a, b} {
		if e.batches != 1 {
			t.Errorf("%s batches = %d, want 1", e.name, e.batches)
		}
		if !e.final {
			t.Errorf("%s was not finalized", e.name)
		}
		if s := m.Stats()[e.name]; s.Exported != 2 || s.LastFlush != 2 {
			t.Errorf("%s stats = %+v, want 2 exported", e.name, s)
		}
	}
}

func TestManagerEmptyBatch(t *testing.T) {
	a := &fakeExporter{name: "a"}
	m := NewManager(testLogger(), a)

	if err := m.ExportBatch(context.Background(), nil); err != nil {
		t.Fatalf("ExportBatch(nil) error: %v", err)
	}
	if a.batches != 0 {
		t.Errorf("batches = %d, want 0 for empty input", a.batches)
	}
}

func TestManagerInitFailureFinalizesEarlierSinks(t *testing.T) {
	a := &fakeExporter{name: "a"}
	b := &fakeExporter{name: "b", initErr: errors.New("boom")}
	m := NewManager(testLogger(), a, b)

	if err := m.Initialize(context.Background()); err == nil {
		t.Fatal("Initialize() error = nil, want failure")
	}
	if !a.final {
		t.Error("first sink was not finalized after later init failure")
	}
}

func TestManagerBatchFailure(t *testing.T) {
	a := &fakeExporter{name: "a", batchErr: errors.New("disk full")}
	m := NewManager(testLogger(), a)

	err := m.ExportBatch(context.Background(), testRecords())
	if err == nil {
		t.Fatal("ExportBatch() error = nil, want failure")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Exporter.CSV.Enabled = true

	m, err := FromConfig(&cfg, testLogger())
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}
	names := m.Names()
	if len(names) != 2 || names[0] != "jsonl" || names[1] != "csv" {
		t.Errorf("Names() = %v, want [jsonl csv]", names)
	}
}

func TestFromConfigNoSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Exporter.JSONL.Enabled = false

	if _, err := FromConfig(&cfg, testLogger()); err == nil {
		t.Fatal("FromConfig() error = nil, want no-exporter failure")
	}
}
