// Package progress provides hooks and counters for export-run progress.
//
// The run pipeline emits events through a Hooks implementation registered at
// startup; a no-op default keeps the pipeline free of any UI dependency. The
// TUI registers hooks that forward events to its event loop, and the Tracker
// offers atomic counters that can be polled from another goroutine.
//
// Register hooks at application startup:
//
//	progress.SetHooks(&myHooks{})
//	// ... run the export pipeline
package progress

import (
	"context"
	"sync"
	"time"
)

// Hooks receives events from the export pipeline.
type Hooks interface {
	// OnRunStart fires once, before the first file, with the number of
	// files and the registered sink names.
	OnRunStart(ctx context.Context, totalFiles int, sinks []string)

	// OnFileStart fires when a log file begins parsing.
	OnFileStart(ctx context.Context, index int, file string)

	// OnBatch fires after each exported batch.
	OnBatch(ctx context.Context, index int, records, parseErrors int)

	// OnFileDone fires when a log file has been fully exported.
	OnFileDone(ctx context.Context, index int, file string, err error)

	// OnRunDone fires once, after the last file.
	OnRunDone(ctx context.Context, records, parseErrors int64, elapsed time.Duration)
}

// NoopHooks is a no-op implementation of Hooks.
type NoopHooks struct{}

func (NoopHooks) OnRunStart(context.Context, int, []string)                {}
func (NoopHooks) OnFileStart(context.Context, int, string)                 {}
func (NoopHooks) OnBatch(context.Context, int, int, int)                   {}
func (NoopHooks) OnFileDone(context.Context, int, string, error)           {}
func (NoopHooks) OnRunDone(context.Context, int64, int64, time.Duration)   {}

var (
	hooks   Hooks = NoopHooks{}
	hooksMu sync.RWMutex
)

// SetHooks registers custom hooks. This should be called once at application
// startup before the pipeline runs.
func SetHooks(h Hooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		hooks = h
	}
}

// Get returns the registered hooks.
func Get() Hooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return hooks
}

// Reset restores the no-op default. This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	hooks = NoopHooks{}
}
