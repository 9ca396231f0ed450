package progress

import "sync/atomic"

// Tracker accumulates run counters atomically so a UI goroutine can poll
// them while the pipeline goroutine updates them.
type Tracker struct {
	fileIndex   atomic.Int64
	records     atomic.Int64
	parseErrors atomic.Int64
}

// NewTracker creates a zeroed tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetFileIndex records the index of the file currently being parsed.
func (t *Tracker) SetFileIndex(i int) {
	t.fileIndex.Store(int64(i))
}

// AddRecords adds exported records to the running total.
func (t *Tracker) AddRecords(n int) {
	t.records.Add(int64(n))
}

// AddParseErrors adds parse failures to the running total.
func (t *Tracker) AddParseErrors(n int) {
	t.parseErrors.Add(int64(n))
}

// FileIndex returns the index of the file currently being parsed.
func (t *Tracker) FileIndex() int {
	return int(t.fileIndex.Load())
}

// Records returns the number of records exported so far.
func (t *Tracker) Records() int64 {
	return t.records.Load()
}

// ParseErrors returns the number of parse failures so far.
func (t *Tracker) ParseErrors() int64 {
	return t.parseErrors.Load()
}
