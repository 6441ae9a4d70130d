// Package metrics is the backend-neutral metrics facade used by the loader
// and exporter.
//
// Core code records through the package-level helpers; the CLI decides which
// Backend is installed (nop by default, Datadog when configured).
package metrics

import (
	"sync"
	"time"
)

// Metric names recorded by fileflow.
const (
	RowsTotal           = "fileflow_rows_total"
	BatchesTotal        = "fileflow_batches_total"
	StepTotal           = "fileflow_step_total"
	StepDurationSeconds = "fileflow_step_duration_seconds"
)

// Labels are metric dimensions. Backends decide which keys they honor.
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. nil restores the nop
// backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

// Default returns the installed backend.
func Default() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the installed backend.
func Flush() error {
	return Default().Flush()
}

// RecordRows counts rows by kind ("loaded", "skipped", "exported").
func RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	Default().IncCounter(RowsTotal, float64(n), Labels{"kind": kind})
}

// RecordBatch counts one flushed INSERT batch.
func RecordBatch() {
	Default().IncCounter(BatchesTotal, 1, nil)
}

// RecordStep counts a finished step and observes its duration.
//
// status is "ok" when err is nil and "error" otherwise.
func RecordStep(step string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	l := Labels{"step": step, "status": status}
	b := Default()
	b.IncCounter(StepTotal, 1, l)
	b.ObserveHistogram(StepDurationSeconds, time.Since(started).Seconds(), l)
}
