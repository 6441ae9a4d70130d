package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	counters map[string]float64
	observed []string
	labels   []Labels
	flushed  int
}

func newRecorder() *recorder { return &recorder{counters: map[string]float64{}} }

func (r *recorder) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
	r.labels = append(r.labels, labels)
}

func (r *recorder) ObserveHistogram(name string, _ float64, _ Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed = append(r.observed, name)
}

func (r *recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed++
	return nil
}

func TestHelpersRouteToInstalledBackend(t *testing.T) {
	r := newRecorder()
	SetBackend(r)
	t.Cleanup(func() { SetBackend(nil) })

	RecordRows("loaded", 3)
	RecordRows("skipped", 0)
	RecordBatch()
	RecordStep("create", time.Now(), errors.New("boom"))
	if err := Flush(); err != nil {
		t.Fatalf("Flush() err=%v", err)
	}

	if r.counters[RowsTotal] != 3 {
		t.Fatalf("rows=%v, want 3", r.counters[RowsTotal])
	}
	if r.counters[BatchesTotal] != 1 {
		t.Fatalf("batches=%v, want 1", r.counters[BatchesTotal])
	}
	if r.counters[StepTotal] != 1 {
		t.Fatalf("steps=%v, want 1", r.counters[StepTotal])
	}
	if len(r.observed) != 1 || r.observed[0] != StepDurationSeconds {
		t.Fatalf("observed=%v", r.observed)
	}
	last := r.labels[len(r.labels)-1]
	if last["status"] != "error" || last["step"] != "create" {
		t.Fatalf("step labels=%v", last)
	}
	if r.flushed != 1 {
		t.Fatalf("flushed=%d, want 1", r.flushed)
	}
}

func TestSetBackendNilRestoresNop(t *testing.T) {
	SetBackend(nil)
	if _, ok := Default().(nopBackend); !ok {
		t.Fatalf("Default() = %T, want nopBackend", Default())
	}
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush() err=%v", err)
	}
}
